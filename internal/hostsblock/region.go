// Package hostsblock renders, detects and strips the marker-delimited
// block region in the hosts file. Pure string transforms, no I/O.
package hostsblock

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// BeginMarker and EndMarker delimit the block region. Their exact
	// bytes are the contract between insert, detect and strip; the
	// engine, the tamper watcher and the stop command all agree on
	// them through this package.
	BeginMarker = "# BEGIN FOCUS BLOCK"
	EndMarker   = "# END FOCUS BLOCK"
)

// regionPattern matches one region occurrence, including the single
// newline Render puts in front of it, so stripping an appended region
// restores the prior content byte-for-byte.
var regionPattern = regexp.MustCompile(`\n?` + BeginMarker + `(?s:.*?)` + EndMarker)

// Render builds the region text that gets appended to the hosts file:
// a separating newline, the opening marker, one "<ip>\t<host>" line
// per site, the closing marker. Deterministic: equal input yields
// byte-identical output.
func Render(blockIP string, sites []string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(BeginMarker)
	b.WriteString("\n")
	for _, site := range sites {
		fmt.Fprintf(&b, "%s\t%s\n", blockIP, site)
	}
	b.WriteString(EndMarker)
	return b.String()
}

// IsPresent reports whether text contains a region: both markers
// occur, with the opening one first.
func IsPresent(text string) bool {
	begin := strings.Index(text, BeginMarker)
	if begin < 0 {
		return false
	}
	end := strings.Index(text, EndMarker)
	return end >= 0 && begin < end
}

// Strip removes every region occurrence from text, leaving all other
// content untouched. Tolerates duplicates from watcher re-insertion
// and is a no-op when no complete region exists, so it is safe to run
// from any termination path regardless of tamper history.
func Strip(text string) string {
	return regionPattern.ReplaceAllString(text, "")
}

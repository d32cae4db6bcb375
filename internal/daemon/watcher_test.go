package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/hostsblock"
	"github.com/eliteGoblin/focusd/net_block/internal/infra"
)

const testInterval = 10 * time.Millisecond

func newWatcherFixture(t *testing.T, content, region string) (*TamperWatcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	hosts := infra.NewHostsFile(path)
	w := NewTamperWatcher(WatcherConfig{Interval: testInterval}, hosts, region, zap.NewNop())
	return w, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestTamperWatcher_RepairsRemovedRegion(t *testing.T) {
	original := "127.0.0.1 localhost\n"
	region := hostsblock.Render("0.0.0.0", []string{"example.com"})

	// File starts tampered: region missing entirely.
	w, path := newWatcherFixture(t, original, region)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	deadline := time.After(20 * testInterval)
	for !strings.Contains(readFile(t, path), region) {
		select {
		case <-deadline:
			t.Fatal("watcher did not repair the region within the deadline")
		case <-time.After(testInterval / 2):
		}
	}

	cancel()
	<-done
}

func TestTamperWatcher_LeavesIntactFileAlone(t *testing.T) {
	original := "127.0.0.1 localhost\n"
	region := hostsblock.Render("0.0.0.0", []string{"example.com"})
	w, path := newWatcherFixture(t, original+region, region)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	time.Sleep(5 * testInterval)
	cancel()
	<-done

	if got := readFile(t, path); got != original+region {
		t.Errorf("expected file untouched, got %q", got)
	}
}

func TestTamperWatcher_StopsPromptlyOnCancel(t *testing.T) {
	region := hostsblock.Render("0.0.0.0", []string{"example.com"})
	w, _ := newWatcherFixture(t, "x\n"+region, region)

	// Long interval: cancellation must not wait for a tick.
	w.config.Interval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not observe cancellation promptly")
	}
}

func TestTamperWatcher_SurvivesUnreadableFile(t *testing.T) {
	region := hostsblock.Render("0.0.0.0", []string{"example.com"})
	w, path := newWatcherFixture(t, "x\n"+region, region)

	// Simulate a transiently missing file: the watcher must skip the
	// tick, then repair once the file is back.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	time.Sleep(3 * testInterval)
	if err := os.WriteFile(path, []byte("restored\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(20 * testInterval)
	for !strings.Contains(readFile(t, path), region) {
		select {
		case <-deadline:
			t.Fatal("watcher did not recover after the file came back")
		case <-time.After(testInterval / 2):
		}
	}

	cancel()
	<-done
}

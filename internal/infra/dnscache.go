package infra

import (
	"fmt"
	"os/exec"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

// ResolverCache implements domain.CacheFlusher by invoking the
// platform resolver tool. Best effort: hosts-file changes win
// eventually even without a flush, the flush just makes them
// immediate.
type ResolverCache struct{}

// NewResolverCache creates a resolver cache flusher.
func NewResolverCache() domain.CacheFlusher {
	return &ResolverCache{}
}

// Flush invalidates the systemd-resolved cache.
func (r *ResolverCache) Flush() error {
	out, err := exec.Command("resolvectl", "flush-caches").CombinedOutput()
	if err != nil {
		return fmt.Errorf("resolvectl flush-caches: %v (%s)", err, out)
	}
	return nil
}

// Ensure ResolverCache implements domain.CacheFlusher.
var _ domain.CacheFlusher = (*ResolverCache)(nil)

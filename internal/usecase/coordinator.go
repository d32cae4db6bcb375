package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
	"github.com/eliteGoblin/focusd/net_block/internal/hostsblock"
)

// Coordinator unifies the three termination triggers (timer expiry,
// interrupt, stop) into one teardown that runs at most once. The
// first caller wins; later callers get the stored result.
//
// Teardown order: flip the shared cancellation (stops the watcher),
// wait for the watcher up to a bounded grace period, repair the hosts
// file, then remove the session marker. The marker is removed even
// when the file repair failed: a marker for a session that no longer
// exists is worse than a reported repair failure.
type Coordinator struct {
	cancel      context.CancelFunc
	watcherDone <-chan struct{}
	grace       time.Duration
	hosts       domain.HostsFile
	sessions    domain.SessionStore
	logger      *zap.Logger

	once sync.Once
	err  error
}

// NewCoordinator creates a coordinator bound to one session's watcher
// cancellation and done channel.
func NewCoordinator(
	cancel context.CancelFunc,
	watcherDone <-chan struct{},
	grace time.Duration,
	hosts domain.HostsFile,
	sessions domain.SessionStore,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		cancel:      cancel,
		watcherDone: watcherDone,
		grace:       grace,
		hosts:       hosts,
		sessions:    sessions,
		logger:      logger,
	}
}

// Expire tears down after normal duration expiry, restoring the
// original snapshot verbatim. Expiry assumes the file is in the shape
// the engine wrote; the full restore is both simpler and stronger
// than stripping.
func (c *Coordinator) Expire(snapshot string) error {
	return c.run(func() error {
		return c.hosts.Replace(snapshot)
	})
}

// Teardown tears down after an interrupt or stop, stripping the block
// region from the current content. Strip tolerates watcher-introduced
// duplicates, partial markers and an already absent region, so it is
// safe under any tamper history.
func (c *Coordinator) Teardown() error {
	return c.run(func() error {
		current, err := c.hosts.Read()
		if err != nil {
			return err
		}
		return c.hosts.Replace(hostsblock.Strip(current))
	})
}

func (c *Coordinator) run(repair func() error) error {
	c.once.Do(func() {
		c.cancel()
		c.awaitWatcher()

		if err := repair(); err != nil {
			c.err = &domain.CriticalRestoreError{Path: c.hosts.Path(), Err: err}
			c.logger.Error("CRITICAL: hosts file not restored",
				zap.String("path", c.hosts.Path()),
				zap.Error(err))
		}

		if err := c.sessions.End(); err != nil {
			c.logger.Warn("failed to remove session marker", zap.Error(err))
			if c.err == nil {
				c.err = err
			}
		}
	})
	return c.err
}

// awaitWatcher waits for the watcher goroutine to observe the
// cancellation, bounded by the grace period. A watcher that misses
// the deadline can at worst append one late region, which Strip
// recovers from.
func (c *Coordinator) awaitWatcher() {
	if c.watcherDone == nil {
		return
	}
	select {
	case <-c.watcherDone:
	case <-time.After(c.grace):
		c.logger.Warn("watcher did not stop within grace period")
	}
}

// Package daemon implements the tamper watcher loop and the detached
// background session bootstrap.
package daemon

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

// WatcherConfig holds tamper watcher configuration.
type WatcherConfig struct {
	Interval time.Duration // How often to re-check the hosts file
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Interval: 5 * time.Second,
	}
}

// TamperWatcher re-asserts the block region while a session runs.
// Each tick it reads the hosts file; when the region rendered at
// session start is no longer a verbatim substring, it appends the
// region again. It never strips first: a fully replaced file gets the
// region back in one append, and the small duplicate risk when only
// part of a marker survived is covered by Strip's duplicate tolerance
// at teardown.
//
// The region is fixed at construction. add/remove during a running
// session persist to the config and take effect on the next session.
type TamperWatcher struct {
	config WatcherConfig
	hosts  domain.HostsFile
	region string
	logger *zap.Logger
}

// NewTamperWatcher creates a watcher that keeps region present in the
// hosts file.
func NewTamperWatcher(config WatcherConfig, hosts domain.HostsFile, region string, logger *zap.Logger) *TamperWatcher {
	return &TamperWatcher{
		config: config,
		hosts:  hosts,
		region: region,
		logger: logger,
	}
}

// Run starts the watcher loop. Blocks until ctx is canceled;
// cancellation is observed with sub-tick latency so teardown is never
// stalled by this goroutine.
func (w *TamperWatcher) Run(ctx context.Context) error {
	w.logger.Info("tamper watcher started",
		zap.Duration("interval", w.config.Interval))

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("tamper watcher stopping")
			return ctx.Err()

		case <-ticker.C:
			w.check()
		}
	}
}

// check runs one poll cycle. A read failure skips the tick: the file
// may be transiently locked by an external editor, and crashing the
// watcher over it would end the very protection it provides.
func (w *TamperWatcher) check() {
	current, err := w.hosts.Read()
	if err != nil {
		w.logger.Debug("skipping tick, hosts file unreadable", zap.Error(err))
		return
	}

	if strings.Contains(current, w.region) {
		return
	}

	w.logger.Warn("tamper detected, re-blocking sites",
		zap.String("path", w.hosts.Path()))
	if err := w.hosts.Append(w.region); err != nil {
		w.logger.Error("failed to re-insert block region", zap.Error(err))
	}
}

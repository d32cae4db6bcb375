// Package usecase contains application business logic.
package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/config"
	"github.com/eliteGoblin/focusd/net_block/internal/daemon"
	"github.com/eliteGoblin/focusd/net_block/internal/domain"
	"github.com/eliteGoblin/focusd/net_block/internal/hostsblock"
)

const (
	// defaultGrace bounds how long teardown waits for the watcher to
	// observe cancellation before repairing the file anyway.
	defaultGrace = 500 * time.Millisecond

	stopPollInterval = 50 * time.Millisecond
	stopWaitDeadline = 3 * time.Second
)

// SessionParams configures one RunSession invocation.
type SessionParams struct {
	Duration   time.Duration // 0 = indefinite, runs until stopped
	Background bool          // detached session: no audio cues
}

// Blocker is the block lifecycle engine. It owns the original-content
// snapshot for the session it runs and coordinates insertion, the
// tamper watcher and teardown.
type Blocker struct {
	cfg      *config.Config
	hosts    domain.HostsFile
	sessions domain.SessionStore
	procs    domain.ProcessManager
	history  domain.HistoryStore
	flusher  domain.CacheFlusher
	notifier domain.Notifier
	watcher  daemon.WatcherConfig
	grace    time.Duration
	logger   *zap.Logger
}

// NewBlocker creates a lifecycle engine. History, flusher and
// notifier are optional collaborators wired via the With* methods.
func NewBlocker(
	cfg *config.Config,
	hosts domain.HostsFile,
	sessions domain.SessionStore,
	procs domain.ProcessManager,
	logger *zap.Logger,
) *Blocker {
	return &Blocker{
		cfg:      cfg,
		hosts:    hosts,
		sessions: sessions,
		procs:    procs,
		watcher:  daemon.DefaultWatcherConfig(),
		grace:    defaultGrace,
		logger:   logger,
	}
}

// WithHistory attaches the session history store.
func (b *Blocker) WithHistory(h domain.HistoryStore) *Blocker {
	b.history = h
	return b
}

// WithFlusher attaches the resolver cache flusher.
func (b *Blocker) WithFlusher(f domain.CacheFlusher) *Blocker {
	b.flusher = f
	return b
}

// WithNotifier attaches the audio cue notifier.
func (b *Blocker) WithNotifier(n domain.Notifier) *Blocker {
	b.notifier = n
	return b
}

// WithWatcherConfig overrides the tamper watcher configuration.
func (b *Blocker) WithWatcherConfig(wc daemon.WatcherConfig) *Blocker {
	b.watcher = wc
	return b
}

// WithGrace overrides the teardown grace period.
func (b *Blocker) WithGrace(grace time.Duration) *Blocker {
	b.grace = grace
	return b
}

// RunSession blocks the configured sites and holds the block until
// the duration elapses or ctx is canceled (interrupt/stop). The hosts
// file is back in its unblocked state on every return path except a
// CriticalRestoreError.
func (b *Blocker) RunSession(ctx context.Context, p SessionParams) error {
	if err := b.sessions.EnsureInactive(); err != nil {
		return err
	}

	// Snapshot before any write. Read failure (usually missing sudo)
	// aborts the session with the file untouched.
	snapshot, err := b.hosts.Read()
	if err != nil {
		return err
	}

	region := hostsblock.Render(b.cfg.BlockIP, b.cfg.BlockedSites)

	if hostsblock.IsPresent(snapshot) {
		// A region already exists (double-start race or leftover from
		// a crashed session). Do not insert again; the invariant is
		// at most one region per file.
		b.logger.Info("block region already present, skipping insert")
	} else if err := b.hosts.Append(region); err != nil {
		return err
	}

	if err := b.sessions.Begin(b.procs.CurrentPID()); err != nil {
		// Untracked sessions cannot be stopped; undo the insert and
		// fail. No watcher has run yet, the snapshot is authoritative.
		if rerr := b.hosts.Replace(snapshot); rerr != nil {
			b.logger.Error("failed to undo block insert", zap.Error(rerr))
		}
		return err
	}

	startedAt := time.Now()
	sites := len(b.cfg.BlockedSites)
	if p.Duration > 0 {
		b.logger.Info("blocking sites",
			zap.Int("sites", sites),
			zap.Duration("duration", p.Duration))
	} else {
		b.logger.Info("blocking sites until stopped", zap.Int("sites", sites))
	}

	var historyID int64
	if b.history != nil {
		historyID, err = b.history.RecordStart(startedAt, sites, p.Duration)
		if err != nil {
			b.logger.Warn("failed to record session start", zap.Error(err))
		}
	}

	if b.flusher != nil {
		if err := b.flusher.Flush(); err != nil {
			b.logger.Warn("resolver cache flush failed", zap.Error(err))
		}
	}
	if b.notifier != nil && !p.Background {
		b.notifier.SessionStarted()
	}

	// The watcher gets its own context: the coordinator owns the
	// shared cancellation, whichever trigger fires first.
	wctx, cancelWatcher := context.WithCancel(context.Background())
	defer cancelWatcher()

	watcherDone := make(chan struct{})
	watcher := daemon.NewTamperWatcher(b.watcher, b.hosts, region, b.logger)
	go func() {
		defer close(watcherDone)
		_ = watcher.Run(wctx)
	}()

	co := NewCoordinator(cancelWatcher, watcherDone, b.grace, b.hosts, b.sessions, b.logger)

	var timerC <-chan time.Time
	if p.Duration > 0 {
		timer := time.NewTimer(p.Duration)
		defer timer.Stop()
		timerC = timer.C
	}

	var trigger domain.Trigger
	var endErr error
	select {
	case <-timerC:
		b.logger.Info("session duration elapsed, unblocking sites")
		trigger = domain.TriggerExpiry
		endErr = co.Expire(snapshot)

	case <-ctx.Done():
		b.logger.Info("session interrupted, cleaning up")
		trigger = domain.TriggerInterrupt
		endErr = co.Teardown()
	}

	if b.history != nil && historyID != 0 {
		if err := b.history.RecordEnd(historyID, time.Now(), trigger); err != nil {
			b.logger.Warn("failed to record session end", zap.Error(err))
		}
	}
	if b.notifier != nil && !p.Background {
		b.notifier.SessionEnded()
	}

	return endErr
}

// Stop terminates a session started by another process: kill the
// recorded PID, wait for it to exit, then strip the region and remove
// the marker. Killing first keeps the dying process's own teardown
// from re-writing the file after our cleanup. Also strips a leftover
// region when no session marker exists (crash recovery).
func (b *Blocker) Stop(ctx context.Context) error {
	pid, pidErr := b.sessions.Pid()
	hadSession := pidErr == nil

	if hadSession && pid != b.procs.CurrentPID() && b.procs.IsRunning(pid) {
		b.logger.Info("stopping session process", zap.Int("pid", pid))
		if err := b.procs.Terminate(pid); err != nil {
			b.logger.Warn("failed to signal session process", zap.Error(err))
		}
		b.waitForExit(ctx, pid)
	}

	var restoreErr error
	content, err := b.hosts.Read()
	if err != nil {
		restoreErr = err
	} else if stripped := hostsblock.Strip(content); stripped != content {
		if err := b.hosts.Replace(stripped); err != nil {
			restoreErr = &domain.CriticalRestoreError{Path: b.hosts.Path(), Err: err}
		} else {
			b.logger.Info("sites unblocked")
		}
	}

	// Remove the marker even when the restore failed; a marker for a
	// dead session only blocks the next start.
	if err := b.sessions.End(); err != nil {
		b.logger.Warn("failed to remove session marker", zap.Error(err))
	}

	// The terminated process records its own end; this only closes a
	// row left open by a session that never got to clean up.
	b.closeOrphanedHistory()

	if restoreErr != nil {
		return restoreErr
	}
	if !hadSession {
		return domain.ErrNoActiveSession
	}
	return nil
}

func (b *Blocker) closeOrphanedHistory() {
	if b.history == nil {
		return
	}
	last, err := b.history.Last()
	if err != nil || last == nil || !last.EndedAt.IsZero() {
		return
	}
	if err := b.history.RecordEnd(last.ID, time.Now(), domain.TriggerStop); err != nil {
		b.logger.Warn("failed to close session history row", zap.Error(err))
	}
}

// waitForExit polls the PID until it is gone or the deadline passes.
func (b *Blocker) waitForExit(ctx context.Context, pid int) {
	deadline := time.After(stopWaitDeadline)
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			b.logger.Warn("session process did not exit in time", zap.Int("pid", pid))
			return
		case <-ticker.C:
			if !b.procs.IsRunning(pid) {
				return
			}
		}
	}
}

// Status reports whether a session marker exists and whether the
// block region is present. Stale markers are discarded first, so a
// crashed session reads as not running.
func (b *Blocker) Status() (*domain.Status, error) {
	if _, err := b.sessions.DiscardStale(); err != nil {
		b.logger.Warn("failed to discard stale marker", zap.Error(err))
	}

	status := &domain.Status{Running: b.sessions.Active()}

	content, err := b.hosts.Read()
	if err != nil {
		return nil, err
	}
	status.Blocked = hostsblock.IsPresent(content)

	if b.history != nil {
		if last, err := b.history.Last(); err == nil {
			status.Last = last
		} else {
			b.logger.Warn("failed to read session history", zap.Error(err))
		}
	}
	return status, nil
}

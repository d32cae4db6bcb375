package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

// markerFileName is the session marker inside the log directory.
const markerFileName = "focus.pid"

// MarkerStore implements domain.SessionStore with a PID file.
// Exactly zero or one marker exists; a marker whose PID is dead is
// stale and gets discarded on the next command startup.
type MarkerStore struct {
	path           string
	processManager domain.ProcessManager
	logger         *zap.Logger
}

// NewMarkerStore creates a session store under logDir.
func NewMarkerStore(logDir string, pm domain.ProcessManager, logger *zap.Logger) *MarkerStore {
	return &MarkerStore{
		path:           filepath.Join(logDir, markerFileName),
		processManager: pm,
		logger:         logger,
	}
}

// MarkerPath returns the marker file path.
func (s *MarkerStore) MarkerPath() string {
	return s.path
}

// Pid returns the PID recorded in the marker.
func (s *MarkerStore) Pid() (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, domain.ErrNoActiveSession
		}
		return 0, fmt.Errorf("failed to read session marker: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("session marker %s is corrupt: %w", s.path, err)
	}
	return pid, nil
}

// Active reports whether a marker exists. Liveness is deliberately not
// re-verified: a stale marker keeps reporting active until a command
// startup runs DiscardStale.
func (s *MarkerStore) Active() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// DiscardStale removes a marker whose PID is not running or that
// cannot be parsed. Returns true when a marker was removed.
func (s *MarkerStore) DiscardStale() (bool, error) {
	pid, err := s.Pid()
	if err != nil {
		if err == domain.ErrNoActiveSession {
			return false, nil
		}
		// Unparsable marker: nothing to check liveness against, drop it.
		s.logger.Warn("discarding corrupt session marker", zap.String("path", s.path))
		return true, os.Remove(s.path)
	}

	if s.processManager.IsRunning(pid) {
		return false, nil
	}

	s.logger.Warn("discarding stale session marker",
		zap.String("path", s.path),
		zap.Int("pid", pid))
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove stale marker: %w", err)
	}
	return true, nil
}

// EnsureInactive discards a stale marker and fails with
// ErrAlreadyActive when a live session still holds one.
func (s *MarkerStore) EnsureInactive() error {
	if _, err := s.DiscardStale(); err != nil {
		return err
	}
	if s.Active() {
		return domain.ErrAlreadyActive
	}
	return nil
}

// Begin writes the marker for pid atomically (tmp + rename), so a
// concurrent reader never observes a half-written PID.
func (s *MarkerStore) Begin(pid int) error {
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, pid)
	if err := os.WriteFile(tmpPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write session marker: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit session marker: %w", err)
	}
	return nil
}

// End removes the marker; idempotent.
func (s *MarkerStore) End() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session marker: %w", err)
	}
	return nil
}

// Ensure MarkerStore implements domain.SessionStore.
var _ domain.SessionStore = (*MarkerStore)(nil)

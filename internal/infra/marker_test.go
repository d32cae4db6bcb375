package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

// mockProcessManager is a test double for ProcessManager
type mockProcessManager struct {
	runningPIDs map[int]bool
}

func newMockProcessManager() *mockProcessManager {
	return &mockProcessManager{runningPIDs: make(map[int]bool)}
}

func (m *mockProcessManager) IsRunning(pid int) bool {
	return m.runningPIDs[pid]
}

func (m *mockProcessManager) Terminate(pid int) error {
	delete(m.runningPIDs, pid)
	return nil
}

func (m *mockProcessManager) CurrentPID() int {
	return os.Getpid()
}

func (m *mockProcessManager) SetRunning(pid int, running bool) {
	m.runningPIDs[pid] = running
}

func newTestStore(t *testing.T) (*MarkerStore, *mockProcessManager) {
	t.Helper()
	pm := newMockProcessManager()
	return NewMarkerStore(t.TempDir(), pm, zap.NewNop()), pm
}

func TestMarkerStore_BeginAndPid(t *testing.T) {
	store, _ := newTestStore(t)

	if store.Active() {
		t.Fatal("expected no marker before Begin")
	}

	if err := store.Begin(12345); err != nil {
		t.Fatalf("failed to begin session: %v", err)
	}

	if !store.Active() {
		t.Error("expected marker after Begin")
	}

	pid, err := store.Pid()
	if err != nil {
		t.Fatalf("failed to read pid: %v", err)
	}
	if pid != 12345 {
		t.Errorf("expected pid 12345, got %d", pid)
	}
}

func TestMarkerStore_PidWithoutMarker(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Pid()
	if !errors.Is(err, domain.ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestMarkerStore_EnsureInactive_LiveSession(t *testing.T) {
	store, pm := newTestStore(t)

	if err := store.Begin(12345); err != nil {
		t.Fatal(err)
	}
	pm.SetRunning(12345, true)

	if err := store.EnsureInactive(); !errors.Is(err, domain.ErrAlreadyActive) {
		t.Errorf("expected ErrAlreadyActive, got %v", err)
	}

	// The live marker must survive the check.
	if !store.Active() {
		t.Error("expected live marker to remain")
	}
}

func TestMarkerStore_EnsureInactive_StaleMarker(t *testing.T) {
	store, pm := newTestStore(t)

	if err := store.Begin(12345); err != nil {
		t.Fatal(err)
	}
	pm.SetRunning(12345, false)

	if err := store.EnsureInactive(); err != nil {
		t.Fatalf("expected stale marker to be discarded, got %v", err)
	}

	if store.Active() {
		t.Error("expected stale marker to be removed")
	}
}

func TestMarkerStore_DiscardStale_CorruptMarker(t *testing.T) {
	pm := newMockProcessManager()
	dir := t.TempDir()
	store := NewMarkerStore(dir, pm, zap.NewNop())

	if err := os.WriteFile(filepath.Join(dir, "focus.pid"), []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}

	removed, err := store.DiscardStale()
	if err != nil {
		t.Fatalf("failed to discard corrupt marker: %v", err)
	}
	if !removed {
		t.Error("expected corrupt marker to be discarded")
	}
	if store.Active() {
		t.Error("expected marker file to be gone")
	}
}

func TestMarkerStore_EndIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Begin(12345); err != nil {
		t.Fatal(err)
	}

	if err := store.End(); err != nil {
		t.Fatalf("first End failed: %v", err)
	}
	if err := store.End(); err != nil {
		t.Fatalf("second End failed: %v", err)
	}
	if store.Active() {
		t.Error("expected marker to be removed")
	}
}

func TestMarkerStore_MarkerContent(t *testing.T) {
	pm := newMockProcessManager()
	dir := t.TempDir()
	store := NewMarkerStore(dir, pm, zap.NewNop())

	if err := store.Begin(4242); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "focus.pid"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4242" {
		t.Errorf("expected marker content %q, got %q", "4242", string(data))
	}
}

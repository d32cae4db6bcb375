package infra

import (
	"fmt"
	"os"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

// HostsFileImpl implements domain.HostsFile over one file path.
// Writes are either pure appends or full replaces; the file is shared
// with external editors, so failures surface verbatim instead of
// being retried.
type HostsFileImpl struct {
	path string
}

// NewHostsFile creates an accessor for the hosts file at path.
func NewHostsFile(path string) domain.HostsFile {
	return &HostsFileImpl{path: path}
}

// Path returns the underlying file path.
func (h *HostsFileImpl) Path() string {
	return h.path
}

// Read returns the full current content.
func (h *HostsFileImpl) Read() (string, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", h.path, err)
	}
	return string(data), nil
}

// Append writes text at the end of the file.
func (h *HostsFileImpl) Append(text string) error {
	f, err := os.OpenFile(h.path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", h.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("failed to append to %s: %w", h.path, err)
	}
	return nil
}

// Replace overwrites the whole file with text, keeping the
// world-readable mode resolvers expect.
func (h *HostsFileImpl) Replace(text string) error {
	if err := os.WriteFile(h.path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", h.path, err)
	}
	return nil
}

// Ensure HostsFileImpl implements domain.HostsFile.
var _ domain.HostsFile = (*HostsFileImpl)(nil)

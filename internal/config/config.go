// Package config loads and saves the persisted TOML configuration.
// The blocking core only consumes the in-memory record; the add and
// remove commands are the sole writers.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

// DefaultPath is where the configuration lives unless overridden.
const DefaultPath = "/usr/local/etc/focus/config.toml"

// Config is the persisted configuration record.
type Config struct {
	HostsPath     string   `toml:"hosts_path"`
	BlockIP       string   `toml:"block_ip"`
	BlockedSites  []string `toml:"blocked_sites"`
	Duration      uint     `toml:"duration"` // minutes, 0 = indefinite
	DataDirectory string   `toml:"data_directory"`
	LogDirectory  string   `toml:"log_directory"`
	StartAudio    string   `toml:"start_audio"`
	EndAudio      string   `toml:"end_audio"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		HostsPath:     "/etc/hosts",
		BlockIP:       "0.0.0.0",
		BlockedSites:  []string{},
		Duration:      25,
		DataDirectory: "/usr/local/share/focus",
		LogDirectory:  "/var/tmp",
		StartAudio:    "start.mp3",
		EndAudio:      "end.mp3",
	}
}

// Load reads the configuration from path. A missing file yields the
// defaults (first run); a file that cannot be parsed is fatal.
func Load(path string) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfigInvalid, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %q in %s", domain.ErrConfigInvalid, undecoded[0].String(), path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the blocking core depends on.
func (c *Config) Validate() error {
	if c.HostsPath == "" {
		return fmt.Errorf("%w: hosts_path is empty", domain.ErrConfigInvalid)
	}
	if net.ParseIP(c.BlockIP) == nil {
		return fmt.Errorf("%w: block_ip %q is not an IP address", domain.ErrConfigInvalid, c.BlockIP)
	}
	if c.LogDirectory == "" {
		return fmt.Errorf("%w: log_directory is empty", domain.ErrConfigInvalid)
	}
	if c.DataDirectory == "" {
		return fmt.Errorf("%w: data_directory is empty", domain.ErrConfigInvalid)
	}
	return nil
}

// Save re-renders the configuration as TOML and writes it with
// restrictive permissions, creating the directory on first save.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// AddSites appends sites to the blocked list. Duplicates are
// permitted; insertion order has no blocking significance.
func (c *Config) AddSites(sites []string) {
	c.BlockedSites = append(c.BlockedSites, sites...)
}

// RemoveSites filters the given sites out of the blocked list.
func (c *Config) RemoveSites(sites []string) {
	drop := make(map[string]bool, len(sites))
	for _, s := range sites {
		drop[s] = true
	}

	kept := c.BlockedSites[:0]
	for _, s := range c.BlockedSites {
		if !drop[s] {
			kept = append(kept, s)
		}
	}
	c.BlockedSites = kept
}

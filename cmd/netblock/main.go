// Package main is the CLI entry point for netblock.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/net_block/internal/config"
	"github.com/eliteGoblin/focusd/net_block/internal/daemon"
	"github.com/eliteGoblin/focusd/net_block/internal/domain"
	"github.com/eliteGoblin/focusd/net_block/internal/infra"
	"github.com/eliteGoblin/focusd/net_block/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var (
	infoLine = color.New(color.FgCyan, color.Bold)
	okLine   = color.New(color.FgGreen, color.Bold)
	warnLine = color.New(color.FgYellow, color.Bold)
	failLine = color.New(color.FgRed, color.Bold)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		failLine.Fprintf(os.Stderr, "[!] %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "netblock",
	Short: "Temporarily block distracting sites via the hosts file",
	Long: `netblock appends a marker-delimited block region to the hosts file,
keeps it in place with a tamper watcher for the configured duration,
and restores the file when the session ends.

Editing the hosts file usually needs sudo.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStart,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a blocking session",
	Long: `Starts a blocking session: snapshots the hosts file, inserts the
block region, and holds it until the duration elapses or 'netblock stop'.
With --background the session runs detached from the terminal.`,
	RunE: runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active blocking session",
	Long: `Terminates the session process recorded in the PID marker, strips
the block region from the hosts file, and removes the marker. Also
cleans up a leftover region when no session is running.`,
	RunE: runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is running and sites are blocked",
	RunE:  runStatus,
}

var addCmd = &cobra.Command{
	Use:   "add <site>...",
	Short: "Add sites to the blocked list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove <site>...",
	Short: "Remove sites from the blocked list",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

// Hidden daemon command - the detached process spawned by --background
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	flagConfig     string
	flagDuration   uint
	flagBackground bool
	flagHostsPath  string
	flagAddSites   []string
	jsonOutput     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultPath, "Config file path")

	for _, c := range []*cobra.Command{rootCmd, startCmd, daemonCmd} {
		c.Flags().UintVarP(&flagDuration, "duration", "d", 0, "Session duration in minutes (0 = until stopped)")
		c.Flags().StringVarP(&flagHostsPath, "path", "p", "", "Hosts file path override")
	}
	for _, c := range []*cobra.Command{rootCmd, startCmd} {
		c.Flags().BoolVarP(&flagBackground, "background", "b", false, "Run the session detached in the background")
		c.Flags().StringSliceVarP(&flagAddSites, "add", "a", nil, "Extra sites to block (persisted)")
	}
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

// loadConfig loads the persisted config and applies CLI overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagHostsPath != "" {
		cfg.HostsPath = flagHostsPath
	}
	if cmd.Flags().Changed("duration") {
		cfg.Duration = flagDuration
	}
	return cfg, nil
}

// buildBlocker wires the lifecycle engine with its infra collaborators.
func buildBlocker(cfg *config.Config, logger *zap.Logger) (*usecase.Blocker, func()) {
	pm := infra.NewProcessManager()
	hosts := infra.NewHostsFile(cfg.HostsPath)
	sessions := infra.NewMarkerStore(cfg.LogDirectory, pm, logger)

	blocker := usecase.NewBlocker(cfg, hosts, sessions, pm, logger).
		WithFlusher(infra.NewResolverCache()).
		WithNotifier(infra.NewAudioNotifier(cfg.DataDirectory, cfg.StartAudio, cfg.EndAudio, logger))

	cleanup := func() {}
	history, err := infra.NewHistoryStore(cfg.DataDirectory)
	if err != nil {
		// Sessions still work without history, status just loses the
		// last-session line.
		logger.Warn("session history unavailable", zap.Error(err))
	} else {
		blocker.WithHistory(history)
		cleanup = func() { _ = history.Close() }
	}
	return blocker, cleanup
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if len(flagAddSites) > 0 {
		cfg.AddSites(flagAddSites)
		if err := cfg.Save(flagConfig); err != nil {
			warnLine.Printf("[!] Could not persist added sites: %v\n", err)
		}
	}

	if flagBackground {
		infoLine.Println("[>] Moving to background...")
		pid, err := daemon.StartBackgroundSession(flagConfig, flagHostsPath, cfg.LogDirectory, cfg.Duration)
		if err != nil {
			return err
		}
		okLine.Printf("[+] Session running in background (pid %d)\n", pid)
		return nil
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	return runSession(cfg, logger, false)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogDirectory)
	defer func() { _ = logger.Sync() }()

	return runSession(cfg, logger, true)
}

// runSession drives one blocking session in this process, foreground
// or detached. SIGINT/SIGTERM cancel the context; the engine's
// termination coordinator does the actual cleanup.
func runSession(cfg *config.Config, logger *zap.Logger, background bool) error {
	blocker, cleanup := buildBlocker(cfg, logger)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	duration := time.Duration(cfg.Duration) * time.Minute
	if !background {
		if duration > 0 {
			infoLine.Printf("[>] Blocking sites for %d minutes\n", cfg.Duration)
		} else {
			infoLine.Println("[>] Blocking sites until you unblock them")
		}
	}

	err := blocker.RunSession(ctx, usecase.SessionParams{
		Duration:   duration,
		Background: background,
	})
	if err != nil {
		var restoreErr *domain.CriticalRestoreError
		if errors.As(err, &restoreErr) {
			failLine.Fprintf(os.Stderr, "[!] CRITICAL: hosts file not restored, fix manually at %s\n", restoreErr.Path)
		}
		return err
	}

	if !background {
		infoLine.Println("[>] Session ended, sites unblocked")
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	blocker, cleanup := buildBlocker(cfg, logger)
	defer cleanup()

	infoLine.Println("[>] Stopping session...")
	err = blocker.Stop(cmd.Context())
	if errors.Is(err, domain.ErrNoActiveSession) {
		warnLine.Println("[!] No active focus session found to stop")
		return nil
	}
	if err != nil {
		return err
	}

	okLine.Println("[+] Session stopped, sites unblocked")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	blocker, cleanup := buildBlocker(cfg, logger)
	defer cleanup()

	status, err := blocker.Status()
	if err != nil {
		return err
	}

	if status.Running {
		okLine.Println("[+] Focus is running")
	} else {
		okLine.Println("[+] Focus is not running")
	}
	if status.Blocked {
		okLine.Println("[+] Sites are blocked")
	} else {
		okLine.Println("[+] Sites are not blocked")
	}

	if status.Last != nil {
		if status.Last.EndedAt.IsZero() {
			fmt.Printf("    Last session: started %s (%d sites)\n",
				status.Last.StartedAt.Format(time.RFC822), status.Last.Sites)
		} else {
			fmt.Printf("    Last session: %s, ended %s by %s (%d sites)\n",
				status.Last.StartedAt.Format(time.RFC822),
				status.Last.EndedAt.Format(time.RFC822),
				status.Last.Trigger, status.Last.Sites)
		}
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cfg.AddSites(args)
	if err := cfg.Save(flagConfig); err != nil {
		return err
	}

	okLine.Printf("[+] Added %d site(s), %d blocked in total\n", len(args), len(cfg.BlockedSites))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	before := len(cfg.BlockedSites)
	cfg.RemoveSites(args)
	if err := cfg.Save(flagConfig); err != nil {
		return err
	}

	okLine.Printf("[+] Removed %d site(s), %d remain\n", before-len(cfg.BlockedSites), len(cfg.BlockedSites))
	return nil
}

func createLogger(logDir string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(logDir, "netblock.log")}
	cfg.ErrorOutputPaths = []string{filepath.Join(logDir, "netblock.error.log")}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("netblock %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}

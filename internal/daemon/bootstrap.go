package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
)

// Background session artifacts inside the log directory.
const (
	stdoutFileName = "focus.out"
	stderrFileName = "focus.err"
)

// StartBackgroundSession re-execs the binary as a detached process
// running the hidden `daemon` command, which carries the session in
// the background. Standard streams go to log files; the child runs in
// its own session so it survives the terminal.
// Returns the child PID.
func StartBackgroundSession(configPath, hostsPath, logDir string, duration uint) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	stdout, err := os.Create(filepath.Join(logDir, stdoutFileName))
	if err != nil {
		return 0, fmt.Errorf("failed to create stdout log: %w", err)
	}
	stderr, err := os.Create(filepath.Join(logDir, stderrFileName))
	if err != nil {
		stdout.Close()
		return 0, fmt.Errorf("failed to create stderr log: %w", err)
	}
	defer stdout.Close()
	defer stderr.Close()

	args := []string{"daemon", "--duration", strconv.FormatUint(uint64(duration), 10)}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	if hostsPath != "" {
		args = append(args, "--path", hostsPath)
	}

	cmd := exec.Command(executable, args...)

	// Detach from the terminal session
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to spawn background session: %w", err)
	}
	return cmd.Process.Pid, nil
}

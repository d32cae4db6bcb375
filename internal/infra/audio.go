package infra

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/domain"
)

// players are tried in order; the first one on PATH wins. All of them
// exit on their own after playback.
var players = [][]string{
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpv", "--no-video", "--really-quiet"},
	{"paplay"},
}

// AudioNotifier implements domain.Notifier by shelling out to a
// system audio player. Everything here is best effort: a missing
// player or audio device never affects the blocking session.
type AudioNotifier struct {
	startPath string
	endPath   string
	logger    *zap.Logger
}

// NewAudioNotifier creates a notifier for the start/end cues under
// dataDir.
func NewAudioNotifier(dataDir, startFile, endFile string, logger *zap.Logger) domain.Notifier {
	return &AudioNotifier{
		startPath: filepath.Join(dataDir, startFile),
		endPath:   filepath.Join(dataDir, endFile),
		logger:    logger,
	}
}

// SessionStarted plays the start cue.
func (n *AudioNotifier) SessionStarted() {
	n.play(n.startPath)
}

// SessionEnded plays the end cue.
func (n *AudioNotifier) SessionEnded() {
	n.play(n.endPath)
}

func (n *AudioNotifier) play(path string) {
	if _, err := os.Stat(path); err != nil {
		n.logger.Debug("audio cue missing", zap.String("path", path))
		return
	}

	ensureRuntimeDir()

	for _, player := range players {
		bin, err := exec.LookPath(player[0])
		if err != nil {
			continue
		}
		args := append(append([]string{}, player[1:]...), path)
		if err := exec.Command(bin, args...).Run(); err != nil {
			n.logger.Debug("audio playback failed",
				zap.String("player", player[0]),
				zap.Error(err))
			continue
		}
		return
	}
	n.logger.Debug("no audio player available")
}

// ensureRuntimeDir points PulseAudio at the invoking user's runtime
// directory when the tool runs under sudo.
func ensureRuntimeDir() {
	if os.Getenv("XDG_RUNTIME_DIR") != "" {
		return
	}
	if uid := os.Getenv("SUDO_UID"); uid != "" {
		os.Setenv("XDG_RUNTIME_DIR", fmt.Sprintf("/run/user/%s", uid))
	}
}

// Ensure AudioNotifier implements domain.Notifier.
var _ domain.Notifier = (*AudioNotifier)(nil)

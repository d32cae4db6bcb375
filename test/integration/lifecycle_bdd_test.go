//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/net_block/internal/config"
	"github.com/eliteGoblin/focusd/net_block/internal/daemon"
	"github.com/eliteGoblin/focusd/net_block/internal/hostsblock"
	"github.com/eliteGoblin/focusd/net_block/internal/infra"
	"github.com/eliteGoblin/focusd/net_block/internal/usecase"
)

var _ = Describe("Block lifecycle", func() {
	const original = "127.0.0.1 localhost\n"

	var (
		dir       string
		hostsPath string
		cfg       *config.Config
		blocker   *usecase.Blocker
	)

	readHosts := func() string {
		data, err := os.ReadFile(hostsPath)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		hostsPath = filepath.Join(dir, "hosts")
		Expect(os.WriteFile(hostsPath, []byte(original), 0644)).To(Succeed())

		cfg = config.Default()
		cfg.HostsPath = hostsPath
		cfg.BlockedSites = []string{"example.com", "test.com"}
		cfg.LogDirectory = dir
		cfg.DataDirectory = dir

		logger := zap.NewNop()
		pm := infra.NewProcessManager()
		hosts := infra.NewHostsFile(hostsPath)
		sessions := infra.NewMarkerStore(dir, pm, logger)

		history, err := infra.NewHistoryStore(dir)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(history.Close)

		blocker = usecase.NewBlocker(cfg, hosts, sessions, pm, logger).
			WithHistory(history).
			WithWatcherConfig(daemon.WatcherConfig{Interval: 20 * time.Millisecond}).
			WithGrace(200 * time.Millisecond)
	})

	It("blocks for the duration and restores the file byte-for-byte", func() {
		region := hostsblock.Render(cfg.BlockIP, cfg.BlockedSites)

		done := make(chan error, 1)
		go func() {
			done <- blocker.RunSession(context.Background(), usecase.SessionParams{Duration: 300 * time.Millisecond})
		}()

		Eventually(readHosts, "200ms", "10ms").Should(Equal(original + region))
		Eventually(done, "2s").Should(Receive(BeNil()))
		Expect(readHosts()).To(Equal(original))
	})

	It("repairs external tampering within one watcher interval", func() {
		done := make(chan error, 1)
		go func() {
			done <- blocker.RunSession(context.Background(), usecase.SessionParams{Duration: time.Second})
		}()

		Eventually(func() bool {
			return hostsblock.IsPresent(readHosts())
		}, "500ms", "10ms").Should(BeTrue())

		// External tamper: put the file back to its unblocked state.
		Expect(os.WriteFile(hostsPath, []byte(original), 0644)).To(Succeed())

		Eventually(func() bool {
			return hostsblock.IsPresent(readHosts())
		}, "500ms", "10ms").Should(BeTrue(), "watcher should re-insert the region")

		Eventually(done, "2s").Should(Receive(BeNil()))
		Expect(readHosts()).To(Equal(original))
	})

	It("strips cleanly after a tamper-and-repair history", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- blocker.RunSession(ctx, usecase.SessionParams{}) // indefinite
		}()

		Eventually(func() bool {
			return hostsblock.IsPresent(readHosts())
		}, "500ms", "10ms").Should(BeTrue())

		// Replace the whole file so the watcher appends a fresh region
		// on top of foreign content.
		Expect(os.WriteFile(hostsPath, []byte(original+"# someone else's edit\n"), 0644)).To(Succeed())
		Eventually(func() bool {
			return hostsblock.IsPresent(readHosts())
		}, "500ms", "10ms").Should(BeTrue())

		cancel()
		Eventually(done, "2s").Should(Receive(BeNil()))

		content := readHosts()
		Expect(content).NotTo(ContainSubstring(hostsblock.BeginMarker))
		Expect(content).NotTo(ContainSubstring(hostsblock.EndMarker))
		Expect(content).To(HavePrefix(original))
	})

	It("records the session in history", func() {
		Expect(blocker.RunSession(context.Background(), usecase.SessionParams{Duration: 50 * time.Millisecond})).To(Succeed())

		status, err := blocker.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Running).To(BeFalse())
		Expect(status.Blocked).To(BeFalse())
		Expect(status.Last).NotTo(BeNil())
		Expect(status.Last.Sites).To(Equal(2))
		Expect(status.Last.EndedAt.IsZero()).To(BeFalse())
	})
})

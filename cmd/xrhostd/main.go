// Command xrhostd is a reference embedding shell: it loads a config file,
// constructs a Host, and drives its frame loop — a smoke-test harness
// analogous to the teacher's own debug CLI, not a production embedder.
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/webxrhost/runtime/applog"
	"github.com/webxrhost/runtime/config"
	"github.com/webxrhost/runtime/content"
	"github.com/webxrhost/runtime/hive"
	"github.com/webxrhost/runtime/hostapi"
	"github.com/webxrhost/runtime/xrdevice"
)

// randomSessionID draws a uint32 from crypto/rand, the source
// xrdevice.Device uses to allocate XR session ids (device.go's
// RequestSession retries on collision, so a cheap non-cryptographic
// property here is fine, but a real entropy source is still required).
func randomSessionID() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 1
	}
	return binary.LittleEndian.Uint32(b[:])
}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "xrhostd",
	Short: "Reference embedding shell for the WebXR host runtime",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load config, start the hive daemon, and drive the frame loop",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("xrhostd v0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml/json/toml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() {
	logger := applog.Default("xrhostd")
	ctx := applog.Bind(context.Background(), logger)

	loader := config.NewLoader(cfgFile)
	if err := loader.BindFlags(runCmd.Flags()); err != nil {
		applog.Err(ctx, err, "failed to bind flags")
		os.Exit(1)
	}
	shellCfg, err := loader.Load()
	if err != nil {
		applog.Err(ctx, err, "failed to load config")
		os.Exit(1)
	}

	var daemon *hive.Daemon
	if shellCfg.HiveBinaryPath != "" {
		daemon = hive.New(shellCfg.HiveBinaryPath, shellCfg.ToHiveStartupConfig(),
			func(ev hive.OnExitEvent) {
				applog.W(ctx, "hive daemon exited: document=%d code=%d", ev.DocumentID, ev.ExitCode)
			},
			func(ev hive.OnLogEntryEvent) {
				applog.I(ctx, "[hive pid=%d] %s", ev.Pid, ev.Text)
			})
		if err := daemon.Start(ctx); err != nil {
			applog.Err(ctx, err, "failed to start hive daemon")
			os.Exit(1)
		}
		defer daemon.Kill()
	}

	device := xrdevice.New(randomSessionID)
	manager := content.NewManager(daemon, shellCfg.PreWarmEnabled)
	host := hostapi.New(shellCfg.ToHostConfig(), device, manager)

	loader.WatchForChanges(func(updated config.ShellConfig) {
		applog.I(ctx, "config reloaded: stereo_mode=%s event_port=%d", updated.StereoMode, updated.EventPort)
	})

	applog.I(ctx, "xrhostd running (xr_supported=%v prewarm=%v)", shellCfg.IsXRSupported, shellCfg.PreWarmEnabled)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			host.OnFrame(ctx)
		case <-sigCh:
			applog.I(ctx, "xrhostd shutting down")
			return
		}
	}
}

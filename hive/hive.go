// Package hive supervises the hive daemon (L5): a forked child process
// that in turn forks one child per open document. The host talks to it
// over a hive-command channel and tails its stdout/stderr (§4.6). Daemon
// exit is reported by PollExit, and content.Manager relaunches the daemon
// when it sees one. Missed heartbeats are only counted (the heartbeat
// supplement in SPEC_FULL.md §11.1): RecordHeartbeatMiss reports when the
// respawn threshold is reached, and this package neither sends pings nor
// respawns the daemon on that report.
package hive

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/webxrhost/runtime/applog"
)

// StartupConfig is the JSON blob passed to the daemon at exec time via
// --hive <json>, naming every channel port and the XR configuration.
type StartupConfig struct {
	EventPort         int    `json:"eventPort"`
	FrameRequestPort  int    `json:"frameRequestPort"`
	MediaCommandPort  int    `json:"mediaCommandPort"`
	CommandBufferPort int    `json:"commandBufferPort"`
	HiveCommandPort   int    `json:"hiveCommandPort"`
	XRCommandPort     int    `json:"xrCommandPort"`
	StereoMode        string `json:"stereoMode"`
	ZoneFileDir       string `json:"zoneFileDir"`
}

// CreateClientRequest asks the daemon to fork and exec a new document
// process.
type CreateClientRequest struct {
	DocumentID    uint32 `json:"documentId"`
	URL           string `json:"url"`
	DisableCache  bool   `json:"disableCache"`
	IsPreview     bool   `json:"isPreview"`
	RunScripts    bool   `json:"runScripts"`
}

// CreateClientResponse carries the new document process's pid.
type CreateClientResponse struct {
	DocumentID uint32 `json:"documentId"`
	Pid        int    `json:"pid"`
	Ok         bool   `json:"ok"`
}

// TerminateClientRequest asks the daemon to SIGKILL a document's child.
type TerminateClientRequest struct {
	DocumentID uint32 `json:"documentId"`
}

// TerminateClientResponse reports whether a matching pid was found.
type TerminateClientResponse struct {
	DocumentID uint32 `json:"documentId"`
	Found      bool   `json:"found"`
}

// OnExitEvent is streamed when a document child terminates.
type OnExitEvent struct {
	DocumentID uint32 `json:"documentId"`
	ExitCode   int    `json:"exitCode"`
}

// OnLogEntryEvent is one batched line of a document's stdout/stderr.
type OnLogEntryEvent struct {
	DocumentID uint32    `json:"documentId"`
	Pid        int       `json:"pid"`
	Level      string    `json:"level"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// maxMissedHeartbeats is the number of consecutive missed pongs at which
// RecordHeartbeatMiss reports that a respawn is due, per SPEC_FULL.md §11.1.
const maxMissedHeartbeats = 3

// Daemon supervises one hive child process: it launches the bundled
// client binary in hive mode, tails its output, and watches for exit or a
// stuck heartbeat.
type Daemon struct {
	binaryPath string
	config     StartupConfig

	mu              sync.Mutex
	cmd             *exec.Cmd
	exitCh          chan int
	missedHeartbeats int

	onExit    func(OnExitEvent)
	onLogLine func(OnLogEntryEvent)
}

// New constructs a Daemon that will exec binaryPath with config when
// Start is called.
func New(binaryPath string, config StartupConfig, onExit func(OnExitEvent), onLogLine func(OnLogEntryEvent)) *Daemon {
	return &Daemon{binaryPath: binaryPath, config: config, onExit: onExit, onLogLine: onLogLine}
}

// Start execs the daemon binary with --hive <json>, tailing its output on
// background goroutines. It returns once the process has been started
// (not once OnServerReady has been observed — that arrives asynchronously
// over the hive-command channel).
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	blob, err := json.Marshal(d.config)
	if err != nil {
		return errors.Wrap(err, "hive: marshal startup config")
	}

	cmd := exec.CommandContext(ctx, d.binaryPath, "--hive", string(blob))
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "hive: stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(err, "hive: stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "hive: start daemon")
	}

	d.cmd = cmd
	d.exitCh = make(chan int, 1)
	d.missedHeartbeats = 0

	pid := cmd.Process.Pid
	go d.tail(stdout, pid, "info")
	go d.tail(stderr, pid, "error")
	go d.wait(cmd)

	applog.I(ctx, "hive: daemon started pid=%d", pid)
	return nil
}

func (d *Daemon) tail(r io.Reader, pid int, level string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if d.onLogLine != nil {
			d.onLogLine(OnLogEntryEvent{Pid: pid, Level: level, Text: scanner.Text(), Timestamp: time.Now()})
		}
	}
}

func (d *Daemon) wait(cmd *exec.Cmd) {
	err := cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	d.exitCh <- code
}

// Pid returns the current daemon process id, or 0 if not running.
func (d *Daemon) Pid() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd == nil || d.cmd.Process == nil {
		return 0
	}
	return d.cmd.Process.Pid
}

// PollExit reports whether the daemon has exited since the last call,
// matching the host's periodic waitpid(daemonPid, WNOHANG) check; it is
// non-blocking.
func (d *Daemon) PollExit() (exited bool, code int) {
	d.mu.Lock()
	ch := d.exitCh
	d.mu.Unlock()
	if ch == nil {
		return false, 0
	}
	select {
	case code := <-ch:
		return true, code
	default:
		return false, 0
	}
}

// RecordHeartbeatMiss increments the missed-heartbeat counter; it returns
// true once the counter reaches the respawn threshold (reset by
// RecordHeartbeatSeen).
func (d *Daemon) RecordHeartbeatMiss() (shouldRespawn bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.missedHeartbeats++
	return d.missedHeartbeats >= maxMissedHeartbeats
}

// RecordHeartbeatSeen resets the missed-heartbeat counter after a Pong.
func (d *Daemon) RecordHeartbeatSeen() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.missedHeartbeats = 0
}

// Kill terminates the daemon process, if running.
func (d *Daemon) Kill() error {
	d.mu.Lock()
	cmd := d.cmd
	d.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

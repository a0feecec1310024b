package hive

import (
	"os/exec"
	"testing"
	"time"
)

func TestDaemonWaitReportsExitCode(t *testing.T) {
	shPath, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	cmd := exec.Command(shPath, "-c", "exit 3")
	d := &Daemon{exitCh: make(chan int, 1)}
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	go d.wait(cmd)

	select {
	case code := <-d.exitCh:
		if code != 3 {
			t.Fatalf("expected exit code 3, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for exit")
	}
}

func TestHeartbeatRespawnThreshold(t *testing.T) {
	d := &Daemon{}
	for i := 0; i < maxMissedHeartbeats-1; i++ {
		if d.RecordHeartbeatMiss() {
			t.Fatalf("should not respawn before %d misses", maxMissedHeartbeats)
		}
	}
	if !d.RecordHeartbeatMiss() {
		t.Fatalf("expected respawn signal at %d consecutive misses", maxMissedHeartbeats)
	}
}

func TestHeartbeatSeenResetsCounter(t *testing.T) {
	d := &Daemon{}
	d.RecordHeartbeatMiss()
	d.RecordHeartbeatMiss()
	d.RecordHeartbeatSeen()
	if d.RecordHeartbeatMiss() {
		t.Fatalf("counter should have reset after a seen heartbeat")
	}
}

func TestPollExitIsNonBlockingBeforeExit(t *testing.T) {
	d := &Daemon{exitCh: make(chan int, 1)}
	exited, _ := d.PollExit()
	if exited {
		t.Fatalf("expected no exit reported before process has exited")
	}
}

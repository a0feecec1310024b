package content

import (
	"context"
	"testing"
	"time"
)

func TestOpenAssignsFreshRuntimeAndClosePassesTwoPhases(t *testing.T) {
	m := NewManager(nil, false)
	r := m.Open("file:///a.xsml", DocumentRequestInit{ID: 1})
	if r.DocumentID != 1 {
		t.Fatalf("expected runtime assigned document id 1, got %d", r.DocumentID)
	}

	if !m.Close(1) {
		t.Fatalf("expected Close to find the runtime")
	}
	// Still observable for the remainder of this tick (two-phase).
	found := false
	for _, rt := range m.Runtimes() {
		if rt.DocumentID == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected runtime still observable before the sweep")
	}

	m.Tick(context.Background())
	for _, rt := range m.Runtimes() {
		if rt.DocumentID == 1 {
			t.Fatalf("expected runtime removed after one sweep")
		}
	}
}

func TestOpenReusesFreeRuntimeBeforeCreatingNew(t *testing.T) {
	m := NewManager(nil, true)
	fakeNow := time.Unix(1000, 0)
	m.clock = func() time.Time { return fakeNow }

	m.Tick(context.Background()) // schedules a pre-warm since nothing ever ran
	runtimes := m.Runtimes()
	if len(runtimes) != 1 || runtimes[0].DocumentID != 0 {
		t.Fatalf("expected exactly one free pre-warmed runtime, got %+v", runtimes)
	}

	r := m.Open("file:///b.xsml", DocumentRequestInit{ID: 7})
	if r != runtimes[0] {
		t.Fatalf("expected Open to reuse the pre-warmed runtime instead of creating a new one")
	}
}

func TestPreWarmWaitsThreeSecondsAfterLastClose(t *testing.T) {
	m := NewManager(nil, true)
	fakeNow := time.Unix(1000, 0)
	m.clock = func() time.Time { return fakeNow }

	m.Open("file:///a.xsml", DocumentRequestInit{ID: 1})
	m.Close(1)
	m.Tick(context.Background()) // sweeps the closed runtime; too soon for pre-warm

	if len(m.Runtimes()) != 0 {
		t.Fatalf("expected no runtime immediately after close, got %d", len(m.Runtimes()))
	}

	fakeNow = fakeNow.Add(3 * time.Second)
	m.Tick(context.Background())
	runtimes := m.Runtimes()
	if len(runtimes) != 1 {
		t.Fatalf("expected exactly one pre-warmed runtime after the delay, got %d", len(runtimes))
	}
}

func TestRPCCorrelatesByMessageID(t *testing.T) {
	m := NewManager(nil, false)
	ch := m.AwaitRPC(42)
	m.DispatchRPC(RpcResponse{MessageID: 42, Success: true, Message: "ok"})

	select {
	case resp := <-ch:
		if resp.MessageID != 42 || !resp.Success {
			t.Fatalf("unexpected response: %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for correlated RPC response")
	}
}

package content

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/webxrhost/runtime/applog"
	"github.com/webxrhost/runtime/hive"
)

// preWarmDelay is how long the manager waits after the last document
// closes before forking a new idle pre-warmed runtime (§4.5, §8 property
// 9).
const preWarmDelay = 3 * time.Second

// Manager holds the set of ContentRuntimes under a reader-writer lock and
// owns pre-warm bookkeeping and pending RPC correlation. It does not own
// the channel servers, and it has no onNewClient hook: connections from
// document processes are not routed through it.
type Manager struct {
	mu       sync.RWMutex
	runtimes []*ContentRuntime
	nextID   uint32

	preWarmEnabled bool
	lastCloseAt    time.Time
	clock          func() time.Time

	daemon *hive.Daemon

	pendingRPC map[uint32]chan RpcResponse
	rpcMu      sync.Mutex
}

// NewManager constructs an empty manager. daemon may be nil in tests that
// don't exercise hive interaction.
func NewManager(daemon *hive.Daemon, preWarmEnabled bool) *Manager {
	return &Manager{
		daemon:         daemon,
		preWarmEnabled: preWarmEnabled,
		clock:          time.Now,
		pendingRPC:     make(map[uint32]chan RpcResponse),
	}
}

// Open picks an unused runtime (creating a fresh one if none is free),
// assigns it documentID, and returns it. The hive's CreateClientResponse
// pid is recorded by the caller once the daemon replies.
func (m *Manager) Open(url string, init DocumentRequestInit) *ContentRuntime {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.runtimes {
		if r.IsFree() {
			r.mu.Lock()
			r.DocumentID = init.ID
			r.URL = url
			r.state = StatePreStarting
			r.mu.Unlock()
			return r
		}
	}

	r := NewRuntime(init.ID)
	r.URL = url
	r.SetState(StatePreStarting)
	m.runtimes = append(m.runtimes, r)
	return r
}

// AttachPid records the pid the hive reported for a runtime's document
// process.
func (m *Manager) AttachPid(documentID uint32, pid int) error {
	r, err := m.find(documentID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.Pid = pid
	r.mu.Unlock()
	return nil
}

// Close flags documentID's runtime for destruction; actual removal
// happens on the next Tick's sweep (two-phase destruction).
func (m *Manager) Close(documentID uint32) bool {
	r, err := m.find(documentID)
	if err != nil {
		return false
	}
	r.MarkShouldDestroy()
	m.mu.Lock()
	m.lastCloseAt = m.clock()
	m.mu.Unlock()
	return true
}

// Pause stops frame delivery and replay for documentID's runtime.
func (m *Manager) Pause(documentID uint32) bool {
	r, err := m.find(documentID)
	if err != nil {
		return false
	}
	r.SetState(StatePaused)
	return true
}

// Resume restarts frame delivery and replay for documentID's runtime.
func (m *Manager) Resume(documentID uint32) bool {
	r, err := m.find(documentID)
	if err != nil {
		return false
	}
	r.SetState(StateStarted)
	return true
}

func (m *Manager) find(documentID uint32) (*ContentRuntime, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runtimes {
		if r.DocumentID == documentID {
			return r, nil
		}
	}
	return nil, errors.Errorf("content: no runtime for document %d", documentID)
}

// Runtimes returns a snapshot of the live runtime list, for diagnostics
// and the inspector's /contents endpoint.
func (m *Manager) Runtimes() []*ContentRuntime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ContentRuntime, len(m.runtimes))
	copy(out, m.runtimes)
	return out
}

// Tick runs one host-frame pass over the manager: checks the hive's exit
// status (marking every runtime for destruction and relaunching the daemon
// when it has exited), sweeps runtimes flagged shouldDestroy, and schedules
// a pre-warm runtime if needed (§4.5 "Per-frame tick").
func (m *Manager) Tick(ctx context.Context) {
	if m.daemon != nil {
		if exited, code := m.daemon.PollExit(); exited {
			applog.W(ctx, "content: hive daemon exited code=%d, marking all runtimes for destruction", code)
			m.mu.RLock()
			for _, r := range m.runtimes {
				r.MarkShouldDestroy()
			}
			m.mu.RUnlock()
			if err := m.daemon.Start(ctx); err != nil {
				applog.Err(ctx, err, "content: relaunch hive daemon")
			}
		}
	}

	m.sweep()

	if m.preWarmEnabled && m.shouldCreatePreWarm() {
		r := NewRuntime(0)
		m.mu.Lock()
		m.runtimes = append(m.runtimes, r)
		m.mu.Unlock()
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.runtimes[:0:0]
	for _, r := range m.runtimes {
		if r.ShouldDestroy() {
			r.SetState(StateDestroyed)
			continue
		}
		kept = append(kept, r)
	}
	m.runtimes = kept
}

func (m *Manager) shouldCreatePreWarm() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.runtimes {
		if r.IsFree() {
			return false // one already exists
		}
	}
	if len(m.runtimes) == 0 && m.lastCloseAt.IsZero() {
		return true // nothing has ever run; warm one up immediately
	}
	return m.clock().Sub(m.lastCloseAt) >= preWarmDelay
}

// DispatchRPC correlates an RpcResponse to its RpcRequest by message id
// and delivers it to whichever goroutine is waiting on SendRPC.
func (m *Manager) DispatchRPC(resp RpcResponse) {
	m.rpcMu.Lock()
	ch, ok := m.pendingRPC[resp.MessageID]
	if ok {
		delete(m.pendingRPC, resp.MessageID)
	}
	m.rpcMu.Unlock()
	if ok {
		ch <- resp
	}
}

// AwaitRPC registers messageID as awaiting a response and returns the
// channel DispatchRPC will deliver it on.
func (m *Manager) AwaitRPC(messageID uint32) <-chan RpcResponse {
	ch := make(chan RpcResponse, 1)
	m.rpcMu.Lock()
	m.pendingRPC[messageID] = ch
	m.rpcMu.Unlock()
	return ch
}

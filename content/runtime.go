// Package content implements the content runtime and content manager (L4):
// per-document lifecycle state, two-phase destruction, pre-warming, and
// the RPC surface documents use to call back into the host (§4.5).
package content

import (
	"sync"
	"sync/atomic"

	"github.com/webxrhost/runtime/scheduler"
)

// RuntimeState names a ContentRuntime's lifecycle state.
type RuntimeState int

const (
	StateAllocated RuntimeState = iota
	StatePreStarting
	StateStarted
	StatePaused
	StateDisposing
	StateDestroyed
)

// DocumentRequestInit is the payload the manager sends the hive to create
// a new document process.
type DocumentRequestInit struct {
	ID           uint32
	URL          string
	DisableCache bool
	IsPreview    bool
	RunScripts   bool
}

// DocumentEvent is one lifecycle event a document process reports over its
// event channel.
type DocumentEvent struct {
	DocumentID uint32
	EventType  string
	Timestamp  int64
}

// RpcRequest is a request a document makes of the host over the native
// event target (§4.5's RPC semantics).
type RpcRequest struct {
	DocumentID uint32
	Method     string
	Args       []string
	MessageID  uint32
}

// RpcResponse answers an RpcRequest, correlated by MessageID; it is never
// allowed to tear down the runtime, even on failure.
type RpcResponse struct {
	MessageID uint32
	Success   bool
	Message   string
	Data      map[string]any
}

// ContentRuntime is one document's host-side lifecycle record.
type ContentRuntime struct {
	mu sync.Mutex

	DocumentID uint32
	Pid        int
	URL        string

	// Scheduler holds this document's L6 command-buffer state: its
	// default queue, in-flight stereo frames, backup frame, and virtual GL
	// contexts (§4.7). One Document per runtime is what gives two
	// documents independent GL-object namespaces (§8 property 3).
	Scheduler *scheduler.Document

	state RuntimeState

	// shouldDestroy is set under a shared lock by whatever decides the
	// runtime must go (an OnExit event, an OOM dispose, an explicit
	// close()); it is only acted on — removed from the manager's list —
	// by the next tick's sweep, under a unique lock. This is the two-phase
	// destruction scheme of §4.5/§8 property 8.
	shouldDestroy int32

	lastUsedUnixNano int64
}

// NewRuntime constructs a runtime in the Allocated state for documentID.
func NewRuntime(documentID uint32) *ContentRuntime {
	return &ContentRuntime{DocumentID: documentID, state: StateAllocated, Scheduler: scheduler.NewDocument()}
}

// State returns the runtime's current lifecycle state.
func (r *ContentRuntime) State() RuntimeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetState transitions the runtime to state.
func (r *ContentRuntime) SetState(state RuntimeState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

// MarkShouldDestroy flags the runtime for destruction on the next sweep,
// without removing it immediately — so it remains observable in the
// manager's list for the remainder of the current tick.
func (r *ContentRuntime) MarkShouldDestroy() {
	atomic.StoreInt32(&r.shouldDestroy, 1)
	r.SetState(StateDisposing)
}

// ShouldDestroy reports whether the runtime has been flagged for removal.
func (r *ContentRuntime) ShouldDestroy() bool {
	return atomic.LoadInt32(&r.shouldDestroy) != 0
}

// IsFree reports whether this runtime has never been assigned a document
// (a pre-warmed, idle runtime) — used by open() to pick a runtime to
// reuse before forking a fresh one.
func (r *ContentRuntime) IsFree() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateAllocated && r.DocumentID == 0
}

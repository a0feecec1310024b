// Package scheduler implements the per-document command-buffer scheduler
// (L6): ingestion of inbound command buffers into a default queue and
// per-session stereo frames, and the per-tick replay that turns them into
// real GL calls on the host's single render thread (§4.7).
package scheduler

import "github.com/webxrhost/runtime/cmdbuffer"

// ObjectKind names one of the GL-nameable object categories the object
// manager tracks.
type ObjectKind int

const (
	KindProgram ObjectKind = iota
	KindShader
	KindBuffer
	KindFramebuffer
	KindRenderbuffer
	KindVertexArray
	KindTexture
	KindSampler
	numObjectKinds
)

// VirtualGLState is a document's view of the GL state: what's bound,
// what's enabled, the current program, per-kind named-object presence, and
// the viewport — everything the scheduler needs to detect state drift
// between the start and end of a replay batch (§4.7 "state changed").
type VirtualGLState struct {
	ViewportX, ViewportY, ViewportW, ViewportH int

	CurrentProgram      int
	BoundArrayBuffer    int
	BoundElementBuffer  int
	BoundFramebuffer    int
	BoundRenderbuffer   int
	BoundVertexArray    int
	ActiveTextureUnit   int
	TextureBindingByUnit map[int]int

	Enabled map[uint32]bool

	CullFace, FrontFace, DepthFunc             uint32
	BlendSrcRGB, BlendDstRGB                   uint32
	BlendSrcAlpha, BlendDstAlpha               uint32
	StencilFunc, StencilRef, StencilMask       uint32
	StencilFailOp, StencilZFailOp, StencilZPassOp uint32

	// ObjectsPresent[kind][clientID] records which client ids currently
	// exist for each object kind, independent of the object manager's
	// client-id→real-name mapping (deleting an id removes it here too).
	ObjectsPresent [numObjectKinds]map[int]bool

	// ProgramInternalsDirty is set by any of LinkProgram, AttachShader,
	// ShaderSource, CompileShader, DetachShader and cleared at the start of
	// each executeBatch.
	ProgramInternalsDirty bool
}

// NewVirtualGLState returns a zeroed state with its maps allocated.
func NewVirtualGLState() *VirtualGLState {
	s := &VirtualGLState{TextureBindingByUnit: make(map[int]int), Enabled: make(map[uint32]bool)}
	for i := range s.ObjectsPresent {
		s.ObjectsPresent[i] = make(map[int]bool)
	}
	return s
}

// Clone returns a deep copy of s, used to snapshot state before a replay
// batch so it can be compared against the state after.
func (s *VirtualGLState) Clone() *VirtualGLState {
	out := NewVirtualGLState()
	*out = *s
	out.TextureBindingByUnit = make(map[int]int, len(s.TextureBindingByUnit))
	for k, v := range s.TextureBindingByUnit {
		out.TextureBindingByUnit[k] = v
	}
	out.Enabled = make(map[uint32]bool, len(s.Enabled))
	for k, v := range s.Enabled {
		out.Enabled[k] = v
	}
	for i := range s.ObjectsPresent {
		out.ObjectsPresent[i] = make(map[int]bool, len(s.ObjectsPresent[i]))
		for k, v := range s.ObjectsPresent[i] {
			out.ObjectsPresent[i][k] = v
		}
	}
	return out
}

func sameIntSet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// StateChanged implements §4.7's "state changed" comparison: presence of
// every kind of named object, the bound program, bound array/element
// buffers, bound framebuffer, the currently bound texture per unit, and
// whether program internals were explicitly marked dirty.
func StateChanged(before, after *VirtualGLState) bool {
	if after.ProgramInternalsDirty {
		return true
	}
	if before.CurrentProgram != after.CurrentProgram {
		return true
	}
	if before.BoundArrayBuffer != after.BoundArrayBuffer || before.BoundElementBuffer != after.BoundElementBuffer {
		return true
	}
	if before.BoundFramebuffer != after.BoundFramebuffer {
		return true
	}
	if len(before.TextureBindingByUnit) != len(after.TextureBindingByUnit) {
		return true
	}
	for unit, name := range after.TextureBindingByUnit {
		if before.TextureBindingByUnit[unit] != name {
			return true
		}
	}
	for i := range before.ObjectsPresent {
		if !sameIntSet(before.ObjectsPresent[i], after.ObjectsPresent[i]) {
			return true
		}
	}
	return false
}

// objectKindFor maps a cmdbuffer.Variant that targets a GL object to its
// ObjectKind.
func objectKindFor(v cmdbuffer.Variant) (ObjectKind, bool) {
	switch v {
	case cmdbuffer.CreateProgram, cmdbuffer.DeleteProgram:
		return KindProgram, true
	case cmdbuffer.CreateShader, cmdbuffer.DeleteShader:
		return KindShader, true
	case cmdbuffer.CreateBuffer, cmdbuffer.DeleteBuffer, cmdbuffer.BindBuffer:
		return KindBuffer, true
	case cmdbuffer.CreateFramebuffer, cmdbuffer.DeleteFramebuffer, cmdbuffer.BindFramebuffer:
		return KindFramebuffer, true
	case cmdbuffer.CreateRenderbuffer, cmdbuffer.DeleteRenderbuffer, cmdbuffer.BindRenderbuffer:
		return KindRenderbuffer, true
	case cmdbuffer.CreateVertexArray, cmdbuffer.DeleteVertexArray, cmdbuffer.BindVertexArray:
		return KindVertexArray, true
	case cmdbuffer.CreateTexture, cmdbuffer.DeleteTexture, cmdbuffer.BindTexture:
		return KindTexture, true
	case cmdbuffer.CreateSampler, cmdbuffer.DeleteSampler:
		return KindSampler, true
	default:
		return 0, false
	}
}

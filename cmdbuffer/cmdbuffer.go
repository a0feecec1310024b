// Package cmdbuffer defines the tagged union of GL-call shapes the document
// process sends to the host over its command-buffer channel, and the
// RenderingInfo tag that routes each buffer to the default queue or to a
// specific stereo frame and eye (§4.7 "Command-buffer ingestion").
//
// The full reference protocol carries on the order of a hundred call
// variants (one per WebGL entry point plus its query/response pair). This
// package implements one representative per category named in §4.7's
// per-command replay rules — object lifecycle, draw calls, uniform and
// state setters, and queries — which is the complete set the scheduler's
// replay algorithm needs to exercise every documented rule; additional
// variants follow the same Variant/Request/Response shape and are not
// enumerated individually here.
package cmdbuffer

import "github.com/webxrhost/runtime/vecmath"

// Variant names one GL-call shape.
type Variant int

const (
	// Object lifecycle: create/delete for each object kind.
	CreateProgram Variant = iota
	DeleteProgram
	CreateShader
	DeleteShader
	CreateBuffer
	DeleteBuffer
	CreateFramebuffer
	DeleteFramebuffer
	CreateRenderbuffer
	DeleteRenderbuffer
	CreateVertexArray
	DeleteVertexArray
	CreateTexture
	DeleteTexture
	CreateSampler
	DeleteSampler

	// Bind calls.
	BindBuffer
	BindFramebuffer
	BindRenderbuffer
	BindVertexArray
	BindTexture

	// Program build pipeline (dirties the "program internals" flag per
	// §4.7's state-changed comparison).
	ShaderSource
	CompileShader
	AttachShader
	DetachShader
	LinkProgram
	UseProgram

	// Draw calls.
	DrawArrays
	DrawElements

	// State setters.
	Viewport
	Enable
	Disable
	BlendFunc
	BlendFuncSeparate
	StencilFunc
	StencilOp
	DepthFunc
	CullFace
	FrontFace
	ActiveTexture

	// Uniform setters, including placeholder uniforms for system matrices.
	UniformMatrix4fv

	// Queries: paired with a Response of the matching kind.
	GetError
	GetProgramParameter
	GetShaderParameter

	// XR frame lifecycle markers, routed specially per §4.7.
	XRFrameStart
	XRFrameFlush
	XRFrameEnd
)

// PlaceholderKind names which system-supplied matrix a UniformMatrix4fv
// command stands in for, per §4.7 "Uniform matrix placeholders".
type PlaceholderKind int

const (
	NotPlaceholder PlaceholderKind = iota
	PlaceholderProjection
	PlaceholderView
	PlaceholderViewRelativeToLocal
	PlaceholderViewRelativeToLocalFloor
	PlaceholderViewProjection
)

// RenderingInfo tags a command buffer with the stereo frame and eye it
// belongs to. Empty == true means "default queue", per §4.7's ingestion
// routing (the zero value has Empty == false and is routed to a stereo
// frame) — except for the three XRFrame* variants, which
// always carry rendering info even though their payload may otherwise look
// empty.
type RenderingInfo struct {
	Empty       bool
	SessionID   uint32
	StereoID    uint32
	ViewIndex   int // 0 = left eye, 1 = right eye
}

// UniformMatrix4fvArgs is the payload for a UniformMatrix4fv command.
type UniformMatrix4fvArgs struct {
	ClientLocation int
	Transpose      bool
	Value          vecmath.M4
	Placeholder    PlaceholderKind
	LeftHanded     bool // handedness flag, §4.7
}

// ShaderSourceArgs is the payload for a ShaderSource command.
type ShaderSourceArgs struct {
	ClientShaderID int
	Source         string
}

// DrawArgs is the shared payload shape for DrawArrays/DrawElements.
type DrawArgs struct {
	Mode         uint32
	First, Count int
	ElementType  uint32 // only meaningful for DrawElements
	Indexed      bool
}

// AttachArgs is the payload for AttachShader/DetachShader.
type AttachArgs struct {
	ClientProgramID int
	ClientShaderID  int
}

// ObjectArgs is the payload for a single-client-id create/delete/bind call.
type ObjectArgs struct {
	ClientID int
	Target   uint32 // bind target, e.g. GL_ARRAY_BUFFER; unused for create/delete
	Unit     int    // active texture unit, for BindTexture
}

// StateArgs is a small variant-specific payload for simple state setters
// (Viewport, Enable/Disable, BlendFunc, ...). Only the fields relevant to
// Variant are populated; callers type-assert based on Variant.
type StateArgs struct {
	X, Y, W, H int
	Cap        uint32
	A, B, C, D uint32
}

// XRFrameArgs is the payload carried by XRFrameStart/Flush/End markers.
type XRFrameArgs struct {
	ViewIndex int
}

// CommandBuffer is one ingested command: its variant, rendering info, and
// an untyped payload the scheduler type-switches on by Variant.
type CommandBuffer struct {
	Type          Variant
	MessageID     uint32
	RenderingInfo RenderingInfo
	Payload       any
}

// ResponseVariant names one query-response shape, paired 1:1 with a query
// Variant.
type ResponseVariant int

const (
	ResponseGetError ResponseVariant = iota
	ResponseGetProgramParameter
	ResponseGetShaderParameter
)

// Response is sent back on the command-buffer channel for a query variant,
// correlated to its request by MessageID.
type Response struct {
	Type      ResponseVariant
	MessageID uint32
	IntValue  int
	BoolValue bool
}

// IsQuery reports whether v expects a Response.
func IsQuery(v Variant) bool {
	switch v {
	case GetError, GetProgramParameter, GetShaderParameter:
		return true
	default:
		return false
	}
}

// DirtiesProgramInternals reports whether v is one of the calls that marks
// a document's glContext dirty for program-internals purposes, per §4.7's
// "state changed" comparison.
func DirtiesProgramInternals(v Variant) bool {
	switch v {
	case LinkProgram, AttachShader, ShaderSource, CompileShader, DetachShader:
		return true
	default:
		return false
	}
}

// IsXRFrameMarker reports whether v is one of the three XR frame lifecycle
// variants, which are routed to a stereo frame even when their own payload
// carries no other rendering state.
func IsXRFrameMarker(v Variant) bool {
	switch v {
	case XRFrameStart, XRFrameFlush, XRFrameEnd:
		return true
	default:
		return false
	}
}

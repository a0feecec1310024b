package scheduler

import "github.com/webxrhost/runtime/vecmath"

// GLError mirrors the handful of glGetError() values the scheduler cares
// about.
type GLError uint32

const (
	GLNoError     GLError = 0
	GLOutOfMemory GLError = 0x0505
	GLInvalidEnum GLError = 0x0500
)

// HostGLState is an opaque snapshot of the real GL state the host had
// before a document's replay batch; RestoreHostState puts it back exactly.
// Backends define its concrete shape; the scheduler never inspects it.
type HostGLState any

// GLBackend is the real-GL side of a replay: every call the scheduler may
// issue, plus the host-state snapshot/restore and XR-framebuffer
// bracketing hooks used once per tick. Production code backs this with
// cgo bindings to the platform's GL driver; tests back it with a recording
// fake.
type GLBackend interface {
	CreateProgram() int
	DeleteProgram(name int)
	CreateShader() int
	DeleteShader(name int)
	CreateBuffer() int
	DeleteBuffer(name int)
	CreateFramebuffer() int
	DeleteFramebuffer(name int)
	CreateRenderbuffer() int
	DeleteRenderbuffer(name int)
	CreateVertexArray() int
	DeleteVertexArray(name int)
	CreateTexture() int
	DeleteTexture(name int)
	CreateSampler() int
	DeleteSampler(name int)

	BindBuffer(target uint32, name int)
	BindFramebuffer(target uint32, name int)
	BindRenderbuffer(name int)
	BindVertexArray(name int)
	BindTexture(unit, name int)

	ShaderSource(name int, source string)
	CompileShader(name int)
	AttachShader(program, shader int)
	DetachShader(program, shader int)
	LinkProgram(name int)
	UseProgram(name int)

	DrawArrays(mode uint32, first, count int)
	DrawElements(mode uint32, count int, elementType uint32)

	Viewport(x, y, w, h int)
	Enable(cap uint32)
	Disable(cap uint32)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32)
	StencilFunc(fn, ref, mask uint32)
	StencilOp(fail, zfail, zpass uint32)
	DepthFunc(fn uint32)
	CullFace(mode uint32)
	FrontFace(mode uint32)
	ActiveTexture(unit int)
	UniformMatrix4fv(location int, transpose bool, v vecmath.M4)

	GetError() GLError

	RecordHostState() HostGLState
	RestoreHostState(HostGLState)
	ConfigureXRFramebuffer()
	RestoreFramebuffer()
}

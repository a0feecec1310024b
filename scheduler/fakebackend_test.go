package scheduler

import "github.com/webxrhost/runtime/vecmath"

// fakeBackend is a recording GLBackend used by scheduler tests: it hands
// out sequential names per object kind and records every call it receives.
type fakeBackend struct {
	nextName  int
	calls     []string
	errQueue  []GLError
	lastMat   vecmath.M4
}

func newFakeBackend() *fakeBackend { return &fakeBackend{nextName: 1} }

func (b *fakeBackend) name() int {
	b.nextName++
	return b.nextName - 1
}

func (b *fakeBackend) CreateProgram() int       { return b.name() }
func (b *fakeBackend) DeleteProgram(int)        {}
func (b *fakeBackend) CreateShader() int        { return b.name() }
func (b *fakeBackend) DeleteShader(int)         {}
func (b *fakeBackend) CreateBuffer() int        { return b.name() }
func (b *fakeBackend) DeleteBuffer(int)         {}
func (b *fakeBackend) CreateFramebuffer() int   { return b.name() }
func (b *fakeBackend) DeleteFramebuffer(int)    {}
func (b *fakeBackend) CreateRenderbuffer() int  { return b.name() }
func (b *fakeBackend) DeleteRenderbuffer(int)   {}
func (b *fakeBackend) CreateVertexArray() int   { return b.name() }
func (b *fakeBackend) DeleteVertexArray(int)    {}
func (b *fakeBackend) CreateTexture() int       { return b.name() }
func (b *fakeBackend) DeleteTexture(int)        {}
func (b *fakeBackend) CreateSampler() int       { return b.name() }
func (b *fakeBackend) DeleteSampler(int)        {}

func (b *fakeBackend) BindBuffer(target uint32, name int)      { b.calls = append(b.calls, "BindBuffer") }
func (b *fakeBackend) BindFramebuffer(target uint32, name int) { b.calls = append(b.calls, "BindFramebuffer") }
func (b *fakeBackend) BindRenderbuffer(name int)               { b.calls = append(b.calls, "BindRenderbuffer") }
func (b *fakeBackend) BindVertexArray(name int)                { b.calls = append(b.calls, "BindVertexArray") }
func (b *fakeBackend) BindTexture(unit, name int)              { b.calls = append(b.calls, "BindTexture") }

func (b *fakeBackend) ShaderSource(name int, source string) { b.calls = append(b.calls, "ShaderSource:"+source) }
func (b *fakeBackend) CompileShader(int)                    { b.calls = append(b.calls, "CompileShader") }
func (b *fakeBackend) AttachShader(int, int)                { b.calls = append(b.calls, "AttachShader") }
func (b *fakeBackend) DetachShader(int, int)                { b.calls = append(b.calls, "DetachShader") }
func (b *fakeBackend) LinkProgram(int)                       { b.calls = append(b.calls, "LinkProgram") }
func (b *fakeBackend) UseProgram(int)                        { b.calls = append(b.calls, "UseProgram") }

func (b *fakeBackend) DrawArrays(mode uint32, first, count int) { b.calls = append(b.calls, "DrawArrays") }
func (b *fakeBackend) DrawElements(mode uint32, count int, elementType uint32) {
	b.calls = append(b.calls, "DrawElements")
}

func (b *fakeBackend) Viewport(x, y, w, h int)                                     { b.calls = append(b.calls, "Viewport") }
func (b *fakeBackend) Enable(cap uint32)                                           { b.calls = append(b.calls, "Enable") }
func (b *fakeBackend) Disable(cap uint32)                                          { b.calls = append(b.calls, "Disable") }
func (b *fakeBackend) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32)  { b.calls = append(b.calls, "BlendFuncSeparate") }
func (b *fakeBackend) StencilFunc(fn, ref, mask uint32)                            { b.calls = append(b.calls, "StencilFunc") }
func (b *fakeBackend) StencilOp(fail, zfail, zpass uint32)                         { b.calls = append(b.calls, "StencilOp") }
func (b *fakeBackend) DepthFunc(fn uint32)                                         { b.calls = append(b.calls, "DepthFunc") }
func (b *fakeBackend) CullFace(mode uint32)                                        { b.calls = append(b.calls, "CullFace") }
func (b *fakeBackend) FrontFace(mode uint32)                                       { b.calls = append(b.calls, "FrontFace") }
func (b *fakeBackend) ActiveTexture(unit int)                                      { b.calls = append(b.calls, "ActiveTexture") }
func (b *fakeBackend) UniformMatrix4fv(location int, transpose bool, v vecmath.M4) {
	b.calls = append(b.calls, "UniformMatrix4fv")
	b.lastMat = v
}

func (b *fakeBackend) GetError() GLError {
	if len(b.errQueue) == 0 {
		return GLNoError
	}
	err := b.errQueue[0]
	b.errQueue = b.errQueue[1:]
	return err
}

func (b *fakeBackend) RecordHostState() HostGLState { return "snapshot" }
func (b *fakeBackend) RestoreHostState(HostGLState) {}
func (b *fakeBackend) ConfigureXRFramebuffer()       {}
func (b *fakeBackend) RestoreFramebuffer()           {}

package scheduler

import (
	"strings"

	"github.com/webxrhost/runtime/cmdbuffer"
	"github.com/webxrhost/runtime/vecmath"
	"github.com/webxrhost/runtime/xrdevice"
)

// StereoMode mirrors the device's configured rendering mode, per §6's
// XRDeviceInit.stereoRenderingMode.
type StereoMode int

const (
	MultiPass StereoMode = iota
	SinglePass
	SinglePassInstanced
	SinglePassMultiview
)

// executeBatch replays cbs in order against gl, mutating d.glContext and
// d.objects, and returns the responses queued for query variants. session
// is nil for the default queue (placeholders always resolve to their
// explicit value there).
func (d *Document) executeBatch(gl GLBackend, cbs []cmdbuffer.CommandBuffer, device *xrdevice.Device, session *xrdevice.XRSession, viewIndex int, mode StereoMode) []cmdbuffer.Response {
	d.glContext.ProgramInternalsDirty = false
	var responses []cmdbuffer.Response
	for _, cb := range cbs {
		d.replayOne(gl, cb, device, session, viewIndex, mode, &responses)
		if err := gl.GetError(); err != GLNoError {
			if uint32(err) == cmdbuffer.GLOutOfMemory {
				d.lastFrameHasOOM = true
			} else {
				d.lastFrameErrorsCount++
			}
		}
	}
	return responses
}

func (d *Document) replayOne(gl GLBackend, cb cmdbuffer.CommandBuffer, device *xrdevice.Device, session *xrdevice.XRSession, viewIndex int, mode StereoMode, responses *[]cmdbuffer.Response) {
	answeredBefore := len(*responses)
	switch cb.Type {
	case cmdbuffer.CreateProgram:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		name := gl.CreateProgram()
		d.objects.Create(kind, args.ClientID, name)
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteProgram:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteProgram(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)
		if d.glContext.CurrentProgram == args.ClientID {
			d.glContext.CurrentProgram = 0
		}

	case cmdbuffer.CreateShader:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		d.objects.Create(kind, args.ClientID, gl.CreateShader())
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteShader:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteShader(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)

	case cmdbuffer.CreateBuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		d.objects.Create(kind, args.ClientID, gl.CreateBuffer())
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteBuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteBuffer(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)

	case cmdbuffer.CreateFramebuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		d.objects.Create(kind, args.ClientID, gl.CreateFramebuffer())
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteFramebuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteFramebuffer(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)

	case cmdbuffer.CreateRenderbuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		d.objects.Create(kind, args.ClientID, gl.CreateRenderbuffer())
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteRenderbuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteRenderbuffer(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)

	case cmdbuffer.CreateVertexArray:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		d.objects.Create(kind, args.ClientID, gl.CreateVertexArray())
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteVertexArray:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteVertexArray(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)

	case cmdbuffer.CreateTexture:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		d.objects.Create(kind, args.ClientID, gl.CreateTexture())
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteTexture:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteTexture(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)

	case cmdbuffer.CreateSampler:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		d.objects.Create(kind, args.ClientID, gl.CreateSampler())
		d.glContext.ObjectsPresent[kind][args.ClientID] = true
	case cmdbuffer.DeleteSampler:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		if name, ok := d.objects.Delete(kind, args.ClientID); ok {
			gl.DeleteSampler(name)
		}
		delete(d.glContext.ObjectsPresent[kind], args.ClientID)

	case cmdbuffer.BindBuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		name, _ := d.objects.RealName(kind, args.ClientID)
		gl.BindBuffer(args.Target, name)
		if args.Target == cmdbuffer.GLElementArrayBuffer {
			d.glContext.BoundElementBuffer = args.ClientID
		} else {
			d.glContext.BoundArrayBuffer = args.ClientID
		}
	case cmdbuffer.BindFramebuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		name, _ := d.objects.RealName(kind, args.ClientID)
		gl.BindFramebuffer(args.Target, name)
		d.glContext.BoundFramebuffer = args.ClientID
	case cmdbuffer.BindRenderbuffer:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		name, _ := d.objects.RealName(kind, args.ClientID)
		gl.BindRenderbuffer(name)
		d.glContext.BoundRenderbuffer = args.ClientID
	case cmdbuffer.BindVertexArray:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		name, _ := d.objects.RealName(kind, args.ClientID)
		gl.BindVertexArray(name)
		d.glContext.BoundVertexArray = args.ClientID
	case cmdbuffer.BindTexture:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		kind, _ := objectKindFor(cb.Type)
		// The host's current binding on this unit is not queried or saved
		// here; it is put back only by the backend's RecordHostState/
		// RestoreHostState bracketing in Tick.
		name, _ := d.objects.RealName(kind, args.ClientID)
		gl.BindTexture(args.Unit, name)
		d.glContext.TextureBindingByUnit[args.Unit] = args.ClientID

	case cmdbuffer.ShaderSource:
		args := cb.Payload.(cmdbuffer.ShaderSourceArgs)
		name, _ := d.objects.RealName(KindShader, args.ClientShaderID)
		gl.ShaderSource(name, fixupShaderVersion(args.Source))
	case cmdbuffer.CompileShader:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		name, _ := d.objects.RealName(KindShader, args.ClientID)
		gl.CompileShader(name)
	case cmdbuffer.AttachShader:
		args := cb.Payload.(cmdbuffer.AttachArgs)
		program, _ := d.objects.RealName(KindProgram, args.ClientProgramID)
		shader, _ := d.objects.RealName(KindShader, args.ClientShaderID)
		gl.AttachShader(program, shader)
	case cmdbuffer.DetachShader:
		args := cb.Payload.(cmdbuffer.AttachArgs)
		program, _ := d.objects.RealName(KindProgram, args.ClientProgramID)
		shader, _ := d.objects.RealName(KindShader, args.ClientShaderID)
		gl.DetachShader(program, shader)
	case cmdbuffer.LinkProgram:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		name, _ := d.objects.RealName(KindProgram, args.ClientID)
		gl.LinkProgram(name)
	case cmdbuffer.UseProgram:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		name, _ := d.objects.RealName(KindProgram, args.ClientID)
		gl.UseProgram(name)
		d.glContext.CurrentProgram = args.ClientID

	case cmdbuffer.DrawArrays:
		args := cb.Payload.(cmdbuffer.DrawArgs)
		gl.DrawArrays(args.Mode, args.First, args.Count)
		d.drawCallsPerFrame++
	case cmdbuffer.DrawElements:
		args := cb.Payload.(cmdbuffer.DrawArgs)
		gl.DrawElements(args.Mode, args.Count, args.ElementType)
		d.drawCallsPerFrame++

	case cmdbuffer.Viewport:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.Viewport(args.X, args.Y, args.W, args.H)
		d.glContext.ViewportX, d.glContext.ViewportY = args.X, args.Y
		d.glContext.ViewportW, d.glContext.ViewportH = args.W, args.H
	case cmdbuffer.Enable:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.Enable(args.Cap)
		d.glContext.Enabled[args.Cap] = true
	case cmdbuffer.Disable:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.Disable(args.Cap)
		d.glContext.Enabled[args.Cap] = false
	case cmdbuffer.BlendFunc:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.BlendFuncSeparate(args.A, args.B, args.A, args.B)
		d.glContext.BlendSrcRGB, d.glContext.BlendDstRGB = args.A, args.B
		d.glContext.BlendSrcAlpha, d.glContext.BlendDstAlpha = args.A, args.B
	case cmdbuffer.BlendFuncSeparate:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.BlendFuncSeparate(args.A, args.B, args.C, args.D)
		d.glContext.BlendSrcRGB, d.glContext.BlendDstRGB = args.A, args.B
		d.glContext.BlendSrcAlpha, d.glContext.BlendDstAlpha = args.C, args.D
	case cmdbuffer.StencilFunc:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.StencilFunc(args.A, args.B, args.C)
		d.glContext.StencilFunc, d.glContext.StencilRef, d.glContext.StencilMask = args.A, args.B, args.C
	case cmdbuffer.StencilOp:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.StencilOp(args.A, args.B, args.C)
		d.glContext.StencilFailOp, d.glContext.StencilZFailOp, d.glContext.StencilZPassOp = args.A, args.B, args.C
	case cmdbuffer.DepthFunc:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.DepthFunc(args.A)
		d.glContext.DepthFunc = args.A
	case cmdbuffer.CullFace:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.CullFace(args.A)
		d.glContext.CullFace = args.A
	case cmdbuffer.FrontFace:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.FrontFace(args.A)
		d.glContext.FrontFace = args.A
	case cmdbuffer.ActiveTexture:
		args := cb.Payload.(cmdbuffer.StateArgs)
		gl.ActiveTexture(int(args.A))
		d.glContext.ActiveTextureUnit = int(args.A)

	case cmdbuffer.UniformMatrix4fv:
		args := cb.Payload.(cmdbuffer.UniformMatrix4fvArgs)
		value := resolvePlaceholder(args, device, session, viewIndex, mode)
		gl.UniformMatrix4fv(args.ClientLocation, args.Transpose, value)

	case cmdbuffer.GetError:
		*responses = append(*responses, cmdbuffer.Response{Type: cmdbuffer.ResponseGetError, MessageID: cb.MessageID, IntValue: int(gl.GetError())})
	case cmdbuffer.GetProgramParameter:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		_, ok := d.objects.RealName(KindProgram, args.ClientID)
		*responses = append(*responses, cmdbuffer.Response{Type: cmdbuffer.ResponseGetProgramParameter, MessageID: cb.MessageID, BoolValue: ok})
	case cmdbuffer.GetShaderParameter:
		args := cb.Payload.(cmdbuffer.ObjectArgs)
		_, ok := d.objects.RealName(KindShader, args.ClientID)
		*responses = append(*responses, cmdbuffer.Response{Type: cmdbuffer.ResponseGetShaderParameter, MessageID: cb.MessageID, BoolValue: ok})
	}

	if cmdbuffer.DirtiesProgramInternals(cb.Type) {
		d.glContext.ProgramInternalsDirty = true
	}

	// Every query variant must produce exactly one Response; this is the
	// backstop for a query Variant added to IsQuery without a matching case
	// above.
	if cmdbuffer.IsQuery(cb.Type) && len(*responses) == answeredBefore {
		*responses = append(*responses, cmdbuffer.Response{Type: cmdbuffer.ResponseGetError, MessageID: cb.MessageID})
	}
}

// fixupShaderVersion rewrites a leading #version directive to match the
// host's GL profile, preserving every other line verbatim (§4.7
// "Shader-source dialect fixup").
func fixupShaderVersion(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#version") {
			lines[i] = "#version 330 core"
			return strings.Join(lines, "\n")
		}
		if trimmed != "" {
			break // #version, if present, must be the first non-blank line
		}
	}
	return source
}

// resolvePlaceholder resolves a uniform-matrix placeholder against the
// active XR session's current frame data in multipass mode; everywhere
// else (single-pass variants, or no active session) it returns the
// explicit value supplied by the document (§4.7 "Uniform matrix
// placeholders").
func resolvePlaceholder(args cmdbuffer.UniformMatrix4fvArgs, device *xrdevice.Device, session *xrdevice.XRSession, viewIndex int, mode StereoMode) vecmath.M4 {
	if args.Placeholder == cmdbuffer.NotPlaceholder || mode != MultiPass || session == nil || device == nil {
		return args.Value
	}
	eye := xrdevice.Eye(viewIndex)
	view := device.ViewMatrix(eye)
	proj := device.ProjectionMatrix(eye)

	var m vecmath.M4
	switch args.Placeholder {
	case cmdbuffer.PlaceholderProjection:
		m = proj
	case cmdbuffer.PlaceholderView:
		m = view
	case cmdbuffer.PlaceholderViewRelativeToLocal, cmdbuffer.PlaceholderViewRelativeToLocalFloor:
		m = view.Mult(session.LocalBaseMatrix)
	case cmdbuffer.PlaceholderViewProjection:
		m = proj.Mult(view)
	default:
		return args.Value
	}
	if args.LeftHanded {
		m = vecmath.ScaleNegateX(m)
	}
	return m
}

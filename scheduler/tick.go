package scheduler

import (
	"github.com/webxrhost/runtime/cmdbuffer"
	"github.com/webxrhost/runtime/xrdevice"
)

// maxErrorsPerFrame is the threshold past which a document is disposed for
// GL errors; 20 errors is tolerated, 21 is not (§8 property 10).
const maxErrorsPerFrame = 20

// SessionLookup resolves a stereo frame's session id to its XRSession, or
// nil if the session no longer exists.
type SessionLookup func(sessionID uint32) *xrdevice.XRSession

// Tick runs one full replay pass for this document: snapshot/restore the
// host's GL state around it, drain the default queue, then (if the device
// is enabled and this document has used XR) drain one eye's worth of
// stereo-frame replay per configured stereo mode. It returns whether the
// document should be disposed this tick (§4.7 "Errors and OOM").
func (d *Document) Tick(gl GLBackend, device *xrdevice.Device, lookupSession SessionLookup, mode StereoMode) (responses []cmdbuffer.Response, disposeRequested bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.drawCallsPerFrame = 0
	d.lastFrameErrorsCount = 0
	d.lastFrameHasOOM = false

	hostSnapshot := gl.RecordHostState()
	defer gl.RestoreHostState(hostSnapshot)

	reqs := d.defaultQueue
	d.defaultQueue = nil
	responses = append(responses, d.executeBatch(gl, reqs, device, nil, 0, mode)...)

	if device != nil && device.Enabled() && d.used {
		gl.ConfigureXRFramebuffer()
		switch mode {
		case MultiPass:
			responses = append(responses, d.executeStereo(gl, device, lookupSession, int(device.ActiveEye()), mode)...)
		default:
			responses = append(responses, d.executeStereo(gl, device, lookupSession, 0, mode)...)
			responses = append(responses, d.executeStereo(gl, device, lookupSession, 1, mode)...)
		}
		gl.RestoreFramebuffer()
	}

	disposeRequested = d.lastFrameHasOOM || d.lastFrameErrorsCount > maxErrorsPerFrame
	return responses, disposeRequested
}

// executeStereo implements §4.7's "executeStereo(viewIndex)": try to
// replay exactly one ready stereo frame's commands for viewIndex, falling
// back to the backup frame if none was ready.
func (d *Document) executeStereo(gl GLBackend, device *xrdevice.Device, lookupSession SessionLookup, viewIndex int, mode StereoMode) []cmdbuffer.Response {
	responses, replayed := d.tryReplayStereoFrame(gl, device, lookupSession, viewIndex, mode)
	if !replayed {
		responses = append(responses, d.replayBackupFrame(gl, device, lookupSession, viewIndex, mode)...)
	}
	return responses
}

func (d *Document) tryReplayStereoFrame(gl GLBackend, device *xrdevice.Device, lookupSession SessionLookup, viewIndex int, mode StereoMode) ([]cmdbuffer.Response, bool) {
	var responses []cmdbuffer.Response
	for i := 0; i < len(d.stereoFrames); {
		frame := d.stereoFrames[i]

		if !frame.Available {
			d.removeFrameAt(i)
			continue
		}

		bothEnded := frame.Ended[0] && frame.Ended[1]
		if !bothEnded {
			if frame.FlushPending[viewIndex] && (viewIndex == 0 || frame.Ended[0]) {
				session := resolveSession(lookupSession, frame.SessionID)
				responses = append(responses, d.executeBatch(gl, frame.CommandBuffers[viewIndex], device, session, viewIndex, mode)...)
				frame.CommandBuffers[viewIndex] = nil
				frame.FlushPending[viewIndex] = false
			}
			i++
			continue
		}

		if frame.Finished[viewIndex] {
			i++
			continue
		}

		if frame.isEmpty() {
			d.removeFrameAt(i)
			continue
		}

		if viewIndex == 1 && !frame.Finished[0] {
			i++
			continue
		}

		before := d.glContext.Clone()
		session := resolveSession(lookupSession, frame.SessionID)
		responses = append(responses, d.executeBatch(gl, frame.CommandBuffers[viewIndex], device, session, viewIndex, mode)...)
		changed := StateChanged(before, d.glContext)
		frame.Finished[viewIndex] = true
		frame.Idempotent[viewIndex] = !changed

		if viewIndex == 1 {
			if frame.Idempotent[0] && frame.Idempotent[1] {
				d.backupFrame = frame
			} else {
				d.backupFrame = nil
			}
			d.removeFrameAt(i)
		}
		return responses, true
	}
	return responses, false
}

func (d *Document) replayBackupFrame(gl GLBackend, device *xrdevice.Device, lookupSession SessionLookup, viewIndex int, mode StereoMode) []cmdbuffer.Response {
	if d.backupFrame == nil {
		return nil
	}
	saved := d.glContext
	d.glContext = d.glContextForBackup
	session := resolveSession(lookupSession, d.backupFrame.SessionID)
	responses := d.executeBatch(gl, d.backupFrame.CommandBuffers[viewIndex], device, session, viewIndex, mode)
	d.glContextForBackup = d.glContext
	d.glContext = saved
	return responses
}

func resolveSession(lookup SessionLookup, sessionID uint32) *xrdevice.XRSession {
	if lookup == nil {
		return nil
	}
	return lookup(sessionID)
}

package scheduler

import (
	"sync"

	"github.com/webxrhost/runtime/cmdbuffer"
)

// Document holds one content runtime's scheduler state: its default queue,
// its in-flight stereo frames (oldest first, i.e. in stereoId order since
// they are only ever appended), its backup frame, and its two virtual GL
// contexts.
//
// All mutation of stereoFrames happens under mu: ingestion (from channel
// receiver threads) takes it unique, as does the per-tick replay; reading
// the pending-frame count for backpressure takes it shared (§5).
type Document struct {
	mu sync.RWMutex

	defaultQueue []cmdbuffer.CommandBuffer
	stereoFrames []*StereoFrame
	backupFrame  *StereoFrame

	glContext          *VirtualGLState
	glContextForBackup *VirtualGLState
	objects            *GLObjectManager

	drawCallsPerFrame    int
	lastFrameErrorsCount int
	lastFrameHasOOM      bool

	used bool // has this document used XR at least once
}

// NewDocument returns an empty scheduler for one content runtime.
func NewDocument() *Document {
	return &Document{
		glContext:          NewVirtualGLState(),
		glContextForBackup: NewVirtualGLState(),
		objects:            NewGLObjectManager(),
	}
}

// Ingest routes one received command buffer into the default queue or the
// matching stereo frame, per §4.7's ingestion rules.
func (d *Document) Ingest(cb cmdbuffer.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ri := cb.RenderingInfo
	if ri.Empty && !cmdbuffer.IsXRFrameMarker(cb.Type) {
		d.defaultQueue = append(d.defaultQueue, cb)
		return
	}
	d.used = true

	var frame *StereoFrame
	if cb.Type == cmdbuffer.XRFrameStart && ri.ViewIndex == 0 {
		frame = &StereoFrame{StereoID: ri.StereoID, SessionID: ri.SessionID, Available: true}
		d.stereoFrames = append(d.stereoFrames, frame)
	} else {
		frame = d.findFrameLocked(ri.StereoID)
		if frame == nil {
			return // drop silently: no matching frame
		}
	}

	switch cb.Type {
	case cmdbuffer.XRFrameStart:
		frame.Started[ri.ViewIndex] = true
	case cmdbuffer.XRFrameFlush:
		frame.FlushPending[ri.ViewIndex] = true
	case cmdbuffer.XRFrameEnd:
		frame.Ended[ri.ViewIndex] = true
	default:
		if frame.Ended[ri.ViewIndex] {
			return // discard: this eye of the frame is already closed
		}
		frame.CommandBuffers[ri.ViewIndex] = append(frame.CommandBuffers[ri.ViewIndex], cb)
	}
}

func (d *Document) findFrameLocked(stereoID uint32) *StereoFrame {
	for _, f := range d.stereoFrames {
		if f.StereoID == stereoID {
			return f
		}
	}
	return nil
}

func (d *Document) removeFrameAt(i int) {
	d.stereoFrames = append(d.stereoFrames[:i], d.stereoFrames[i+1:]...)
}

// PendingCommittedFrames returns the number of stereo frames whose Ended is
// set on both eyes (fully committed but not yet replayed), for the
// backpressure count published to a session's zone (§4.7 "Stereo-frame
// counting for backpressure").
func (d *Document) PendingCommittedFrames(sessionID uint32) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, f := range d.stereoFrames {
		if f.SessionID == sessionID && f.Ended[0] && f.Ended[1] {
			n++
		}
	}
	return n
}

// Used reports whether this document has ever ingested an XR command.
func (d *Document) Used() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.used
}

// LastFrameStats returns the error/OOM counters from the most recently
// completed tick, for diagnostics and tests.
func (d *Document) LastFrameStats() (errorsCount int, hadOOM bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastFrameErrorsCount, d.lastFrameHasOOM
}

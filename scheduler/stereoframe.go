package scheduler

import "github.com/webxrhost/runtime/cmdbuffer"

// StereoFrame is one in-flight stereo frame's state across both eyes, in
// the order §4.7 names them.
type StereoFrame struct {
	StereoID  uint32
	SessionID uint32
	Available bool

	Started      [2]bool
	FlushPending [2]bool
	Ended        [2]bool
	Finished     [2]bool
	Idempotent   [2]bool

	CommandBuffers [2][]cmdbuffer.CommandBuffer
}

func (f *StereoFrame) isEmpty() bool {
	return len(f.CommandBuffers[0]) == 0 && len(f.CommandBuffers[1]) == 0
}

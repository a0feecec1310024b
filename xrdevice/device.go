// Package xrdevice owns the single process-wide XR device state (L3): the
// current stereo view/projection matrices, the merged visibility frustum,
// active-eye tracking, input sources, and the set of live XRSessions. It is
// the synchronous target of each connected document's XR command channel.
package xrdevice

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/webxrhost/runtime/vecmath"
)

// Eye names one of the two stereo eyes. Eye(0) is left, Eye(1) is right —
// matching updateViewMatrix(eye, m)'s convention in the host API.
type Eye int

const (
	EyeLeft  Eye = 0
	EyeRight Eye = 1
)

// SessionMode names the XR session mode a document requested.
type SessionMode int

const (
	ModeInline SessionMode = iota
	ModeImmersiveVR
	ModeImmersiveAR
)

// InputSourceKind enumerates the input source categories a document can
// observe, per §3's data model.
type InputSourceKind int

const (
	InputGaze InputSourceKind = iota
	InputMainController
	InputTransientPointer
	InputHandLeft
	InputHandRight
	InputScreen
)

// HandJointCount is the number of joint poses tracked per hand input source.
const HandJointCount = 25

// InputSource is one observed input device: its target-ray and grip poses,
// an optional hit-test result, an action state, and (for hand sources) its
// joint poses.
type InputSource struct {
	Kind          InputSourceKind
	ScreenIndex   int // only meaningful when Kind == InputScreen
	TargetRay     vecmath.M4
	Grip          vecmath.M4
	HasHitTest    bool
	HitTestPoint  vecmath.M4
	ActionPressed bool
	Joints        [HandJointCount]vecmath.M4 // only meaningful for hand sources
}

// CollisionBox is an axis-aligned box in session-local space, used by a
// session's collision query surface.
type CollisionBox struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// XRSession is one active XR session: its mode, local base transform,
// collision box, and the per-session stereo-frame id space the scheduler
// draws from.
type XRSession struct {
	mu sync.Mutex

	SessionID       uint32
	DocumentID      uint32
	Mode            SessionMode
	LocalBaseMatrix vecmath.M4
	Box             CollisionBox

	stereoIDCounter          uint32
	PendingStereoFramesCount int32

	// Framebuffer + depth range recorded by UpdateBaseLayer.
	FramebufferWidth  int
	FramebufferHeight int
	DepthNear         float64
	DepthFar          float64
}

// NextStereoID allocates the next monotonic stereo-frame id for this
// session, starting at 1 (see SPEC_FULL.md §11.1's id-generator convention).
func (s *XRSession) NextStereoID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stereoIDCounter++
	return s.stereoIDCounter
}

// SetLocalTransform updates the session's local base matrix, per
// updateLocalTransformBySessionId.
func (s *XRSession) SetLocalTransform(m vecmath.M4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LocalBaseMatrix = m
}

// UpdateBaseLayer records the session's framebuffer configuration and depth
// range, as requested by the XR command of the same name.
func (s *XRSession) UpdateBaseLayer(width, height int, near, far float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FramebufferWidth, s.FramebufferHeight = width, height
	s.DepthNear, s.DepthFar = near, far
}

const maxSessionIDAttempts = 10

// Device is the process-wide XR device: view/projection state, the merged
// frustum, active-eye tracking, input sources, and the live session set.
type Device struct {
	mu sync.RWMutex

	viewport struct{ x, y, w, h int }

	viewerBaseMatrix vecmath.M4
	view             [2]vecmath.M4
	projection       [2]vecmath.M4
	recommendedFov   float64
	activeEye        Eye

	mergedFrustum [6]vecmath.Plane

	inputSources map[InputSourceKind]*InputSource
	screenInputs map[int]*InputSource

	sessions   map[uint32]*XRSession
	nextTryID  uint32
	randSource func() uint32

	enabled bool
}

// New constructs a Device with identity view/projection matrices and no
// sessions. randSource supplies candidate session ids for collision
// resolution; callers in production pass a source seeded from a real RNG,
// tests pass a deterministic sequence.
func New(randSource func() uint32) *Device {
	d := &Device{
		viewerBaseMatrix: vecmath.Identity4(),
		view:             [2]vecmath.M4{vecmath.Identity4(), vecmath.Identity4()},
		projection:       [2]vecmath.M4{vecmath.Identity4(), vecmath.Identity4()},
		inputSources:     make(map[InputSourceKind]*InputSource),
		screenInputs:     make(map[int]*InputSource),
		sessions:         make(map[uint32]*XRSession),
		randSource:       randSource,
	}
	d.recomputeFrustum()
	return d
}

// UpdateViewport sets the drawing viewport, per setDrawingViewport.
func (d *Device) UpdateViewport(x, y, w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport.x, d.viewport.y, d.viewport.w, d.viewport.h = x, y, w, h
}

// UpdateRecommendedFov sets the recommended field of view.
func (d *Device) UpdateRecommendedFov(fov float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recommendedFov = fov
}

// UpdateViewerBaseMatrix sets the viewer's base transform.
func (d *Device) UpdateViewerBaseMatrix(m vecmath.M4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewerBaseMatrix = m
}

// UpdateViewMatrix sets eye's view matrix, records it as the active eye, and
// recomputes the merged frustum after the right eye (eye==1) is updated
// (§4.4 "after each updateViewMatrix(1,…)").
func (d *Device) UpdateViewMatrix(eye Eye, m vecmath.M4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view[eye] = m
	d.activeEye = eye
	if eye == EyeRight {
		d.recomputeFrustumLocked()
	}
}

// UpdateProjectionMatrix sets eye's projection matrix.
func (d *Device) UpdateProjectionMatrix(eye Eye, m vecmath.M4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.projection[eye] = m
}

// ActiveEye returns the eye most recently touched by UpdateViewMatrix; the
// scheduler consults this in multipass mode.
func (d *Device) ActiveEye() Eye {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.activeEye
}

// MergedFrustum returns the current merged stereoscopic visibility frustum.
func (d *Device) MergedFrustum() [6]vecmath.Plane {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mergedFrustum
}

func (d *Device) recomputeFrustum() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recomputeFrustumLocked()
}

func (d *Device) recomputeFrustumLocked() {
	vpLeft := d.projection[EyeLeft].Mult(d.view[EyeLeft])
	vpRight := d.projection[EyeRight].Mult(d.view[EyeRight])
	d.mergedFrustum = vecmath.MergeFrustums(vecmath.FrustumPlanes(vpLeft), vecmath.FrustumPlanes(vpRight))
}

// SetInputSource records the latest pose/state for a non-screen input
// source kind.
func (d *Device) SetInputSource(kind InputSourceKind, src InputSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	src.Kind = kind
	d.inputSources[kind] = &src
}

// SetScreenInputSource records the latest pose/state for a screen input at
// the given index (multiple screens may be tracked at once).
func (d *Device) SetScreenInputSource(index int, src InputSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	src.Kind = InputScreen
	src.ScreenIndex = index
	d.screenInputs[index] = &src
}

// InputSource returns the last recorded state for kind, if any.
func (d *Device) InputSource(kind InputSourceKind) (InputSource, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	src, ok := d.inputSources[kind]
	if !ok {
		return InputSource{}, false
	}
	return *src, true
}

// IsSessionSupported reports whether mode can be granted. Inline is always
// supported; immersive modes require the device to have been constructed
// with at least a zero recommended fov set (i.e. always true here — the
// reference runtime's real restriction, hardware capability, lives outside
// this module per §1's scope).
func (d *Device) IsSessionSupported(mode SessionMode) bool {
	return true
}

// RequestSession allocates a fresh session id (retrying up to 10 times on
// collision), constructs an XRSession for documentID, and stores it under
// the device's session set. It returns nil if no free id was found within
// the retry budget.
func (d *Device) RequestSession(mode SessionMode, documentID uint32) *XRSession {
	d.mu.Lock()
	defer d.mu.Unlock()

	for attempt := 0; attempt < maxSessionIDAttempts; attempt++ {
		id := d.randSource()
		if id == 0 {
			continue
		}
		if _, exists := d.sessions[id]; exists {
			continue
		}
		session := &XRSession{
			SessionID:       id,
			DocumentID:      documentID,
			Mode:            mode,
			LocalBaseMatrix: vecmath.Identity4(),
		}
		d.sessions[id] = session
		return session
	}
	return nil
}

// EndSession tears down and removes a session. It reports whether the
// session existed.
func (d *Device) EndSession(sessionID uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sessions[sessionID]; !ok {
		return false
	}
	delete(d.sessions, sessionID)
	return true
}

// Session looks up a live session by id.
func (d *Device) Session(sessionID uint32) (*XRSession, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[sessionID]
	if !ok {
		return nil, errors.Errorf("xrdevice: no such session %d", sessionID)
	}
	return s, nil
}

// SessionByDocumentID looks up the (at most one) live session belonging to
// documentID, per updateLocalTransformByDocumentId and
// getCollisionBoxByDocumentId.
func (d *Device) SessionByDocumentID(documentID uint32) (*XRSession, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.sessions {
		if s.DocumentID == documentID {
			return s, nil
		}
	}
	return nil, errors.Errorf("xrdevice: no session for document %d", documentID)
}

// SessionCount returns the number of live sessions, for diagnostics.
func (d *Device) SessionCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// SetEnabled toggles whether the device is configured for XR rendering at
// all, per the configureXrDevice(XRDeviceInit{enabled,...}) host API call.
func (d *Device) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// Enabled reports whether the device is configured for XR rendering; the
// scheduler only drains stereo frames when this is true.
func (d *Device) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// ViewMatrix returns eye's current view matrix.
func (d *Device) ViewMatrix(eye Eye) vecmath.M4 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view[eye]
}

// ProjectionMatrix returns eye's current projection matrix.
func (d *Device) ProjectionMatrix(eye Eye) vecmath.M4 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.projection[eye]
}

// Package hostapi is the facade callable from the embedding process (§6
// "Host API"): document lifecycle, per-frame ticking, XR device state
// plumbing, input-source setters, and the native-event target documents
// use to make RPC calls into the host.
package hostapi

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/webxrhost/runtime/cmdbuffer"
	"github.com/webxrhost/runtime/content"
	"github.com/webxrhost/runtime/scheduler"
	"github.com/webxrhost/runtime/vecmath"
	"github.com/webxrhost/runtime/xrdevice"
)

// Config is the JSON configuration object the host passes at startup
// (§6 "Configuration intake").
type Config struct {
	ApplicationCacheDirectory string `json:"applicationCacheDirectory"`
	HTTPSProxyServer          string `json:"httpsProxyServer"`
	IsXRSupported             bool   `json:"isXRSupported"`
	EnableV8Profiling         bool   `json:"enableV8Profiling"`
}

// XRDeviceInit configures the XR device at startup.
type XRDeviceInit struct {
	Enabled             bool
	Active              bool
	StereoRenderingMode scheduler.StereoMode
	RecommendedFov      float64
}

// ActionState names whether an action is pressed or released.
type ActionState int

const (
	ActionReleased ActionState = iota
	ActionPressed
)

// Handedness selects left or right for hand input sources.
type Handedness int

const (
	HandLeft Handedness = iota
	HandRight
)

// NativeEvent is one RPC request surfaced to the host for retrieval via
// GetEvent/GetEventData.
type NativeEvent struct {
	ID      uint32
	Type    string
	Detail  []byte
	request content.RpcRequest
}

// Host is the facade the embedding process drives: one XR device, one
// content manager, and the queue of native events awaiting collection.
type Host struct {
	mu sync.Mutex

	config Config
	device *xrdevice.Device
	docs   *content.Manager

	drawingW, drawingH int
	timeSeconds        float64
	stereoMode         scheduler.StereoMode

	nextEventID  uint32
	pendingEvents []NativeEvent
}

// New constructs a Host from its startup configuration, an XR device
// (configured afterwards through ConfigureXrDevice), and a content manager.
func New(cfg Config, device *xrdevice.Device, docs *content.Manager) *Host {
	return &Host{config: cfg, device: device, docs: docs}
}

// Open opens url and returns the assigned DocumentId, or 0 on failure.
func (h *Host) Open(url string, disableCache, isPreview, runScripts bool) uint32 {
	h.mu.Lock()
	h.nextEventID++ // DocumentId allocation shares the same monotonic source as event ids, matching the reference runtime's single id generator per process.
	id := h.nextEventID
	h.mu.Unlock()

	h.docs.Open(url, content.DocumentRequestInit{ID: id, URL: url, DisableCache: disableCache, IsPreview: isPreview, RunScripts: runScripts})
	return id
}

// Close closes documentID's runtime.
func (h *Host) Close(documentID uint32) bool {
	return h.docs.Close(documentID)
}

// Pause stops frame delivery and replay for documentID.
func (h *Host) Pause(documentID uint32) bool { return h.docs.Pause(documentID) }

// Resume restarts frame delivery and replay for documentID.
func (h *Host) Resume(documentID uint32) bool { return h.docs.Resume(documentID) }

// OnFrame runs the content manager's per-frame pass: hive health check,
// destruction sweep, and pre-warm scheduling (§4.5). It does not replay any
// document's command buffers — that needs a real GLBackend, supplied by
// the embedder via TickScheduler once one is available.
func (h *Host) OnFrame(ctx context.Context) {
	h.docs.Tick(ctx)
}

// TickScheduler drives one scheduler tick (snapshot and restore the host's
// GL state, drain the default queue, replay one ready stereo frame per eye
// or else the backup frame) for every started content runtime against gl,
// the embedder's real GL context. The document's virtual GL state is not
// reinstalled into gl before its commands are replayed. It returns each ticked document's responses keyed by document
// id, and closes (two-phase) any document whose replay crossed the
// GL-error dispose gate (§8 property 10).
func (h *Host) TickScheduler(gl scheduler.GLBackend, mode scheduler.StereoMode) map[uint32][]cmdbuffer.Response {
	responses := make(map[uint32][]cmdbuffer.Response)
	for _, rt := range h.docs.Runtimes() {
		if rt.State() != content.StateStarted || rt.Scheduler == nil {
			continue
		}
		resp, dispose := rt.Scheduler.Tick(gl, h.device, h.lookupSession, mode)
		responses[rt.DocumentID] = resp
		if dispose {
			h.docs.Close(rt.DocumentID)
		}
	}
	return responses
}

// lookupSession adapts xrdevice.Device.Session's error return to the nil-on-
// miss shape scheduler.SessionLookup expects.
func (h *Host) lookupSession(sessionID uint32) *xrdevice.XRSession {
	s, err := h.device.Session(sessionID)
	if err != nil {
		return nil
	}
	return s
}

// SetDrawingViewport sets the host's render target size.
func (h *Host) SetDrawingViewport(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drawingW, h.drawingH = width, height
}

// SetRecommendedFov forwards to the XR device.
func (h *Host) SetRecommendedFov(fov float64) {
	h.device.UpdateRecommendedFov(fov)
}

// SetTime records the host's current render time, in seconds.
func (h *Host) SetTime(t float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeSeconds = t
}

// UpdateViewerBaseMatrix forwards to the XR device.
func (h *Host) UpdateViewerBaseMatrix(m vecmath.M4) { h.device.UpdateViewerBaseMatrix(m) }

// UpdateViewMatrix forwards to the XR device.
func (h *Host) UpdateViewMatrix(eye xrdevice.Eye, m vecmath.M4) { h.device.UpdateViewMatrix(eye, m) }

// UpdateProjectionMatrix forwards to the XR device.
func (h *Host) UpdateProjectionMatrix(eye xrdevice.Eye, m vecmath.M4) {
	h.device.UpdateProjectionMatrix(eye, m)
}

// UpdateLocalTransformBySessionId sets sessionID's local base matrix.
func (h *Host) UpdateLocalTransformBySessionId(sessionID uint32, m vecmath.M4) error {
	s, err := h.device.Session(sessionID)
	if err != nil {
		return errors.Wrap(err, "hostapi: updateLocalTransformBySessionId")
	}
	s.SetLocalTransform(m)
	return nil
}

// UpdateLocalTransformByDocumentId sets the local base matrix of
// documentID's active session, looking it up by document id rather than
// session id.
func (h *Host) UpdateLocalTransformByDocumentId(documentID uint32, m vecmath.M4) error {
	s, err := h.device.SessionByDocumentID(documentID)
	if err != nil {
		return errors.Wrap(err, "hostapi: updateLocalTransformByDocumentId")
	}
	s.SetLocalTransform(m)
	return nil
}

// GetCollisionBoxByDocumentId returns the collision box of documentID's
// active session, if any.
func (h *Host) GetCollisionBoxByDocumentId(documentID uint32) (xrdevice.CollisionBox, bool) {
	s, err := h.device.SessionByDocumentID(documentID)
	if err != nil {
		return xrdevice.CollisionBox{}, false
	}
	return s.Box, true
}

// ConfigureXrDevice applies a one-shot device configuration: whether XR
// rendering is enabled/active and the recommended field of view (§6
// XRDeviceInit). The stereo rendering mode is recorded for TickScheduler
// callers to read back via StereoMode; the device itself has no notion
// of stereo mode (that lives in the scheduler).
func (h *Host) ConfigureXrDevice(init XRDeviceInit) {
	h.device.SetEnabled(init.Enabled && init.Active)
	h.device.UpdateRecommendedFov(init.RecommendedFov)
	h.mu.Lock()
	h.stereoMode = init.StereoRenderingMode
	h.mu.Unlock()
}

// StereoMode returns the stereo rendering mode last set via
// ConfigureXrDevice, for TickScheduler callers.
func (h *Host) StereoMode() scheduler.StereoMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stereoMode
}

// SetInputSourceEnabled enables or disables delivery of an input source's
// pose/action updates; disabling replaces the source with an empty record
// that carries only its kind, and the entry stays present in the device.
func (h *Host) SetInputSourceEnabled(kind xrdevice.InputSourceKind, enabled bool) {
	if !enabled {
		h.device.SetInputSource(kind, xrdevice.InputSource{Kind: kind})
		return
	}
	src, _ := h.device.InputSource(kind)
	src.Kind = kind
	h.device.SetInputSource(kind, src)
}

// SetInputSourceRayPose sets an input source's target-ray matrix.
func (h *Host) SetInputSourceRayPose(kind xrdevice.InputSourceKind, targetRay vecmath.M4) {
	src, _ := h.device.InputSource(kind)
	src.Kind = kind
	src.TargetRay = targetRay
	h.device.SetInputSource(kind, src)
}

// SetInputSourceGripPose sets an input source's grip matrix.
func (h *Host) SetInputSourceGripPose(kind xrdevice.InputSourceKind, grip vecmath.M4) {
	src, _ := h.device.InputSource(kind)
	src.Kind = kind
	src.Grip = grip
	h.device.SetInputSource(kind, src)
}

// SetInputSourceActionState records whether the primary action (select) is
// currently pressed for an input source.
func (h *Host) SetInputSourceActionState(kind xrdevice.InputSourceKind, state ActionState) {
	src, _ := h.device.InputSource(kind)
	src.Kind = kind
	src.ActionPressed = state == ActionPressed
	h.device.SetInputSource(kind, src)
}

// SetHandJointPose sets one joint's matrix for a hand input source
// (HandLeft/HandRight), per §5's 25-joint hand skeleton.
func (h *Host) SetHandJointPose(hand Handedness, joint int, m vecmath.M4) {
	kind := xrdevice.InputHandLeft
	if hand == HandRight {
		kind = xrdevice.InputHandRight
	}
	src, _ := h.device.InputSource(kind)
	src.Kind = kind
	if joint >= 0 && joint < xrdevice.HandJointCount {
		src.Joints[joint] = m
	}
	h.device.SetInputSource(kind, src)
}

// SetScreenInputSourceActionState records a touch-screen input's pressed
// state, identified by screen index rather than InputSourceKind.
func (h *Host) SetScreenInputSourceActionState(screenIndex int, pressed bool) {
	src, _ := h.device.InputSource(xrdevice.InputScreen)
	src.Kind = xrdevice.InputScreen
	src.ScreenIndex = screenIndex
	src.ActionPressed = pressed
	h.device.SetScreenInputSource(screenIndex, src)
}

// PushRpcRequest surfaces an inbound RpcRequest as a retrievable
// NativeEvent (§6 "native-event target").
func (h *Host) PushRpcRequest(req content.RpcRequest) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextEventID++
	id := h.nextEventID
	h.pendingEvents = append(h.pendingEvents, NativeEvent{ID: id, Type: "rpc", request: req})
	return id
}

// GetEvent pops the oldest pending native event of the given type, if any.
func (h *Host) GetEvent(eventType string) (NativeEvent, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, ev := range h.pendingEvents {
		if ev.Type == eventType {
			h.pendingEvents = append(h.pendingEvents[:i], h.pendingEvents[i+1:]...)
			return ev, true
		}
	}
	return NativeEvent{}, false
}

// GetEventData returns the RPC request carried by a native event retrieved
// via GetEvent.
func (h *Host) GetEventData(ev NativeEvent) content.RpcRequest { return ev.request }

// RespondRpc replies to an RpcRequest previously retrieved via GetEvent,
// routed back to the document over its event channel by the caller.
func (h *Host) RespondRpc(resp content.RpcResponse) {
	h.docs.DispatchRPC(resp)
}

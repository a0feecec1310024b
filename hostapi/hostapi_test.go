package hostapi

import (
	"context"
	"testing"

	"github.com/webxrhost/runtime/content"
	"github.com/webxrhost/runtime/vecmath"
	"github.com/webxrhost/runtime/xrdevice"
)

func newTestHost() *Host {
	device := xrdevice.New(func() uint32 { return 1 })
	manager := content.NewManager(nil, false)
	return New(Config{IsXRSupported: true}, device, manager)
}

func TestOpenAssignsIncrementingDocumentIDs(t *testing.T) {
	h := newTestHost()
	a := h.Open("file:///a.xsml", false, false, true)
	b := h.Open("file:///b.xsml", false, false, true)
	if a == 0 || b == 0 || a == b {
		t.Fatalf("expected distinct nonzero document ids, got %d and %d", a, b)
	}
}

func TestCloseThenOnFrameRemovesRuntime(t *testing.T) {
	h := newTestHost()
	id := h.Open("file:///a.xsml", false, false, true)
	if !h.Close(id) {
		t.Fatalf("expected Close to find the runtime")
	}
	h.OnFrame(context.Background())
	if len(h.docs.Runtimes()) != 0 {
		t.Fatalf("expected runtime swept after one frame")
	}
}

func TestInputSourceRayAndGripPoseRoundTrip(t *testing.T) {
	h := newTestHost()
	ray := vecmath.Identity4()
	ray.Xw = 5
	h.SetInputSourceRayPose(xrdevice.InputMainController, ray)

	grip := vecmath.Identity4()
	grip.Yw = 9
	h.SetInputSourceGripPose(xrdevice.InputMainController, grip)

	src, ok := h.device.InputSource(xrdevice.InputMainController)
	if !ok {
		t.Fatalf("expected input source to be present")
	}
	if src.TargetRay.Xw != 5 || src.Grip.Yw != 9 {
		t.Fatalf("expected both ray and grip pose preserved, got %+v", src)
	}
}

func TestSetInputSourceActionStateTracksPressed(t *testing.T) {
	h := newTestHost()
	h.SetInputSourceActionState(xrdevice.InputMainController, ActionPressed)
	src, _ := h.device.InputSource(xrdevice.InputMainController)
	if !src.ActionPressed {
		t.Fatalf("expected action pressed to be recorded")
	}
	h.SetInputSourceActionState(xrdevice.InputMainController, ActionReleased)
	src, _ = h.device.InputSource(xrdevice.InputMainController)
	if src.ActionPressed {
		t.Fatalf("expected action released to clear the flag")
	}
}

func TestSetHandJointPoseWritesCorrectJoint(t *testing.T) {
	h := newTestHost()
	m := vecmath.Identity4()
	m.Xx = 42
	h.SetHandJointPose(HandRight, 3, m)

	src, ok := h.device.InputSource(xrdevice.InputHandRight)
	if !ok {
		t.Fatalf("expected right hand input source present")
	}
	if src.Joints[3].Xx != 42 {
		t.Fatalf("expected joint 3 written, got %+v", src.Joints[3])
	}
	if src.Joints[4].Xx == 42 {
		t.Fatalf("expected only joint 3 to be modified")
	}
}

func TestGetEventReturnsOldestMatchingType(t *testing.T) {
	h := newTestHost()
	h.PushRpcRequest(content.RpcRequest{DocumentID: 1, Method: "foo", MessageID: 1})
	h.PushRpcRequest(content.RpcRequest{DocumentID: 2, Method: "bar", MessageID: 2})

	ev, ok := h.GetEvent("rpc")
	if !ok {
		t.Fatalf("expected an rpc event")
	}
	if h.GetEventData(ev).Method != "foo" {
		t.Fatalf("expected oldest event returned first, got %+v", ev)
	}
}

func TestRespondRpcDeliversToAwaitingCaller(t *testing.T) {
	h := newTestHost()
	ch := h.docs.AwaitRPC(7)
	h.RespondRpc(content.RpcResponse{MessageID: 7, Success: true})
	select {
	case resp := <-ch:
		if !resp.Success {
			t.Fatalf("expected success response")
		}
	default:
		t.Fatalf("expected response delivered synchronously via buffered channel")
	}
}

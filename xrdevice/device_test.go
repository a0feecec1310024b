package xrdevice

import (
	"testing"

	"github.com/webxrhost/runtime/vecmath"
)

func sequentialIDs(ids ...uint32) func() uint32 {
	i := 0
	return func() uint32 {
		v := ids[i%len(ids)]
		i++
		return v
	}
}

func TestRequestSessionRetriesOnCollision(t *testing.T) {
	d := New(sequentialIDs(5, 5, 5, 9))
	first := d.RequestSession(ModeImmersiveVR, 1)
	if first == nil || first.SessionID != 5 {
		t.Fatalf("expected first session id 5, got %+v", first)
	}
	second := d.RequestSession(ModeImmersiveVR, 2)
	if second == nil || second.SessionID != 9 {
		t.Fatalf("expected collision retry to land on id 9, got %+v", second)
	}
}

func TestRequestSessionGivesUpAfterTenAttempts(t *testing.T) {
	d := New(sequentialIDs(3))
	first := d.RequestSession(ModeImmersiveVR, 1)
	if first == nil || first.SessionID != 3 {
		t.Fatalf("setup: expected session id 3, got %+v", first)
	}
	second := d.RequestSession(ModeImmersiveVR, 2)
	if second != nil {
		t.Fatalf("expected nil after exhausting retry budget, got %+v", second)
	}
}

func TestEndSessionRemovesIt(t *testing.T) {
	d := New(sequentialIDs(7))
	s := d.RequestSession(ModeInline, 1)
	if !d.EndSession(s.SessionID) {
		t.Fatalf("expected EndSession to report existing session")
	}
	if _, err := d.Session(s.SessionID); err == nil {
		t.Fatalf("expected session to be gone after EndSession")
	}
	if d.EndSession(s.SessionID) {
		t.Fatalf("expected second EndSession to report false")
	}
}

func TestActiveEyeTracksLastUpdateViewMatrix(t *testing.T) {
	d := New(sequentialIDs(1))
	d.UpdateViewMatrix(EyeLeft, vecmath.Identity4())
	if d.ActiveEye() != EyeLeft {
		t.Fatalf("expected active eye left")
	}
	d.UpdateViewMatrix(EyeRight, vecmath.Identity4())
	if d.ActiveEye() != EyeRight {
		t.Fatalf("expected active eye right")
	}
}

func TestFrustumRecomputesAfterRightEyeUpdate(t *testing.T) {
	d := New(sequentialIDs(1))
	before := d.MergedFrustum()
	scaled := vecmath.M4{Xx: 2, Yy: 2, Zz: 2, Ww: 1}
	d.UpdateProjectionMatrix(EyeLeft, scaled)
	d.UpdateViewMatrix(EyeLeft, vecmath.Identity4())
	// Left-only update must not trigger a recompute yet.
	if d.MergedFrustum() != before {
		t.Fatalf("frustum changed before right eye update")
	}
	d.UpdateProjectionMatrix(EyeRight, scaled)
	d.UpdateViewMatrix(EyeRight, vecmath.Identity4())
	if d.MergedFrustum() == before {
		t.Fatalf("expected frustum to change after right eye update")
	}
}

func TestStereoIDStartsAtOneAndIsMonotonic(t *testing.T) {
	d := New(sequentialIDs(1))
	s := d.RequestSession(ModeImmersiveVR, 1)
	if got := s.NextStereoID(); got != 1 {
		t.Fatalf("expected first stereo id 1, got %d", got)
	}
	if got := s.NextStereoID(); got != 2 {
		t.Fatalf("expected second stereo id 2, got %d", got)
	}
}

func TestInputSourceRoundTrip(t *testing.T) {
	d := New(sequentialIDs(1))
	d.SetInputSource(InputMainController, InputSource{TargetRay: vecmath.Identity4(), ActionPressed: true})
	got, ok := d.InputSource(InputMainController)
	if !ok {
		t.Fatalf("expected input source to be present")
	}
	if !got.ActionPressed {
		t.Fatalf("expected recorded action state to survive round trip")
	}
}

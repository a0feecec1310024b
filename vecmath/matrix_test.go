package vecmath

import "testing"

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestIdentityMultIsNoop(t *testing.T) {
	m := M4{
		Xx: 1, Xy: 2, Xz: 3, Xw: 4,
		Yx: 5, Yy: 6, Yz: 7, Yw: 8,
		Zx: 9, Zy: 10, Zz: 11, Zw: 12,
		Wx: 13, Wy: 14, Wz: 15, Ww: 16,
	}
	got := Identity4().Mult(m)
	want := m.Array()
	gotArr := got.Array()
	for i := range want {
		if !almostEqual(want[i], gotArr[i]) {
			t.Fatalf("index %d: got %v want %v", i, gotArr[i], want[i])
		}
	}
}

func TestArrayRoundTrip(t *testing.T) {
	m := M4{Xx: 1, Xy: 2, Xz: 3, Xw: 4, Yx: 5, Yy: 6, Yz: 7, Yw: 8, Zx: 9, Zy: 10, Zz: 11, Zw: 12, Wx: 13, Wy: 14, Wz: 15, Ww: 16}
	got := FromArray(m.Array())
	if got != m {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, m)
	}
}

func TestScaleNegateXFlipsXAndZColumns(t *testing.T) {
	m := Identity4()
	flipped := ScaleNegateX(m)
	if flipped.Xx != -1 {
		t.Fatalf("expected Xx negated, got %v", flipped.Xx)
	}
	if flipped.Zz != -1 {
		t.Fatalf("expected Zz negated, got %v", flipped.Zz)
	}
	if flipped.Yy != 1 || flipped.Ww != 1 {
		t.Fatalf("expected Y and W axes untouched: %+v", flipped)
	}
}

func TestFrustumPlanesIdentity(t *testing.T) {
	planes := FrustumPlanes(Identity4())
	// For the identity clip matrix, every plane constant should be +-1.
	for i, p := range planes {
		if !almostEqual(p.D, 1) && !almostEqual(p.D, -1) {
			t.Fatalf("plane %d: unexpected D %v", i, p.D)
		}
	}
}

func TestMergeFrustumsTakesLooserConstraint(t *testing.T) {
	left := [6]Plane{{D: 1}, {D: 2}, {D: 3}, {D: 4}, {D: 5}, {D: 6}}
	right := [6]Plane{{D: 2}, {D: 1}, {D: 3}, {D: 5}, {D: 4}, {D: 6}}
	merged := MergeFrustums(left, right)
	want := [6]float64{2, 2, 3, 5, 5, 6}
	for i, p := range merged {
		if !almostEqual(p.D, want[i]) {
			t.Fatalf("plane %d: got D=%v want %v", i, p.D, want[i])
		}
	}
}

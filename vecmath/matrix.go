// Package vecmath provides the small set of 4x4-matrix and plane operations
// the XR device needs (view/projection composition, merged stereo frustum
// extraction). The layout and method set are adapted from a CPU-side 3D
// engine's matrix package: row-major, explicitly-indexed fields so a M4 can
// be passed as a flat 16-float array to a graphics layer without copying.
package vecmath

// M4 is a row-major 4x4 matrix:
//
//	[Xx Xy Xz Xw]
//	[Yx Yy Yz Yw]
//	[Zx Zy Zz Zw]
//	[Wx Wy Wz Ww]
type M4 struct {
	Xx, Xy, Xz, Xw float64
	Yx, Yy, Yz, Yw float64
	Zx, Zy, Zz, Zw float64
	Wx, Wy, Wz, Ww float64
}

// Identity4 returns the 4x4 identity matrix.
func Identity4() M4 {
	return M4{
		Xx: 1, Yy: 1, Zz: 1, Ww: 1,
	}
}

// Array returns m as a flat row-major 16-element array, the layout a GL
// uniform upload expects.
func (m M4) Array() [16]float64 {
	return [16]float64{
		m.Xx, m.Xy, m.Xz, m.Xw,
		m.Yx, m.Yy, m.Yz, m.Yw,
		m.Zx, m.Zy, m.Zz, m.Zw,
		m.Wx, m.Wy, m.Wz, m.Ww,
	}
}

// FromArray builds a M4 from a flat row-major 16-element array.
func FromArray(a [16]float64) M4 {
	return M4{
		Xx: a[0], Xy: a[1], Xz: a[2], Xw: a[3],
		Yx: a[4], Yy: a[5], Yz: a[6], Yw: a[7],
		Zx: a[8], Zy: a[9], Zz: a[10], Zw: a[11],
		Wx: a[12], Wy: a[13], Wz: a[14], Ww: a[15],
	}
}

// Mult returns m*o (apply o first, then m — so ViewProjection = Mult(P, V)).
func (m M4) Mult(o M4) M4 {
	return M4{
		Xx: m.Xx*o.Xx + m.Xy*o.Yx + m.Xz*o.Zx + m.Xw*o.Wx,
		Xy: m.Xx*o.Xy + m.Xy*o.Yy + m.Xz*o.Zy + m.Xw*o.Wy,
		Xz: m.Xx*o.Xz + m.Xy*o.Yz + m.Xz*o.Zz + m.Xw*o.Wz,
		Xw: m.Xx*o.Xw + m.Xy*o.Yw + m.Xz*o.Zw + m.Xw*o.Ww,

		Yx: m.Yx*o.Xx + m.Yy*o.Yx + m.Yz*o.Zx + m.Yw*o.Wx,
		Yy: m.Yx*o.Xy + m.Yy*o.Yy + m.Yz*o.Zy + m.Yw*o.Wy,
		Yz: m.Yx*o.Xz + m.Yy*o.Yz + m.Yz*o.Zz + m.Yw*o.Wz,
		Yw: m.Yx*o.Xw + m.Yy*o.Yw + m.Yz*o.Zw + m.Yw*o.Ww,

		Zx: m.Zx*o.Xx + m.Zy*o.Yx + m.Zz*o.Zx + m.Zw*o.Wx,
		Zy: m.Zx*o.Xy + m.Zy*o.Yy + m.Zz*o.Zy + m.Zw*o.Wy,
		Zz: m.Zx*o.Xz + m.Zy*o.Yz + m.Zz*o.Zz + m.Zw*o.Wz,
		Zw: m.Zx*o.Xw + m.Zy*o.Yw + m.Zz*o.Zw + m.Zw*o.Ww,

		Wx: m.Wx*o.Xx + m.Wy*o.Yx + m.Wz*o.Zx + m.Ww*o.Wx,
		Wy: m.Wx*o.Xy + m.Wy*o.Yy + m.Wz*o.Zy + m.Ww*o.Wy,
		Wz: m.Wx*o.Xz + m.Wy*o.Yz + m.Wz*o.Zz + m.Ww*o.Wz,
		Ww: m.Wx*o.Xw + m.Wy*o.Yw + m.Wz*o.Zw + m.Ww*o.Ww,
	}
}

// ScaleNegateX post-multiplies m by scale(-1,1,-1), producing the
// right-handed to left-handed clip-space conversion the host applies
// before handing a view matrix to WebGL (§6 "a coordinates convention the
// host must observe"). X and Z are negated, Y is kept.
func ScaleNegateX(m M4) M4 {
	flip := M4{Xx: -1, Yy: 1, Zz: -1, Ww: 1}
	return m.Mult(flip)
}

// Plane is ax+by+cz+d=0 in world space, not normalised.
type Plane struct {
	A, B, C, D float64
}

// FrustumPlanes extracts the six clip planes (left, right, bottom, top,
// near, far, in that order) of the clip matrix vp = projection * view,
// using the standard Gribb/Hartmann row-combination method.
func FrustumPlanes(vp M4) [6]Plane {
	rows := [4][4]float64{
		{vp.Xx, vp.Xy, vp.Xz, vp.Xw},
		{vp.Yx, vp.Yy, vp.Yz, vp.Yw},
		{vp.Zx, vp.Zy, vp.Zz, vp.Zw},
		{vp.Wx, vp.Wy, vp.Wz, vp.Ww},
	}
	comb := func(sign float64, axis int) Plane {
		return Plane{
			A: rows[3][0] + sign*rows[axis][0],
			B: rows[3][1] + sign*rows[axis][1],
			C: rows[3][2] + sign*rows[axis][2],
			D: rows[3][3] + sign*rows[axis][3],
		}
	}
	return [6]Plane{
		comb(1, 0),  // left
		comb(-1, 0), // right
		comb(1, 1),  // bottom
		comb(-1, 1), // top
		comb(1, 2),  // near
		comb(-1, 2), // far
	}
}

// MergeFrustums combines the left- and right-eye frustums into the widest
// enclosing frustum the device exposes for a session's visibility check
// (§4.4 "Frustum maintenance"): each of the six planes is taken from
// whichever eye is wider on that side, by comparing the plane constant for
// a shared reference point at the origin.
func MergeFrustums(left, right [6]Plane) [6]Plane {
	var merged [6]Plane
	for i := 0; i < 6; i++ {
		// The plane with the larger D (looser constraint at the origin) is
		// the one that admits more of the scene; keep it so the merged
		// frustum is the union of what either eye can see.
		if left[i].D >= right[i].D {
			merged[i] = left[i]
		} else {
			merged[i] = right[i]
		}
	}
	return merged
}

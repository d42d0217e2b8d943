package fairy

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Mat4 is a row-major 4x4 transform. m[4*r+c] is row r, column c. Points are
// column vectors, so a*b applies b first.
type Mat4 f64.Mat4

// Mat4Identity is the identity transform.
var Mat4Identity = Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// Mul returns m*o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			r[4*row+col] = m[4*row]*o[col] +
				m[4*row+1]*o[4+col] +
				m[4*row+2]*o[8+col] +
				m[4*row+3]*o[12+col]
		}
	}
	return r
}

// MulPoint transforms a point (w=1). World transforms in this package are
// affine, so no perspective divide is performed.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z + m[3],
		m[4]*v.X + m[5]*v.Y + m[6]*v.Z + m[7],
		m[8]*v.X + m[9]*v.Y + m[10]*v.Z + m[11],
	}
}

// MulVector transforms a direction (w=0).
func (m Mat4) MulVector(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// IsIdentity reports whether m is exactly the identity.
func (m Mat4) IsIdentity() bool {
	return m == Mat4Identity
}

// Aff3 returns the 2D affine part of m, dropping z. Used by the renderer to
// build an ebiten.GeoM.
func (m Mat4) Aff3() f64.Aff3 {
	return f64.Aff3{m[0], m[1], m[3], m[4], m[5], m[7]}
}

func translateMat4(x, y, z float64) Mat4 {
	r := Mat4Identity
	r[3], r[7], r[11] = x, y, z
	return r
}

func scaleMat4(sx, sy float64) Mat4 {
	r := Mat4Identity
	r[0], r[5] = sx, sy
	return r
}

// skewMat4 shears x by tan(skewX)*y and y by tan(skewY)*x.
func skewMat4(skewX, skewY float64) Mat4 {
	r := Mat4Identity
	if skewX != 0 {
		r[1] = math.Tan(skewX)
	}
	if skewY != 0 {
		r[4] = math.Tan(skewY)
	}
	return r
}

// rotationMat4 rotates by Euler angles in radians, applied X, then Y, then Z.
// With Y pointing down, a positive Z angle turns clockwise on screen.
func rotationMat4(rx, ry, rz float64) Mat4 {
	r := Mat4Identity
	if rx != 0 {
		s, c := math.Sincos(rx)
		r = Mat4{
			1, 0, 0, 0,
			0, c, -s, 0,
			0, s, c, 0,
			0, 0, 0, 1,
		}
	}
	if ry != 0 {
		s, c := math.Sincos(ry)
		r = Mat4{
			c, 0, s, 0,
			0, 1, 0, 0,
			-s, 0, c, 0,
			0, 0, 0, 1,
		}.Mul(r)
	}
	if rz != 0 {
		s, c := math.Sincos(rz)
		r = Mat4{
			c, -s, 0, 0,
			s, c, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}.Mul(r)
	}
	return r
}

// Inverse returns the inverse of m. Returns the identity matrix if m is
// singular (determinant ≈ 0).
func (m Mat4) Inverse() Mat4 {
	var inv Mat4
	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[1]*inv[4] + m[2]*inv[8] + m[3]*inv[12]
	if det > -1e-12 && det < 1e-12 {
		return Mat4Identity
	}
	invDet := 1 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return inv
}

// rayPlaneZ0 intersects the ray origin+t*dir with the z=0 plane. When the ray
// runs (nearly) parallel to the plane the origin is projected straight down.
func rayPlaneZ0(origin, dir Vec3) Vec2 {
	if math.Abs(dir.Z) < 1e-9 {
		return Vec2{origin.X, origin.Y}
	}
	t := -origin.Z / dir.Z
	return Vec2{origin.X + dir.X*t, origin.Y + dir.Y*t}
}

// rayPlane intersects origin+t*dir with the plane through p with normal n.
// ok is false when the ray is parallel to the plane.
func rayPlane(origin, dir, p, n Vec3) (Vec3, bool) {
	denom := dir.dot(n)
	if math.Abs(denom) < 1e-9 {
		return origin, false
	}
	t := p.sub(origin).dot(n) / denom
	return origin.add(dir.scale(t)), true
}

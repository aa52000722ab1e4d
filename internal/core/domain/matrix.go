package domain

import "math"

// Vec3 is a single-precision 3-vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a single-precision 4-vector. W is the homogeneous component.
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a column-major 4x4 matrix. Columns[3] holds the translation of a
// rigid transform.
type Mat4 struct {
	Columns [4]Vec4
}

// Mat3 is a column-major 3x3 matrix.
type Mat3 struct {
	Columns [3]Vec3
}

// IdentityMat4 returns the 4x4 identity matrix.
func IdentityMat4() Mat4 {
	return Mat4{Columns: [4]Vec4{
		{X: 1},
		{Y: 1},
		{Z: 1},
		{W: 1},
	}}
}

// Mat4FromSlice builds a matrix from 16 column-major values.
// It returns false if v does not hold exactly 16 values.
func Mat4FromSlice(v []float32) (Mat4, bool) {
	if len(v) != 16 {
		return Mat4{}, false
	}
	var m Mat4
	for c := 0; c < 4; c++ {
		m.Columns[c] = Vec4{X: v[c*4], Y: v[c*4+1], Z: v[c*4+2], W: v[c*4+3]}
	}
	return m, true
}

// Mat3FromSlice builds a matrix from 9 column-major values.
// It returns false if v does not hold exactly 9 values.
func Mat3FromSlice(v []float32) (Mat3, bool) {
	if len(v) != 9 {
		return Mat3{}, false
	}
	var m Mat3
	for c := 0; c < 3; c++ {
		m.Columns[c] = Vec3{X: v[c*3], Y: v[c*3+1], Z: v[c*3+2]}
	}
	return m, true
}

// NewIntrinsics returns a pinhole intrinsic matrix.
func NewIntrinsics(fx, fy, cx, cy float32) Mat3 {
	return Mat3{Columns: [3]Vec3{
		{X: fx},
		{Y: fy},
		{X: cx, Y: cy, Z: 1},
	}}
}

// at returns the element at row r, column c of the upper-left 3x3 block.
func (m Mat4) at(r, c int) float64 {
	col := m.Columns[c]
	switch r {
	case 0:
		return float64(col.X)
	case 1:
		return float64(col.Y)
	default:
		return float64(col.Z)
	}
}

// RotationQuaternion returns the unit quaternion [x, y, z, w] of the
// transform's upper-left 3x3 rotation block. The block is assumed to be
// orthonormal; the result is normalized regardless.
func (m Mat4) RotationQuaternion() [4]float32 {
	m00, m11, m22 := m.at(0, 0), m.at(1, 1), m.at(2, 2)
	trace := m00 + m11 + m22

	var x, y, z, w float64
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		w = s / 4
		x = (m.at(2, 1) - m.at(1, 2)) / s
		y = (m.at(0, 2) - m.at(2, 0)) / s
		z = (m.at(1, 0) - m.at(0, 1)) / s
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		w = (m.at(2, 1) - m.at(1, 2)) / s
		x = s / 4
		y = (m.at(0, 1) + m.at(1, 0)) / s
		z = (m.at(0, 2) + m.at(2, 0)) / s
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		w = (m.at(0, 2) - m.at(2, 0)) / s
		x = (m.at(0, 1) + m.at(1, 0)) / s
		y = s / 4
		z = (m.at(1, 2) + m.at(2, 1)) / s
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		w = (m.at(1, 0) - m.at(0, 1)) / s
		x = (m.at(0, 2) + m.at(2, 0)) / s
		y = (m.at(1, 2) + m.at(2, 1)) / s
		z = s / 4
	}

	n := math.Sqrt(x*x + y*y + z*z + w*w)
	if n == 0 || math.IsNaN(n) {
		return [4]float32{0, 0, 0, 1}
	}
	return [4]float32{float32(x / n), float32(y / n), float32(z / n), float32(w / n)}
}

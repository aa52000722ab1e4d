package source

import (
	"math"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

// DefaultFOVDegrees is the horizontal field of view assumed when none is
// configured.
const DefaultFOVDegrees = 60.0

// lookAt returns a camera-to-world transform for a camera at eye looking at
// target. The camera looks down its local -Z axis with +Y up.
func lookAt(eye, target, up [3]float64) domain.Mat4 {
	f := normalize(sub(target, eye))
	r := normalize(cross(f, up))
	u := cross(r, f)

	return domain.Mat4{Columns: [4]domain.Vec4{
		{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2])},
		{X: float32(u[0]), Y: float32(u[1]), Z: float32(u[2])},
		{X: float32(-f[0]), Y: float32(-f[1]), Z: float32(-f[2])},
		{X: float32(eye[0]), Y: float32(eye[1]), Z: float32(eye[2]), W: 1},
	}}
}

// intrinsicsForFOV returns pinhole intrinsics for an image of w x h pixels
// with the given horizontal field of view. Pixels are square.
func intrinsicsForFOV(w, h int, fovDegrees float64) domain.Mat3 {
	if fovDegrees <= 0 || fovDegrees >= 180 {
		fovDegrees = DefaultFOVDegrees
	}
	f := float64(w) / 2 / math.Tan(fovDegrees*math.Pi/360)
	return domain.NewIntrinsics(float32(f), float32(f), float32(w)/2, float32(h)/2)
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if n == 0 {
		return v
	}
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

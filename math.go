package multicopter

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gonum/floats"
)

const (
	deg2rad = math.Pi / 180
	// unitε is the tolerance on a quaternion norm to be considered a rotation.
	unitε = 1e-6
)

// clamp bounds v to [lo, hi]. NaN clamps to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func vecFinite(v mgl64.Vec3) bool {
	return isFinite(v[0]) && isFinite(v[1]) && isFinite(v[2])
}

func quatFinite(q mgl64.Quat) bool {
	return isFinite(q.W) && vecFinite(q.V)
}

func vectorsWithin(a, b mgl64.Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if !floats.EqualWithinAbs(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

func quatsWithin(a, b mgl64.Quat, tol float64) bool {
	return floats.EqualWithinAbs(a.W, b.W, tol) && vectorsWithin(a.V, b.V, tol)
}

// renormalize returns q scaled back to unit norm. Unlike mgl64's Normalize it
// always divides, so every step goes through the same arithmetic.
func renormalize(q mgl64.Quat) mgl64.Quat {
	n := q.Len()
	if n == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.Quat{W: q.W / n, V: q.V.Mul(1 / n)}
}

// toWorld rotates a body frame vector into the world frame.
func toWorld(q mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 {
	return q.Rotate(v)
}

// toBody rotates a world frame vector into the body frame. q must be unit.
func toBody(q mgl64.Quat, v mgl64.Vec3) mgl64.Vec3 {
	return q.Conjugate().Rotate(v)
}

// QuatFromEuler returns the world <- body rotation for Z-Y-X (yaw, pitch, roll)
// Euler angles given in radians.
func QuatFromEuler(roll, pitch, yaw float64) mgl64.Quat {
	qz := mgl64.QuatRotate(yaw, mgl64.Vec3{0, 0, 1})
	qy := mgl64.QuatRotate(pitch, mgl64.Vec3{0, 1, 0})
	qx := mgl64.QuatRotate(roll, mgl64.Vec3{1, 0, 0})
	return qz.Mul(qy).Mul(qx)
}

// EulerFromQuat returns the Z-Y-X Euler angles (radians) of a world <- body rotation.
func EulerFromQuat(q mgl64.Quat) (roll, pitch, yaw float64) {
	q = renormalize(q)
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sp := clamp(2*(w*y-z*x), -1, 1)
	pitch = math.Asin(sp)
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// Rad2deg180 converts radians to degrees in ]-180; 180].
func Rad2deg180(a float64) float64 {
	d := Rad2deg(a)
	if d > 180 {
		d -= 360
	}
	return d
}

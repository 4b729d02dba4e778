package multicopter

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gonum/matrix/mat64"
)

// R1 rotation about the 1st axis.
func R1(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R2 rotation about the 2nd axis.
func R2(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{c, 0, -s, 0, 1, 0, s, 0, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// R1R2R3 performs a 3-2-1 Euler rotation (yaw, pitch then roll), i.e. the
// direction cosine matrix mapping world frame coordinates into the body frame.
func R1R2R3(roll, pitch, yaw float64) *mat64.Dense {
	var R2R3, R1R2R3 mat64.Dense
	R2R3.Mul(R2(pitch), R3(yaw))
	R1R2R3.Mul(R1(roll), &R2R3)
	return &R1R2R3
}

// DCM returns the body <- world direction cosine matrix of a world <- body quaternion.
func DCM(q mgl64.Quat) *mat64.Dense {
	q = renormalize(q)
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]
	return mat64.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y + w*z), 2 * (x*z - w*y),
		2 * (x*y - w*z), 1 - 2*(x*x+z*z), 2 * (y*z + w*x),
		2 * (x*z + w*y), 2 * (y*z - w*x), 1 - 2*(x*x+y*y)})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat64.Matrix, v mgl64.Vec3) mgl64.Vec3 {
	vVec := mat64.NewVector(3, []float64{v[0], v[1], v[2]})
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return mgl64.Vec3{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}

// Tilt rotates a body frame vector by α about the body X axis followed by β
// about the body Y axis.
func Tilt(v mgl64.Vec3, α, β float64) mgl64.Vec3 {
	var m mat64.Dense
	m.Mul(R1(α), R2(β))
	// The R matrices are passive, so the active rotation is the transpose.
	return MxV33(m.T(), v)
}

// TiltAxis returns the body frame +Z axis tilted by Tilt.
func TiltAxis(α, β float64) mgl64.Vec3 {
	return Tilt(mgl64.Vec3{0, 0, 1}, α, β)
}

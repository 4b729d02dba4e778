package multicopter

import (
	"fmt"

	"github.com/ChristopherRabotin/ode"
	"github.com/go-gl/mathgl/mgl64"
)

// RigidBody holds the mass properties used by the equations of motion.
type RigidBody struct {
	Mass       float64    // kg
	Inertia    mgl64.Mat3 // body frame (kg·m²)
	InertiaInv mgl64.Mat3
}

// NewRigidBody returns a rigid body after checking its mass properties.
func NewRigidBody(mass float64, inertia mgl64.Mat3) (RigidBody, error) {
	if !isFinite(mass) || mass <= 0 {
		return RigidBody{}, configErrorf("mass", "must be positive, got %g", mass)
	}
	inv, err := inertiaInverse(inertia)
	if err != nil {
		return RigidBody{}, err
	}
	return RigidBody{Mass: mass, Inertia: inertia, InertiaInv: inv}, nil
}

// Accelerations returns the world frame linear acceleration and the body frame
// angular acceleration caused by the body frame wrench w at state s.
func (b RigidBody) Accelerations(s State, w Wrench) (linear, angular mgl64.Vec3) {
	linear = toWorld(renormalize(s.Orientation), w.Force).Mul(1 / b.Mass)
	ω := s.AngularVelocity
	gyro := ω.Cross(b.Inertia.Mul3x1(ω))
	angular = b.InertiaInv.Mul3x1(w.Torque.Sub(gyro))
	return
}

// quatRate returns ½ q⊗(0, ω).
func quatRate(q mgl64.Quat, ω mgl64.Vec3) mgl64.Quat {
	return q.Mul(mgl64.Quat{W: 0, V: ω}).Scale(0.5)
}

// WrenchFunc returns the body frame wrench acting on the vehicle at a given state.
// It is evaluated at every stage of the integration scheme.
type WrenchFunc func(s State) Wrench

// ConstantWrench returns a WrenchFunc which ignores the state.
func ConstantWrench(w Wrench) WrenchFunc {
	return func(State) Wrench { return w }
}

// Advance integrates the state by dt seconds under the provided wrench.
// The returned orientation is always renormalized.
func Advance(s State, wrench WrenchFunc, body RigidBody, dt float64, scheme Scheme) (State, error) {
	if !isFinite(dt) || dt <= 0 {
		return s, fmt.Errorf("%w: %g", ErrInvalidTimestep, dt)
	}
	if wrench == nil {
		wrench = ConstantWrench(Wrench{})
	}
	s.Orientation = renormalize(s.Orientation)
	var next State
	switch scheme {
	case RK4:
		step := &rk4Step{state: s.vector(), body: body, wrench: wrench}
		ode.NewRK4(0, dt, step).Solve() // Blocking, a single step.
		next = stateFromVector(step.state)
	case SemiImplicitEuler:
		next = semiImplicitEuler(s, wrench(s), body, dt)
	default:
		return s, configErrorf("integrator", "unsupported scheme %s", scheme)
	}
	next.Orientation = renormalize(next.Orientation)
	return next, nil
}

func semiImplicitEuler(s State, w Wrench, body RigidBody, dt float64) State {
	a, α := body.Accelerations(s, w)
	next := s
	next.Velocity = s.Velocity.Add(a.Mul(dt))
	next.AngularVelocity = s.AngularVelocity.Add(α.Mul(dt))
	next.Position = s.Position.Add(next.Velocity.Mul(dt))
	next.Orientation = s.Orientation.Add(quatRate(s.Orientation, next.AngularVelocity).Scale(dt))
	return next
}

// rk4Step implements ode.Integrable for exactly one step.
type rk4Step struct {
	state   []float64
	body    RigidBody
	wrench  WrenchFunc
	stepped bool
}

func (r *rk4Step) GetState() []float64 {
	return r.state
}

func (r *rk4Step) SetState(t float64, s []float64) {
	r.state = s
	r.stepped = true
}

func (r *rk4Step) Stop(t float64) bool {
	return r.stepped
}

// Func returns the time derivative of the flattened state.
func (r *rk4Step) Func(t float64, f []float64) []float64 {
	s := stateFromVector(f)
	// Intermediate stages are not unit quaternions, the loads are evaluated on the rotation they represent.
	eval := s
	eval.Orientation = renormalize(s.Orientation)
	a, α := r.body.Accelerations(eval, r.wrench(eval))
	qDot := quatRate(s.Orientation, s.AngularVelocity)
	fDot := make([]float64, stateSize)
	for i := 0; i < 3; i++ {
		fDot[i] = s.Velocity[i]
		fDot[7+i] = a[i]
		fDot[10+i] = α[i]
	}
	fDot[3] = qDot.W
	fDot[4], fDot[5], fDot[6] = qDot.V[0], qDot.V[1], qDot.V[2]
	return fDot
}

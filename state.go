package multicopter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// stateSize is the length of the integrated state vector:
// position (3), orientation (4), velocity (3), angular velocity (3).
const stateSize = 13

// State is the rigid body state of a vehicle.
type State struct {
	Position        mgl64.Vec3 // world frame (m), Z up
	Orientation     mgl64.Quat // world <- body rotation
	Velocity        mgl64.Vec3 // world frame (m/s)
	AngularVelocity mgl64.Vec3 // body frame (rad/s)
}

// NewState returns a state at rest at the provided position with an identity orientation.
func NewState(position mgl64.Vec3) State {
	return State{Position: position, Orientation: mgl64.QuatIdent()}
}

// Attitude returns the Z-Y-X Euler angles of the orientation in radians.
func (s State) Attitude() (roll, pitch, yaw float64) {
	return EulerFromQuat(s.Orientation)
}

// BodyVelocity returns the linear velocity expressed in the body frame.
func (s State) BodyVelocity() mgl64.Vec3 {
	return toBody(renormalize(s.Orientation), s.Velocity)
}

// Altitude returns the height along world +Z.
func (s State) Altitude() float64 {
	return s.Position[2]
}

// IsFinite returns whether all components of the state are finite numbers.
func (s State) IsFinite() bool {
	return vecFinite(s.Position) && quatFinite(s.Orientation) && vecFinite(s.Velocity) && vecFinite(s.AngularVelocity)
}

// Equals returns whether two states are equal within the provided absolute tolerance.
func (s State) Equals(o State, tol float64) (bool, error) {
	if !vectorsWithin(s.Position, o.Position, tol) {
		return false, fmt.Errorf("position: %v != %v", s.Position, o.Position)
	}
	// q and -q are the same orientation.
	if !quatsWithin(s.Orientation, o.Orientation, tol) && !quatsWithin(s.Orientation, o.Orientation.Scale(-1), tol) {
		return false, fmt.Errorf("orientation: %v != %v", s.Orientation, o.Orientation)
	}
	if !vectorsWithin(s.Velocity, o.Velocity, tol) {
		return false, fmt.Errorf("velocity: %v != %v", s.Velocity, o.Velocity)
	}
	if !vectorsWithin(s.AngularVelocity, o.AngularVelocity, tol) {
		return false, fmt.Errorf("angular velocity: %v != %v", s.AngularVelocity, o.AngularVelocity)
	}
	return true, nil
}

func (s State) String() string {
	roll, pitch, yaw := s.Attitude()
	return fmt.Sprintf("r=[%.3f %.3f %.3f] v=[%.3f %.3f %.3f] att=[%.2f %.2f %.2f]deg ω=[%.3f %.3f %.3f]",
		s.Position[0], s.Position[1], s.Position[2],
		s.Velocity[0], s.Velocity[1], s.Velocity[2],
		Rad2deg180(roll), Rad2deg180(pitch), Rad2deg180(yaw),
		s.AngularVelocity[0], s.AngularVelocity[1], s.AngularVelocity[2])
}

// vector flattens the state for the integrator.
func (s State) vector() []float64 {
	return []float64{
		s.Position[0], s.Position[1], s.Position[2],
		s.Orientation.W, s.Orientation.V[0], s.Orientation.V[1], s.Orientation.V[2],
		s.Velocity[0], s.Velocity[1], s.Velocity[2],
		s.AngularVelocity[0], s.AngularVelocity[1], s.AngularVelocity[2],
	}
}

// stateFromVector is the inverse of State.vector. The orientation is not renormalized.
func stateFromVector(f []float64) State {
	return State{
		Position:        mgl64.Vec3{f[0], f[1], f[2]},
		Orientation:     mgl64.Quat{W: f[3], V: mgl64.Vec3{f[4], f[5], f[6]}},
		Velocity:        mgl64.Vec3{f[7], f[8], f[9]},
		AngularVelocity: mgl64.Vec3{f[10], f[11], f[12]},
	}
}

package multicopter

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Spin is the rotation direction of a rotor, seen from above its spin axis.
// Its value is the sign of the reaction torque about that axis.
type Spin int8

const (
	// Clockwise rotors push the airframe counter-clockwise (reaction torque along +axis).
	Clockwise Spin = 1
	// CounterClockwise rotors push the airframe clockwise (reaction torque along -axis).
	CounterClockwise Spin = -1
)

func (s Spin) String() string {
	switch s {
	case Clockwise:
		return "cw"
	case CounterClockwise:
		return "ccw"
	}
	return fmt.Sprintf("Spin(%d)", int8(s))
}

// Opposite returns the other rotation direction.
func (s Spin) Opposite() Spin {
	return -s
}

// SpinFromString parses "cw"/"ccw" (and their spelled out versions).
func SpinFromString(s string) (Spin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cw", "clockwise", "+1", "1":
		return Clockwise, nil
	case "ccw", "counterclockwise", "counter-clockwise", "-1":
		return CounterClockwise, nil
	}
	return 0, fmt.Errorf("unknown spin direction `%s`", s)
}

// RotorConfig describes one rotor of the airframe.
type RotorConfig struct {
	Position          mgl64.Vec3 // body frame offset from the center of mass (m)
	Axis              mgl64.Vec3 // body frame spin axis, thrust is along it
	Spin              Spin
	ThrustCoefficient float64 // N per (rad/s)²
	TorqueCoefficient float64 // N·m of reaction torque per N of thrust
	MaxSpeed          float64 // rad/s
}

// Clamp bounds a commanded speed to what the rotor can actually do.
func (r RotorConfig) Clamp(speed float64) float64 {
	return clamp(speed, 0, r.MaxSpeed)
}

// Thrust returns the thrust magnitude (N) for the commanded speed.
func (r RotorConfig) Thrust(speed float64) float64 {
	speed = r.Clamp(speed)
	return r.ThrustCoefficient * speed * speed
}

// HoverSpeed returns the speed at which this rotor produces the provided thrust,
// saturated at MaxSpeed.
func (r RotorConfig) HoverSpeed(thrust float64) float64 {
	if thrust <= 0 || r.ThrustCoefficient <= 0 {
		return 0
	}
	return r.Clamp(math.Sqrt(thrust / r.ThrustCoefficient))
}

// ThrustAndTorque implements the rotor model for this rotor.
func (r RotorConfig) ThrustAndTorque(speed float64) (force, torque mgl64.Vec3) {
	return ThrustAndTorque(speed, r)
}

// ThrustAndTorque returns the body frame force along the spin axis and the
// reaction torque about it. The moment arm of the force is left to the airframe.
func ThrustAndTorque(speed float64, r RotorConfig) (force, torque mgl64.Vec3) {
	thrust := r.Thrust(speed)
	force = r.Axis.Mul(thrust)
	torque = r.Axis.Mul(float64(r.Spin) * r.TorqueCoefficient * thrust)
	return
}

func (r RotorConfig) String() string {
	return fmt.Sprintf("rotor@%+v axis=%+v spin=%s kT=%g kQ=%g max=%g", r.Position, r.Axis, r.Spin, r.ThrustCoefficient, r.TorqueCoefficient, r.MaxSpeed)
}

// validate checks a rotor and returns a copy with a unit spin axis.
func (r RotorConfig) validate(i int) (RotorConfig, error) {
	field := func(name string) string {
		return fmt.Sprintf("rotors[%d].%s", i, name)
	}
	if !vecFinite(r.Position) {
		return r, configErrorf(field("position"), "must be finite, got %v", r.Position)
	}
	if !vecFinite(r.Axis) || r.Axis.Len() < unitε {
		return r, configErrorf(field("axis"), "must be a finite non-zero vector, got %v", r.Axis)
	}
	if r.Spin != Clockwise && r.Spin != CounterClockwise {
		return r, configErrorf(field("spin"), "must be clockwise or counter-clockwise, got %d", r.Spin)
	}
	if !isFinite(r.ThrustCoefficient) || r.ThrustCoefficient <= 0 {
		return r, configErrorf(field("thrust coefficient"), "must be positive, got %g", r.ThrustCoefficient)
	}
	if !isFinite(r.TorqueCoefficient) || r.TorqueCoefficient < 0 {
		return r, configErrorf(field("torque coefficient"), "must be non-negative, got %g", r.TorqueCoefficient)
	}
	if !isFinite(r.MaxSpeed) || r.MaxSpeed <= 0 {
		return r, configErrorf(field("max speed"), "must be positive, got %g", r.MaxSpeed)
	}
	r.Axis = r.Axis.Normalize()
	return r, nil
}

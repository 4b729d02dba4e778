package multicopter

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Wrench is a force and a torque, both expressed in the body frame.
type Wrench struct {
	Force  mgl64.Vec3 // N
	Torque mgl64.Vec3 // N·m
}

// Add returns the sum of two wrenches.
func (w Wrench) Add(o Wrench) Wrench {
	return Wrench{w.Force.Add(o.Force), w.Torque.Add(o.Torque)}
}

// Perturbations defines the aerodynamic effects and any other disturbance on the airframe.
type Perturbations struct {
	LinearDrag    float64              // N·s/m
	QuadraticDrag float64              // N·s²/m²
	AngularDrag   float64              // N·m·s, damps the body rates
	Wind          mgl64.Vec3           // world frame air velocity (m/s)
	Arbitrary     func(s State) Wrench // Additional arbitrary body frame disturbance.
}

func (p Perturbations) isEmpty() bool {
	return p.LinearDrag == 0 && p.QuadraticDrag == 0 && p.AngularDrag == 0 && p.Arbitrary == nil
}

// Drag returns the body frame drag force and angular damping torque for the
// provided state. The orientation of s must be a unit quaternion.
func (p Perturbations) Drag(s State) Wrench {
	var w Wrench
	if p.LinearDrag != 0 || p.QuadraticDrag != 0 {
		// Air relative velocity, so a vehicle at rest in a wind is pushed along.
		air := s.Velocity.Sub(p.Wind)
		drag := air.Mul(-(p.LinearDrag + p.QuadraticDrag*air.Len()))
		w.Force = toBody(s.Orientation, drag)
	}
	if p.AngularDrag != 0 {
		w.Torque = s.AngularVelocity.Mul(-p.AngularDrag)
	}
	return w
}

// Perturb returns the total body frame wrench of the perturbations.
func (p Perturbations) Perturb(s State) Wrench {
	if p.isEmpty() {
		return Wrench{}
	}
	w := p.Drag(s)
	if p.Arbitrary != nil {
		w = w.Add(p.Arbitrary(s))
	}
	return w
}

func (p Perturbations) validate() error {
	if !isFinite(p.LinearDrag) || p.LinearDrag < 0 {
		return configErrorf("drag.linear", "must be non-negative, got %g", p.LinearDrag)
	}
	if !isFinite(p.QuadraticDrag) || p.QuadraticDrag < 0 {
		return configErrorf("drag.quadratic", "must be non-negative, got %g", p.QuadraticDrag)
	}
	if !isFinite(p.AngularDrag) || p.AngularDrag < 0 {
		return configErrorf("drag.angular", "must be non-negative, got %g", p.AngularDrag)
	}
	if !vecFinite(p.Wind) {
		return configErrorf("drag.wind", "must be finite, got %v", p.Wind)
	}
	return nil
}

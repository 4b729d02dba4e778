package multicopter

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Loads is the breakdown of the body frame wrench acting on the airframe.
type Loads struct {
	PerRotor    []Wrench // contribution of each rotor about the center of mass
	Rotors      Wrench   // sum of PerRotor
	Gravity     Wrench
	Drag        Wrench
	Disturbance Wrench
}

// Net returns the total body frame wrench.
func (l Loads) Net() Wrench {
	return l.Rotors.Add(l.Gravity).Add(l.Drag).Add(l.Disturbance)
}

func (l Loads) String() string {
	n := l.Net()
	return fmt.Sprintf("F=%+v τ=%+v (rotors F=%+v τ=%+v)", n.Force, n.Torque, l.Rotors.Force, l.Rotors.Torque)
}

// rotorWrench returns the thrust and the total torque of one rotor about the center of mass.
func rotorWrench(speed float64, r RotorConfig) Wrench {
	force, reaction := ThrustAndTorque(speed, r)
	return Wrench{Force: force, Torque: r.Position.Cross(force).Add(reaction)}
}

// ComputeLoads evaluates every load on the airframe. The commands must have
// one entry per rotor of cfg.
func ComputeLoads(cmds []float64, s State, cfg VehicleConfig) Loads {
	q := renormalize(s.Orientation)
	s.Orientation = q
	l := Loads{PerRotor: make([]Wrench, len(cfg.Rotors))}
	for i, r := range cfg.Rotors {
		var speed float64
		if i < len(cmds) {
			speed = cmds[i]
		}
		l.PerRotor[i] = rotorWrench(speed, r)
		l.Rotors = l.Rotors.Add(l.PerRotor[i])
	}
	if cfg.Gravity != 0 {
		l.Gravity.Force = toBody(q, mgl64.Vec3{0, 0, -cfg.Mass * cfg.Gravity})
	}
	l.Drag = cfg.Perturbations.Drag(s)
	if cfg.Perturbations.Arbitrary != nil {
		l.Disturbance = cfg.Perturbations.Arbitrary(s)
	}
	return l
}

// NetForceTorque returns the body frame force and torque about the center of
// mass: rotor thrusts and their moments, reaction torques, gravity and drag.
func NetForceTorque(cmds []float64, s State, cfg VehicleConfig) Wrench {
	q := renormalize(s.Orientation)
	s.Orientation = q
	var w Wrench
	for i, r := range cfg.Rotors {
		var speed float64
		if i < len(cmds) {
			speed = cmds[i]
		}
		w = w.Add(rotorWrench(speed, r))
	}
	if cfg.Gravity != 0 {
		w.Force = w.Force.Add(toBody(q, mgl64.Vec3{0, 0, -cfg.Mass * cfg.Gravity}))
	}
	return w.Add(cfg.Perturbations.Perturb(s))
}

// wrenchFunc binds the commands and configuration for the integrator.
func wrenchFunc(cmds []float64, cfg VehicleConfig) WrenchFunc {
	return func(s State) Wrench {
		return NetForceTorque(cmds, s, cfg)
	}
}

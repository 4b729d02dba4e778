package control

import "math"

// PID holds the state for a PID controller.
type PID struct {
	Kp, Ki, Kd    float64
	IntegralLimit float64 // anti-windup bound on the integral, ignored if zero
	OutputLimit   float64 // symmetric output bound, ignored if zero
	integral      float64
	prevError     float64
	primed        bool
}

// NewPID creates and initializes a new PID.
func NewPID(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

// Update calculates the new control output, differentiating the error.
// The first call has no derivative term.
func (pid *PID) Update(err, dt float64) float64 {
	var rate float64
	if pid.primed && dt > 0 {
		rate = (err - pid.prevError) / dt
	}
	return pid.UpdateWithRate(err, rate, dt)
}

// UpdateWithRate calculates the new control output from a measured error rate.
func (pid *PID) UpdateWithRate(err, rate, dt float64) float64 {
	pid.integral += err * dt
	if pid.IntegralLimit > 0 {
		pid.integral = math.Max(-pid.IntegralLimit, math.Min(pid.IntegralLimit, pid.integral))
	}
	pid.prevError = err
	pid.primed = true
	out := pid.Kp*err + pid.Ki*pid.integral + pid.Kd*rate
	if pid.OutputLimit > 0 {
		out = math.Max(-pid.OutputLimit, math.Min(pid.OutputLimit, out))
	}
	return out
}

// Integral returns the accumulated integral of the error.
func (pid *PID) Integral() float64 {
	return pid.integral
}

// Reset clears the integral and derivative memory.
func (pid *PID) Reset() {
	pid.integral = 0
	pid.prevError = 0
	pid.primed = false
}

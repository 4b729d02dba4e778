package control

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/quadsim/multicopter"
)

// Hold keeps a vehicle level at a target altitude and heading.
type Hold struct {
	Altitude float64 // m
	Yaw      float64 // rad

	AltitudePID               *PID
	RollPID, PitchPID, YawPID *PID

	mixer   *Mixer
	mass    float64
	gravity float64
	inertia mgl64.Vec3
}

// NewHold returns an altitude and attitude hold for the vehicle with default gains.
func NewHold(cfg multicopter.VehicleConfig, altitude, yaw float64) (*Hold, error) {
	mixer, err := NewMixer(cfg)
	if err != nil {
		return nil, err
	}
	alt := NewPID(4, 0, 3)
	alt.OutputLimit = 0.8 * cfg.Gravity
	h := &Hold{
		Altitude:    altitude,
		Yaw:         yaw,
		AltitudePID: alt,
		RollPID:     NewPID(60, 0, 12),
		PitchPID:    NewPID(60, 0, 12),
		YawPID:      NewPID(8, 0, 4),
		mixer:       mixer,
		mass:        cfg.Mass,
		gravity:     cfg.Gravity,
		inertia:     mgl64.Vec3{cfg.Inertia.At(0, 0), cfg.Inertia.At(1, 1), cfg.Inertia.At(2, 2)},
	}
	return h, nil
}

// Commands returns the rotor speeds for the provided state.
func (h *Hold) Commands(s multicopter.State, dt float64) []float64 {
	thrust, torque := h.Wrench(s, dt)
	return h.mixer.Mix(thrust, torque)
}

// Wrench returns the body frame thrust and torque requested for the provided state.
func (h *Hold) Wrench(s multicopter.State, dt float64) (thrust float64, torque mgl64.Vec3) {
	roll, pitch, yaw := s.Attitude()

	// Altitude loop, the vertical speed is measured so the rate is not differentiated.
	az := h.AltitudePID.UpdateWithRate(h.Altitude-s.Altitude(), -s.Velocity[2], dt)
	tilt := math.Cos(roll) * math.Cos(pitch)
	if tilt < 0.5 {
		tilt = 0.5
	}
	thrust = h.mass * (h.gravity + az) / tilt
	if thrust < 0 {
		thrust = 0
	}

	// Attitude loop, body rates damp the angles.
	ω := s.AngularVelocity
	yawErr := math.Remainder(h.Yaw-yaw, 2*math.Pi)
	torque = mgl64.Vec3{
		h.inertia[0] * h.RollPID.UpdateWithRate(-roll, -ω[0], dt),
		h.inertia[1] * h.PitchPID.UpdateWithRate(-pitch, -ω[1], dt),
		h.inertia[2] * h.YawPID.UpdateWithRate(yawErr, -ω[2], dt),
	}
	return
}

// Controller adapts the hold to a fleet controller.
func (h *Hold) Controller() multicopter.Controller {
	return func(_ int, s multicopter.State, dt float64) []float64 {
		return h.Commands(s, dt)
	}
}

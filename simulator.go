package multicopter

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// Vehicle is anything which accepts rotor speed commands and can be stepped in time.
type Vehicle interface {
	SetMotorCommands(cmds []float64) error
	Step(dt float64) error
	State() State
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger used by LogStatus.
func WithLogger(logger kitlog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Simulator steps the rigid body dynamics of a multicopter.
// It is not safe for concurrent use.
type Simulator struct {
	cfg    VehicleConfig
	body   RigidBody
	state  State
	cmds   []float64
	time   float64 // elapsed simulated time (s)
	steps  uint64
	logger kitlog.Logger
}

// NewSimulator returns a new simulator. The configuration is copied.
func NewSimulator(cfg VehicleConfig, initial State, opts ...Option) (*Simulator, error) {
	vcfg, body, err := cfg.validated()
	if err != nil {
		return nil, err
	}
	if !initial.IsFinite() {
		return nil, configErrorf("initial state", "must be finite, got %s", initial)
	}
	norm := initial.Orientation.Len()
	if math.Abs(norm-1) > unitε {
		return nil, configErrorf("initial orientation", "must be a unit quaternion, norm is %g", norm)
	}
	initial.Orientation = renormalize(initial.Orientation)
	s := &Simulator{
		cfg:    vcfg,
		body:   body,
		state:  initial,
		cmds:   make([]float64, len(vcfg.Rotors)),
		logger: kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Log("level", "debug", "subsys", "sim", "vehicle", vcfg.Name, "rotors", len(vcfg.Rotors), "mass(kg)", vcfg.Mass, "integrator", vcfg.Integrator)
	return s, nil
}

// SetMotorCommands replaces the rotor speed commands (rad/s), one per rotor.
// The slice is copied. On error the previous commands are kept.
func (s *Simulator) SetMotorCommands(cmds []float64) error {
	if len(cmds) != len(s.cmds) {
		return fmt.Errorf("%w: got %d commands for %d rotors", ErrCommandLengthMismatch, len(cmds), len(s.cmds))
	}
	copy(s.cmds, cmds)
	return nil
}

// Step advances the simulation by dt seconds with the current commands.
func (s *Simulator) Step(dt float64) error {
	next, err := Advance(s.state, wrenchFunc(s.cmds, s.cfg), s.body, dt, s.cfg.Integrator)
	if err != nil {
		return err
	}
	s.state = next
	s.time += dt
	s.steps++
	return nil
}

// State returns a copy of the current state.
func (s *Simulator) State() State {
	return s.state
}

// Commands returns a copy of the current rotor commands.
func (s *Simulator) Commands() []float64 {
	return append([]float64(nil), s.cmds...)
}

// Config returns a copy of the validated configuration.
func (s *Simulator) Config() VehicleConfig {
	return s.cfg.Clone()
}

// Body returns the mass properties of the vehicle.
func (s *Simulator) Body() RigidBody {
	return s.body
}

// Time returns the simulated time in seconds.
func (s *Simulator) Time() float64 {
	return s.time
}

// Steps returns the number of successful steps.
func (s *Simulator) Steps() uint64 {
	return s.steps
}

// Loads returns the breakdown of the wrench at the current state and commands.
func (s *Simulator) Loads() Loads {
	return ComputeLoads(s.cmds, s.state, s.cfg)
}

// LogStatus logs the current state of the vehicle.
func (s *Simulator) LogStatus() {
	roll, pitch, yaw := s.state.Attitude()
	s.logger.Log("level", "info", "subsys", "sim", "t(s)", s.time, "steps", s.steps,
		"alt(m)", s.state.Altitude(), "speed(m/s)", s.state.Velocity.Len(),
		"roll(deg)", Rad2deg180(roll), "pitch(deg)", Rad2deg180(pitch), "yaw(deg)", Rad2deg180(yaw))
}

func (s *Simulator) String() string {
	return fmt.Sprintf("%s t=%.3fs %s", s.cfg.Name, s.time, s.state)
}

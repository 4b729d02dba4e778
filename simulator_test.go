package multicopter

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
)

func TestSimulatorHover(t *testing.T) {
	initial := NewState(mgl64.Vec3{1, -2, 10})
	for _, scheme := range []Scheme{RK4, SemiImplicitEuler} {
		cfg := testQuad()
		cfg.Integrator = scheme
		sim := newTestSim(t, cfg, initial)
		if err := sim.SetMotorCommands(HoverCommands(cfg)); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 1000; i++ {
			if err := sim.Step(1e-3); err != nil {
				t.Fatalf("%s: step %d: %s", scheme, i, err)
			}
		}
		if ok, err := sim.State().Equals(initial, 1e-9); !ok {
			t.Fatalf("%s: vehicle drifted from hover: %s", scheme, err)
		}
		if sim.Steps() != 1000 || !floats.EqualWithinAbs(sim.Time(), 1, 1e-9) {
			t.Fatalf("%s: steps=%d time=%f", scheme, sim.Steps(), sim.Time())
		}
	}
}

func TestSimulatorFreeFall(t *testing.T) {
	sim := newTestSim(t, testQuad(), NewState(mgl64.Vec3{0, 0, 100}))
	prev := sim.State().Velocity[2]
	for i := 0; i < 200; i++ {
		if err := sim.Step(0.01); err != nil {
			t.Fatal(err)
		}
		if vz := sim.State().Velocity[2]; vz >= prev {
			t.Fatalf("step %d: downward speed did not increase (%f >= %f)", i, vz, prev)
		} else {
			prev = vz
		}
	}
	exp := State{
		Position:    mgl64.Vec3{0, 0, 100 - 0.5*testGravity*4},
		Orientation: mgl64.QuatIdent(),
		Velocity:    mgl64.Vec3{0, 0, -testGravity * 2},
	}
	if ok, err := sim.State().Equals(exp, 1e-9); !ok {
		t.Fatalf("free fall: %s", err)
	}
}

func TestSimulatorTerminalVelocity(t *testing.T) {
	cfg := testQuad()
	cfg.Perturbations.LinearDrag = 0.5
	sim := newTestSim(t, cfg, NewState(mgl64.Vec3{}))
	for i := 0; i < 2000; i++ {
		if err := sim.Step(0.01); err != nil {
			t.Fatal(err)
		}
	}
	vt := testMass * testGravity / 0.5
	if v := sim.State().Velocity; !floats.EqualWithinAbs(v[2], -vt, 1e-2) {
		t.Fatalf("terminal velocity %f, expected %f", v[2], -vt)
	}
}

func TestSimulatorTorqueResponse(t *testing.T) {
	cfg := testQuad()
	sim := newTestSim(t, cfg, NewState(mgl64.Vec3{}))
	cmds := HoverCommands(cfg)
	// Speeding up the clockwise rotors yaws the vehicle along +Z.
	cmds[0] *= 1.05
	cmds[2] *= 1.05
	if err := sim.SetMotorCommands(cmds); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if err := sim.Step(1e-3); err != nil {
			t.Fatal(err)
		}
	}
	s := sim.State()
	if s.AngularVelocity[2] <= 0 {
		t.Fatalf("expected a positive yaw rate: %v", s.AngularVelocity)
	}
	if !floats.EqualWithinAbs(s.AngularVelocity[0], 0, 1e-9) || !floats.EqualWithinAbs(s.AngularVelocity[1], 0, 1e-9) {
		t.Fatalf("yaw command should not roll or pitch: %v", s.AngularVelocity)
	}
	if s.Velocity[2] <= 0 {
		t.Fatalf("more thrust should climb: %v", s.Velocity)
	}
}

func TestSimulatorDeterminism(t *testing.T) {
	cfg := testQuad()
	cfg.Perturbations = Perturbations{LinearDrag: 0.1, QuadraticDrag: 0.05, AngularDrag: 0.001, Wind: mgl64.Vec3{2, 0, 0}}
	initial := NewState(mgl64.Vec3{0, 0, 5})
	initial.Orientation = QuatFromEuler(0.1, -0.05, 0.3)
	run := func() State {
		sim := newTestSim(t, cfg, initial)
		for i := 0; i < 500; i++ {
			cmds := []float64{500 + float64(i%7), 510, 505 - float64(i%3), 495}
			if err := sim.SetMotorCommands(cmds); err != nil {
				t.Fatal(err)
			}
			if err := sim.Step(2e-3); err != nil {
				t.Fatal(err)
			}
			if n := sim.State().Orientation.Len(); math.Abs(n-1) > 1e-6 {
				t.Fatalf("step %d: orientation norm %f", i, n)
			}
		}
		return sim.State()
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("two identical runs differ:\n%s\n%s", a, b)
	}
}

func TestSimulatorRejectsConfig(t *testing.T) {
	for _, tc := range []struct {
		field  string
		mutate func(c *VehicleConfig)
	}{
		{"rotors", func(c *VehicleConfig) { c.Rotors = nil }},
		{"mass", func(c *VehicleConfig) { c.Mass = 0 }},
		{"mass", func(c *VehicleConfig) { c.Mass = math.NaN() }},
		{"gravity", func(c *VehicleConfig) { c.Gravity = -1 }},
		{"integrator", func(c *VehicleConfig) { c.Integrator = Scheme(42) }},
		{"inertia", func(c *VehicleConfig) { c.Inertia = DiagonalInertia(0.01, 0, 0.02) }},
		{"drag.linear", func(c *VehicleConfig) { c.Perturbations.LinearDrag = -0.1 }},
		{"drag.wind", func(c *VehicleConfig) { c.Perturbations.Wind[0] = math.Inf(1) }},
		{"rotors[0].axis", func(c *VehicleConfig) { c.Rotors[0].Axis = mgl64.Vec3{} }},
		{"rotors[0].spin", func(c *VehicleConfig) { c.Rotors[0].Spin = 0 }},
		{"rotors[2].max speed", func(c *VehicleConfig) { c.Rotors[2].MaxSpeed = -5 }},
	} {
		cfg := testQuad()
		tc.mutate(&cfg)
		_, err := NewSimulator(cfg, NewState(mgl64.Vec3{}))
		assertConfigError(t, err, tc.field)
		if verr := cfg.Validate(); verr == nil || verr.Error() != err.Error() {
			t.Fatalf("Validate() = %v, NewSimulator = %v", verr, err)
		}
	}
}

func TestSimulatorRejectsState(t *testing.T) {
	s := NewState(mgl64.Vec3{})
	s.Orientation = mgl64.Quat{W: 0.5}
	_, err := NewSimulator(testQuad(), s)
	assertConfigError(t, err, "initial orientation")

	s = NewState(mgl64.Vec3{0, math.NaN(), 0})
	_, err = NewSimulator(testQuad(), s)
	assertConfigError(t, err, "initial state")

	// Close enough to unit norm is accepted and renormalized.
	s = NewState(mgl64.Vec3{})
	s.Orientation = mgl64.Quat{W: 1 + 1e-7}
	sim := newTestSim(t, testQuad(), s)
	if sim.State().Orientation != mgl64.QuatIdent() {
		t.Fatalf("orientation not renormalized: %v", sim.State().Orientation)
	}
}

func TestSimulatorCommands(t *testing.T) {
	sim := newTestSim(t, testQuad(), NewState(mgl64.Vec3{}))
	for _, c := range sim.Commands() {
		if c != 0 {
			t.Fatalf("initial commands should be zero: %v", sim.Commands())
		}
	}
	cmds := []float64{100, 200, 300, 400}
	if err := sim.SetMotorCommands(cmds); err != nil {
		t.Fatal(err)
	}
	// The simulator keeps its own copy.
	cmds[0] = 999
	if got := sim.Commands(); got[0] != 100 {
		t.Fatalf("commands aliased the caller's slice: %v", got)
	}
	got := sim.Commands()
	got[1] = 999
	if sim.Commands()[1] != 200 {
		t.Fatal("Commands() returned the internal slice")
	}
	for _, bad := range [][]float64{nil, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		err := sim.SetMotorCommands(bad)
		if !errors.Is(err, ErrCommandLengthMismatch) {
			t.Fatalf("%v: expected ErrCommandLengthMismatch, got %v", bad, err)
		}
		if got := sim.Commands(); got[0] != 100 || got[3] != 400 {
			t.Fatalf("rejected commands modified the buffer: %v", got)
		}
	}
}

func TestSimulatorInvalidStep(t *testing.T) {
	sim := newTestSim(t, testQuad(), NewState(mgl64.Vec3{0, 0, 1}))
	if err := sim.Step(0.01); err != nil {
		t.Fatal(err)
	}
	before := sim.State()
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := sim.Step(dt); !errors.Is(err, ErrInvalidTimestep) {
			t.Fatalf("dt=%f: expected ErrInvalidTimestep, got %v", dt, err)
		}
	}
	if sim.State() != before || sim.Steps() != 1 || sim.Time() != 0.01 {
		t.Fatal("failed steps modified the simulator")
	}
}

func TestSimulatorConfigCopy(t *testing.T) {
	cfg := testQuad()
	sim := newTestSim(t, cfg, NewState(mgl64.Vec3{}))
	cfg.Rotors[0].ThrustCoefficient = 1
	cfg.Mass = 100
	if c := sim.Config(); c.Rotors[0].ThrustCoefficient != testKT || c.Mass != testMass {
		t.Fatal("simulator shares the caller's configuration")
	}
	c := sim.Config()
	c.Rotors[1].MaxSpeed = 1
	if sim.Config().Rotors[1].MaxSpeed != testMax {
		t.Fatal("Config() returned the internal rotors")
	}
}

func TestSimulatorLogStatus(t *testing.T) {
	var buf bytes.Buffer
	sim, err := NewSimulator(testQuad(), NewState(mgl64.Vec3{0, 0, 3}), WithLogger(kitlog.NewLogfmtLogger(&buf)))
	if err != nil {
		t.Fatal(err)
	}
	sim.LogStatus()
	out := buf.String()
	for _, exp := range []string{"subsys=sim", "vehicle=test-quad", "alt(m)=3"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("log does not contain %q:\n%s", exp, out)
		}
	}
	if !strings.Contains(sim.String(), "test-quad") {
		t.Fatalf("String() = %s", sim)
	}
}

package multicopter

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	testMass    = 1.0
	testGravity = 9.81
	testArm     = 0.2
	testKT      = 1e-5
	testKQ      = 0.02
	testMax     = 1000.0
)

// testQuad returns a symmetric quad-X without any drag.
func testQuad() VehicleConfig {
	return VehicleConfig{
		Name:    "test-quad",
		Mass:    testMass,
		Inertia: DiagonalInertia(0.01, 0.01, 0.02),
		Gravity: testGravity,
		Rotors: QuadX(testArm, RotorConfig{
			Axis:              mgl64.Vec3{0, 0, 1},
			ThrustCoefficient: testKT,
			TorqueCoefficient: testKQ,
			MaxSpeed:          testMax,
		}),
	}
}

func newTestSim(t *testing.T, cfg VehicleConfig, initial State) *Simulator {
	sim, err := NewSimulator(cfg, initial)
	if err != nil {
		t.Fatalf("NewSimulator: %s", err)
	}
	return sim
}

func vectorsEqual(a, b mgl64.Vec3) bool {
	return vectorsWithin(a, b, 1e-12)
}

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("code did not panic")
		}
	}()
	f()
}

// assertConfigError checks that err is a *ConfigError on the provided field.
func assertConfigError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error on %s", field)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("%s: error does not match ErrInvalidConfig: %s", field, err)
	}
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("%s: error is not a *ConfigError: %s", field, err)
	}
	if cerr.Field != field {
		t.Fatalf("error on field %q, expected %q: %s", cerr.Field, field, err)
	}
}

package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/quadsim/multicopter"
)

func testSimulator(t *testing.T) *multicopter.Simulator {
	rotors := multicopter.QuadX(0.2, multicopter.RotorConfig{ThrustCoefficient: 1e-5, TorqueCoefficient: 0.02, MaxSpeed: 1000})
	cfg := multicopter.VehicleConfig{
		Name:    "probe",
		Mass:    1,
		Inertia: multicopter.DiagonalInertia(0.01, 0.01, 0.02),
		Gravity: 9.81,
		Rotors:  rotors,
	}
	sim, err := multicopter.NewSimulator(cfg, multicopter.NewState(mgl64.Vec3{0, 0, 4}))
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.SetMotorCommands(multicopter.HoverCommands(cfg)); err != nil {
		t.Fatal(err)
	}
	return sim
}

func TestCollectorObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	sim := testSimulator(t)
	for i := 0; i < 3; i++ {
		if err := sim.Step(0.01); err != nil {
			t.Fatal(err)
		}
		c.Observe("probe", sim)
	}
	c.ObserveStepDuration(2e-5)
	if steps := testutil.ToFloat64(c.Steps.WithLabelValues("probe")); steps != 3 {
		t.Fatalf("steps = %f", steps)
	}
	if alt := testutil.ToFloat64(c.Altitude.WithLabelValues("probe")); alt < 3.999 || alt > 4.001 {
		t.Fatalf("altitude = %f", alt)
	}
	if n := testutil.CollectAndCount(c.RotorSpeed); n != 4 {
		t.Fatalf("%d rotor series, expected 4", n)
	}
	if n := testutil.CollectAndCount(c.Attitude); n != 3 {
		t.Fatalf("%d attitude series, expected 3", n)
	}

	// Registering twice reuses the same metrics.
	again, err := NewCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	if again.Steps != c.Steps {
		t.Fatal("second collector did not reuse the registered metrics")
	}

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"multicopter_steps_total", "multicopter_altitude_meters", "multicopter_step_duration_seconds_bucket"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("%s missing from the exposition", name)
		}
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.Observe("none", testSimulator(t))
	c.ObserveState("none", multicopter.NewState(mgl64.Vec3{}))
	c.ObserveStepDuration(1)
}

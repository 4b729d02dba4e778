// Package telemetry exposes the state of simulated vehicles as Prometheus metrics.
package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quadsim/multicopter"
)

// Collector bundles the flight metrics of one or more vehicles, labeled by vehicle name.
type Collector struct {
	gatherer prometheus.Gatherer

	Steps         *prometheus.CounterVec
	SimTime       *prometheus.GaugeVec
	Altitude      *prometheus.GaugeVec
	Speed         *prometheus.GaugeVec
	Attitude      *prometheus.GaugeVec
	AngularRate   *prometheus.GaugeVec
	RotorSpeed    *prometheus.GaugeVec
	StepDurations prometheus.Histogram
}

// NewCollector registers the flight metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "multicopter_steps_total",
		Help: "Total number of integration steps taken by each vehicle.",
	}, []string{"vehicle"}), "multicopter_steps_total")
	if err != nil {
		return nil, err
	}
	simTime, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multicopter_sim_time_seconds",
		Help: "Simulated time elapsed for each vehicle.",
	}, []string{"vehicle"}), "multicopter_sim_time_seconds")
	if err != nil {
		return nil, err
	}
	altitude, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multicopter_altitude_meters",
		Help: "Height of each vehicle along world +Z.",
	}, []string{"vehicle"}), "multicopter_altitude_meters")
	if err != nil {
		return nil, err
	}
	speed, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multicopter_speed_meters_per_second",
		Help: "Norm of the world frame velocity of each vehicle.",
	}, []string{"vehicle"}), "multicopter_speed_meters_per_second")
	if err != nil {
		return nil, err
	}
	attitude, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multicopter_attitude_degrees",
		Help: "Z-Y-X Euler angles of each vehicle, labeled by axis (roll, pitch, yaw).",
	}, []string{"vehicle", "axis"}), "multicopter_attitude_degrees")
	if err != nil {
		return nil, err
	}
	rate, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multicopter_angular_rate_radians_per_second",
		Help: "Body frame angular velocity of each vehicle, labeled by axis (x, y, z).",
	}, []string{"vehicle", "axis"}), "multicopter_angular_rate_radians_per_second")
	if err != nil {
		return nil, err
	}
	rotors, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "multicopter_rotor_speed_radians_per_second",
		Help: "Commanded speed of each rotor.",
	}, []string{"vehicle", "rotor"}), "multicopter_rotor_speed_radians_per_second")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "multicopter_step_duration_seconds",
		Help:    "Wall clock duration of one integration step.",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2},
	}), "multicopter_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:      gatherer,
		Steps:         steps,
		SimTime:       simTime,
		Altitude:      altitude,
		Speed:         speed,
		Attitude:      attitude,
		AngularRate:   rate,
		RotorSpeed:    rotors,
		StepDurations: durations,
	}, nil
}

// ObserveState updates the state gauges of a vehicle.
func (c *Collector) ObserveState(vehicle string, s multicopter.State) {
	if c == nil {
		return
	}
	roll, pitch, yaw := s.Attitude()
	c.Altitude.WithLabelValues(vehicle).Set(s.Altitude())
	c.Speed.WithLabelValues(vehicle).Set(s.Velocity.Len())
	c.Attitude.WithLabelValues(vehicle, "roll").Set(multicopter.Rad2deg180(roll))
	c.Attitude.WithLabelValues(vehicle, "pitch").Set(multicopter.Rad2deg180(pitch))
	c.Attitude.WithLabelValues(vehicle, "yaw").Set(multicopter.Rad2deg180(yaw))
	for i, axis := range []string{"x", "y", "z"} {
		c.AngularRate.WithLabelValues(vehicle, axis).Set(s.AngularVelocity[i])
	}
}

// Observe updates every metric of a simulator after a step.
func (c *Collector) Observe(vehicle string, sim *multicopter.Simulator) {
	if c == nil {
		return
	}
	c.ObserveState(vehicle, sim.State())
	c.SimTime.WithLabelValues(vehicle).Set(sim.Time())
	for i, cmd := range sim.Commands() {
		c.RotorSpeed.WithLabelValues(vehicle, fmt.Sprintf("%d", i)).Set(cmd)
	}
	c.Steps.WithLabelValues(vehicle).Inc()
}

// ObserveStepDuration records the wall clock time of a step.
func (c *Collector) ObserveStepDuration(seconds float64) {
	if c == nil {
		return
	}
	c.StepDurations.Observe(seconds)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

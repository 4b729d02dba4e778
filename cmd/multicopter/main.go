package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/quadsim/multicopter"
	"github.com/quadsim/multicopter/control"
	"github.com/quadsim/multicopter/telemetry"
	"github.com/spf13/viper"
)

// This code reads a scenario, flies it with an altitude hold and exports the states.

const (
	defaultScenario = "~~unset~~"
	// statusEvery is the simulated time between two status logs.
	statusEvery = time.Second
)

var (
	scenario string
	metrics  string
	verbose  bool
)

func init() {
	// Read flags
	flag.StringVar(&scenario, "scenario", defaultScenario, "multicopter scenario TOML file")
	flag.StringVar(&metrics, "metrics", "", "address to serve Prometheus metrics on (e.g. :9100), disabled if empty")
	flag.BoolVar(&verbose, "verbose", false, "really verbose (esp. for configuration)")
}

func main() {
	flag.Parse()
	// Load scenario
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("./%s.toml: Error %s", scenario, err)
	}
	sc, err := multicopter.LoadScenario(viper.GetViper())
	if err != nil {
		log.Fatalf("./%s.toml: %s", scenario, err)
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "vehicle", sc.Vehicle.Name)
	if verbose {
		for i, r := range sc.Vehicle.Rotors {
			logger.Log("level", "debug", "subsys", "conf", "rotor", i, "config", r)
		}
		logger.Log("level", "debug", "subsys", "conf", "step", sc.Mission.Step, "duration", sc.Mission.Duration, "hover(rad/s)", multicopter.HoverSpeed(sc.Vehicle))
	}

	sim, err := multicopter.NewSimulator(sc.Vehicle, sc.Initial, multicopter.WithLogger(logger))
	if err != nil {
		log.Fatalf("could not create simulator: %s", err)
	}
	hold, err := control.NewHold(sc.Vehicle, sc.Mission.Altitude, sc.Mission.Yaw)
	if err != nil {
		log.Fatalf("could not create controller: %s", err)
	}

	var collector *telemetry.Collector
	if metrics != "" {
		if collector, err = telemetry.NewCollector(nil); err != nil {
			log.Fatalf("could not register metrics: %s", err)
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if err := http.ListenAndServe(metrics, mux); err != nil {
				logger.Log("level", "critical", "subsys", "metrics", "err", err)
			}
		}()
	}

	var recorder *multicopter.Recorder
	if !sc.Export.IsUseless() {
		if recorder, err = multicopter.NewRecorder(sc.Export, len(sc.Vehicle.Rotors)); err != nil {
			log.Fatalf("could not create export: %s", err)
		}
		recorder.Observe(sim)
	}

	dt := sc.Mission.Step.Seconds()
	statusSteps := int(statusEvery / sc.Mission.Step)
	if statusSteps < 1 {
		statusSteps = 1
	}
	sim.LogStatus()
	start := time.Now()
	for k := 0; k < sc.Mission.Steps(); k++ {
		if err := sim.SetMotorCommands(hold.Commands(sim.State(), dt)); err != nil {
			log.Fatalf("step %d: %s", k, err)
		}
		stepStart := time.Now()
		if err := sim.Step(dt); err != nil {
			log.Fatalf("step %d: %s", k, err)
		}
		collector.ObserveStepDuration(time.Since(stepStart).Seconds())
		collector.Observe(sc.Vehicle.Name, sim)
		if recorder != nil {
			recorder.Observe(sim)
		}
		if (k+1)%statusSteps == 0 {
			sim.LogStatus()
		}
		if !sim.State().IsFinite() {
			logger.Log("level", "critical", "subsys", "sim", "status", "diverged", "step", k)
			break
		}
	}
	logger.Log("level", "notice", "subsys", "sim", "status", "finished", "steps", sim.Steps(), "wall", time.Since(start))
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Fatalf("export: %s", err)
		}
		logger.Log("level", "info", "subsys", "export", "file", recorder.Path())
	}
}

package multicopter

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	// DefaultStep is the default integration step of a scenario.
	DefaultStep = 2 * time.Millisecond
	// DefaultDuration is the default duration of a scenario.
	DefaultDuration = 10 * time.Second
)

// MissionConfig is the flight requested by a scenario.
type MissionConfig struct {
	Duration time.Duration
	Step     time.Duration
	Altitude float64 // m, altitude to hold
	Yaw      float64 // rad, heading to hold
}

// Steps returns the number of integration steps of the mission.
func (m MissionConfig) Steps() int {
	if m.Step <= 0 {
		return 0
	}
	return int(m.Duration / m.Step)
}

// Scenario is everything needed to fly a vehicle from a configuration file.
type Scenario struct {
	Vehicle VehicleConfig
	Initial State
	Mission MissionConfig
	Export  ExportConfig
}

// rotorTable is one [[rotors]] entry.
type rotorTable struct {
	Position []float64 `mapstructure:"position"`
	Axis     []float64 `mapstructure:"axis"`
	Tilt     []float64 `mapstructure:"tilt"`
	Spin     string    `mapstructure:"spin"`
	Thrust   float64   `mapstructure:"thrust"`
	Torque   float64   `mapstructure:"torque"`
	MaxSpeed float64   `mapstructure:"max_speed"`
}

// ReadScenario reads a TOML (or any viper supported) scenario file.
func ReadScenario(path string) (Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return LoadScenario(v)
}

// LoadScenario reads a scenario from an already loaded viper instance.
func LoadScenario(v *viper.Viper) (Scenario, error) {
	cfg, initial, err := LoadVehicleConfig(v)
	if err != nil {
		return Scenario{}, err
	}
	sc := Scenario{Vehicle: cfg, Initial: initial}
	v.SetDefault("mission.duration", DefaultDuration)
	v.SetDefault("mission.step", DefaultStep)
	sc.Mission.Duration = v.GetDuration("mission.duration")
	sc.Mission.Step = v.GetDuration("mission.step")
	if sc.Mission.Step <= 0 {
		return Scenario{}, configErrorf("mission.step", "must be positive, got %s", sc.Mission.Step)
	}
	if sc.Mission.Duration < 0 {
		return Scenario{}, configErrorf("mission.duration", "must be non-negative, got %s", sc.Mission.Duration)
	}
	sc.Mission.Altitude = v.GetFloat64("mission.altitude")
	sc.Mission.Yaw = v.GetFloat64("mission.yaw") * deg2rad

	sc.Export = ExportConfig{
		Filename:  v.GetString("export.filename"),
		Output:    v.GetString("export.output"),
		AsCSV:     v.GetBool("export.csv"),
		Timestamp: v.GetBool("export.timestamp"),
	}
	if sc.Export.Filename == "" {
		sc.Export.Filename = cfg.Name
	}
	return sc, nil
}

// ReadVehicleConfig reads the vehicle and its initial state from a file.
func ReadVehicleConfig(path string) (VehicleConfig, State, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return VehicleConfig{}, State{}, fmt.Errorf("%s: %w", path, err)
	}
	return LoadVehicleConfig(v)
}

// LoadVehicleConfig reads the [vehicle], [drag], [layout], [[rotors]] and
// [initial] tables. The returned configuration is validated, with unit spin axes.
func LoadVehicleConfig(v *viper.Viper) (VehicleConfig, State, error) {
	var cfg VehicleConfig
	cfg.Name = v.GetString("vehicle.name")
	if cfg.Name == "" {
		cfg.Name = "multicopter"
	}
	cfg.Mass = v.GetFloat64("vehicle.mass")
	v.SetDefault("vehicle.gravity", StandardGravity)
	cfg.Gravity = v.GetFloat64("vehicle.gravity")
	scheme, err := SchemeFromString(v.GetString("vehicle.integrator"))
	if err != nil {
		return cfg, State{}, configErrorf("vehicle.integrator", "%s", err)
	}
	cfg.Integrator = scheme

	inertia, err := floatSlice(v, "vehicle.inertia")
	if err != nil {
		return cfg, State{}, err
	}
	switch len(inertia) {
	case 3:
		cfg.Inertia = DiagonalInertia(inertia[0], inertia[1], inertia[2])
	case 9:
		if cfg.Inertia, err = InertiaFromRows(inertia); err != nil {
			return cfg, State{}, err
		}
	default:
		return cfg, State{}, configErrorf("vehicle.inertia", "must list 3 principal moments or 9 row-major components, got %d values", len(inertia))
	}

	// Read perturbations
	cfg.Perturbations.LinearDrag = v.GetFloat64("drag.linear")
	cfg.Perturbations.QuadraticDrag = v.GetFloat64("drag.quadratic")
	cfg.Perturbations.AngularDrag = v.GetFloat64("drag.angular")
	if v.IsSet("drag.wind") {
		if cfg.Perturbations.Wind, err = vec3(v, "drag.wind"); err != nil {
			return cfg, State{}, err
		}
	}

	// Rotors
	if v.IsSet("layout") {
		proto := RotorConfig{
			Axis:              mgl64.Vec3{0, 0, 1},
			ThrustCoefficient: v.GetFloat64("layout.thrust"),
			TorqueCoefficient: v.GetFloat64("layout.torque"),
			MaxSpeed:          v.GetFloat64("layout.max_speed"),
		}
		rotors, err := Layout(v.GetString("layout.type"), v.GetFloat64("layout.arm"), proto)
		if err != nil {
			return cfg, State{}, configErrorf("layout.type", "%s", err)
		}
		cfg.Rotors = append(cfg.Rotors, rotors...)
	}
	if v.IsSet("rotors") {
		var tables []rotorTable
		if err := v.UnmarshalKey("rotors", &tables); err != nil {
			return cfg, State{}, configErrorf("rotors", "%s", err)
		}
		first := len(cfg.Rotors)
		for i, tbl := range tables {
			r, err := tbl.rotor(first + i)
			if err != nil {
				return cfg, State{}, err
			}
			cfg.Rotors = append(cfg.Rotors, r)
		}
	}

	initial, err := loadInitial(v)
	if err != nil {
		return cfg, State{}, err
	}
	vcfg, _, err := cfg.validated()
	if err != nil {
		return cfg, State{}, err
	}
	return vcfg, initial, nil
}

func (tbl rotorTable) rotor(i int) (RotorConfig, error) {
	field := func(name string) string {
		return fmt.Sprintf("rotors[%d].%s", i, name)
	}
	r := RotorConfig{
		Axis:              mgl64.Vec3{0, 0, 1},
		ThrustCoefficient: tbl.Thrust,
		TorqueCoefficient: tbl.Torque,
		MaxSpeed:          tbl.MaxSpeed,
	}
	if len(tbl.Position) != 3 {
		return r, configErrorf(field("position"), "must have 3 components, got %d", len(tbl.Position))
	}
	r.Position = mgl64.Vec3{tbl.Position[0], tbl.Position[1], tbl.Position[2]}
	switch len(tbl.Axis) {
	case 0:
	case 3:
		r.Axis = mgl64.Vec3{tbl.Axis[0], tbl.Axis[1], tbl.Axis[2]}
	default:
		return r, configErrorf(field("axis"), "must have 3 components, got %d", len(tbl.Axis))
	}
	switch len(tbl.Tilt) {
	case 0:
	case 2:
		r.Axis = Tilt(r.Axis, tbl.Tilt[0]*deg2rad, tbl.Tilt[1]*deg2rad)
	default:
		return r, configErrorf(field("tilt"), "must have 2 angles, got %d", len(tbl.Tilt))
	}
	spin, err := SpinFromString(tbl.Spin)
	if err != nil {
		return r, configErrorf(field("spin"), "%s", err)
	}
	r.Spin = spin
	return r, nil
}

func loadInitial(v *viper.Viper) (State, error) {
	s := NewState(mgl64.Vec3{})
	var err error
	if v.IsSet("initial.position") {
		if s.Position, err = vec3(v, "initial.position"); err != nil {
			return s, err
		}
	}
	if v.IsSet("initial.velocity") {
		if s.Velocity, err = vec3(v, "initial.velocity"); err != nil {
			return s, err
		}
	}
	if v.IsSet("initial.angular_velocity") {
		if s.AngularVelocity, err = vec3(v, "initial.angular_velocity"); err != nil {
			return s, err
		}
	}
	if v.IsSet("initial.attitude") {
		att, err := vec3(v, "initial.attitude")
		if err != nil {
			return s, err
		}
		s.Orientation = QuatFromEuler(att[0]*deg2rad, att[1]*deg2rad, att[2]*deg2rad)
	}
	return s, nil
}

// floatSlice reads a list of numbers, accepting integers as TOML does not coerce them.
func floatSlice(v *viper.Viper, key string) ([]float64, error) {
	raw, err := cast.ToSliceE(v.Get(key))
	if err != nil {
		return nil, configErrorf(key, "must be a list of numbers: %s", err)
	}
	vals := make([]float64, len(raw))
	for i, r := range raw {
		if vals[i], err = cast.ToFloat64E(r); err != nil {
			return nil, configErrorf(key, "item %d: %s", i, err)
		}
	}
	return vals, nil
}

func vec3(v *viper.Viper, key string) (mgl64.Vec3, error) {
	vals, err := floatSlice(v, key)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	if len(vals) != 3 {
		return mgl64.Vec3{}, configErrorf(key, "must have 3 components, got %d", len(vals))
	}
	return mgl64.Vec3{vals[0], vals[1], vals[2]}, nil
}

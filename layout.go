package multicopter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// RotorRing returns n rotors evenly spaced on a circle of radius arm in the
// body XY plane, the first one at azimuth phase (radians, from +X towards +Y).
// Spins alternate starting with Clockwise so that equal speeds are yaw-neutral
// for an even n. All other properties are copied from proto, and a zero
// axis defaults to body +Z.
func RotorRing(n int, arm, phase float64, proto RotorConfig) []RotorConfig {
	if n < 1 {
		panic(fmt.Errorf("cannot build a ring of %d rotors", n))
	}
	if proto.Axis.Len() == 0 {
		proto.Axis = mgl64.Vec3{0, 0, 1}
	}
	rotors := make([]RotorConfig, n)
	spin := Clockwise
	for i := range rotors {
		θ := phase + 2*math.Pi*float64(i)/float64(n)
		r := proto
		r.Position = mgl64.Vec3{arm * math.Cos(θ), arm * math.Sin(θ), proto.Position[2]}
		r.Spin = spin
		rotors[i] = r
		spin = spin.Opposite()
	}
	return rotors
}

// QuadX returns a four rotor layout with the arms at 45° from the body axes.
func QuadX(arm float64, proto RotorConfig) []RotorConfig {
	return RotorRing(4, arm, math.Pi/4, proto)
}

// QuadPlus returns a four rotor layout with the arms along the body axes.
func QuadPlus(arm float64, proto RotorConfig) []RotorConfig {
	return RotorRing(4, arm, 0, proto)
}

// Hexa returns a six rotor layout with the first arm along +X.
func Hexa(arm float64, proto RotorConfig) []RotorConfig {
	return RotorRing(6, arm, 0, proto)
}

// Layout returns a named standard layout: quadx, quadplus or hexa.
func Layout(name string, arm float64, proto RotorConfig) ([]RotorConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "quadx", "quad-x", "x":
		return QuadX(arm, proto), nil
	case "quadplus", "quad-plus", "plus", "+":
		return QuadPlus(arm, proto), nil
	case "hexa", "hex", "hexacopter":
		return Hexa(arm, proto), nil
	}
	return nil, fmt.Errorf("unknown layout `%s`", name)
}

// FromPositions returns one rotor per position. Spins alternate with the
// azimuth of the positions around body +Z, the smallest azimuth being Clockwise.
func FromPositions(positions []mgl64.Vec3, proto RotorConfig) []RotorConfig {
	if proto.Axis.Len() == 0 {
		proto.Axis = mgl64.Vec3{0, 0, 1}
	}
	order := make([]int, len(positions))
	for i := range order {
		order[i] = i
	}
	azimuth := func(p mgl64.Vec3) float64 {
		return math.Atan2(p[1], p[0])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return azimuth(positions[order[a]]) < azimuth(positions[order[b]])
	})
	rotors := make([]RotorConfig, len(positions))
	spin := Clockwise
	for _, i := range order {
		r := proto
		r.Position = positions[i]
		r.Spin = spin
		rotors[i] = r
		spin = spin.Opposite()
	}
	return rotors
}

// HoverSpeed returns the common rotor speed (rad/s) at which the vertical
// thrust of a level vehicle balances gravity, saturated per rotor.
func HoverSpeed(cfg VehicleConfig) float64 {
	var lift float64 // vertical thrust per (rad/s)²
	var maxSpeed float64
	for _, r := range cfg.Rotors {
		axis := r.Axis
		if n := axis.Len(); n > 0 {
			axis = axis.Mul(1 / n)
		}
		lift += r.ThrustCoefficient * axis[2]
		maxSpeed = math.Max(maxSpeed, r.MaxSpeed)
	}
	if lift <= 0 || cfg.Gravity <= 0 {
		return 0
	}
	return clamp(math.Sqrt(cfg.HoverThrust()/lift), 0, maxSpeed)
}

// HoverCommands returns the commands holding a level vehicle in place.
func HoverCommands(cfg VehicleConfig) []float64 {
	speed := HoverSpeed(cfg)
	cmds := make([]float64, len(cfg.Rotors))
	for i, r := range cfg.Rotors {
		cmds[i] = r.Clamp(speed)
	}
	return cmds
}

// HoverThrottle returns the hover speed as a fraction of the slowest rotor's maximum speed.
func HoverThrottle(cfg VehicleConfig) float64 {
	if len(cfg.Rotors) == 0 {
		return 0
	}
	lowest := math.Inf(1)
	for _, r := range cfg.Rotors {
		lowest = math.Min(lowest, r.MaxSpeed)
	}
	if lowest <= 0 {
		return 0
	}
	return HoverSpeed(cfg) / lowest
}

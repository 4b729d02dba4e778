package multicopter

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

const (
	// StandardGravity is the default gravity magnitude (m/s²).
	StandardGravity = 9.80665
	// symmetryε is the relative tolerance on the symmetry of the inertia tensor.
	symmetryε = 1e-9
)

// Scheme selects the integration scheme of the rigid body.
type Scheme uint8

const (
	// RK4 is the fixed step 4th order Runge-Kutta scheme (default).
	RK4 Scheme = iota
	// SemiImplicitEuler updates the velocities first and integrates the pose with them.
	SemiImplicitEuler
)

func (s Scheme) String() string {
	switch s {
	case RK4:
		return "rk4"
	case SemiImplicitEuler:
		return "semi-implicit-euler"
	}
	return fmt.Sprintf("Scheme(%d)", uint8(s))
}

// SchemeFromString parses the name of an integration scheme.
func SchemeFromString(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rk4":
		return RK4, nil
	case "semi-implicit-euler", "euler", "symplectic-euler":
		return SemiImplicitEuler, nil
	}
	return RK4, fmt.Errorf("unknown integration scheme `%s`", s)
}

// VehicleConfig defines the physical properties of a multicopter.
type VehicleConfig struct {
	Name          string
	Mass          float64    // kg
	Inertia       mgl64.Mat3 // body frame inertia tensor (kg·m²)
	Gravity       float64    // m/s²
	Perturbations Perturbations
	Rotors        []RotorConfig
	Integrator    Scheme
}

// DiagonalInertia returns an inertia tensor with the provided principal moments.
func DiagonalInertia(ixx, iyy, izz float64) mgl64.Mat3 {
	return mgl64.Diag3(mgl64.Vec3{ixx, iyy, izz})
}

// InertiaFromRows builds an inertia tensor from a row-major slice of nine values.
func InertiaFromRows(rows []float64) (mgl64.Mat3, error) {
	if len(rows) != 9 {
		return mgl64.Mat3{}, configErrorf("inertia", "must have 9 components, got %d", len(rows))
	}
	return mgl64.Mat3FromRows(
		mgl64.Vec3{rows[0], rows[1], rows[2]},
		mgl64.Vec3{rows[3], rows[4], rows[5]},
		mgl64.Vec3{rows[6], rows[7], rows[8]}), nil
}

// Clone returns a deep copy of the configuration.
func (c VehicleConfig) Clone() VehicleConfig {
	c.Rotors = append([]RotorConfig(nil), c.Rotors...)
	return c
}

// HoverThrust returns the total thrust needed to compensate gravity.
func (c VehicleConfig) HoverThrust() float64 {
	return c.Mass * c.Gravity
}

// Validate returns a *ConfigError if the configuration cannot be simulated.
func (c VehicleConfig) Validate() error {
	_, _, err := c.validated()
	return err
}

// validated checks the configuration and returns a normalized copy along with its rigid body.
func (c VehicleConfig) validated() (VehicleConfig, RigidBody, error) {
	c = c.Clone()
	if len(c.Rotors) == 0 {
		return c, RigidBody{}, configErrorf("rotors", "must contain at least one rotor")
	}
	if !isFinite(c.Mass) || c.Mass <= 0 {
		return c, RigidBody{}, configErrorf("mass", "must be positive, got %g", c.Mass)
	}
	if !isFinite(c.Gravity) || c.Gravity < 0 {
		return c, RigidBody{}, configErrorf("gravity", "must be non-negative, got %g", c.Gravity)
	}
	if c.Integrator != RK4 && c.Integrator != SemiImplicitEuler {
		return c, RigidBody{}, configErrorf("integrator", "unsupported scheme %s", c.Integrator)
	}
	if err := c.Perturbations.validate(); err != nil {
		return c, RigidBody{}, err
	}
	for i, r := range c.Rotors {
		vr, err := r.validate(i)
		if err != nil {
			return c, RigidBody{}, err
		}
		c.Rotors[i] = vr
	}
	body, err := NewRigidBody(c.Mass, c.Inertia)
	if err != nil {
		return c, RigidBody{}, err
	}
	return c, body, nil
}

// inertiaInverse checks that the tensor is symmetric positive-definite and returns its inverse.
func inertiaInverse(inertia mgl64.Mat3) (mgl64.Mat3, error) {
	var data []float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := inertia.At(i, j)
			if !isFinite(v) {
				return mgl64.Mat3{}, configErrorf("inertia", "must be finite, got %v", inertia)
			}
			data = append(data, v)
		}
	}
	scale := math.Max(floats.Max(data), -floats.Min(data))
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if !floats.EqualWithinAbs(inertia.At(i, j), inertia.At(j, i), symmetryε*scale) {
				return mgl64.Mat3{}, configErrorf("inertia", "must be symmetric, (%d,%d)=%g but (%d,%d)=%g", i, j, inertia.At(i, j), j, i, inertia.At(j, i))
			}
		}
	}
	for i := 0; i < 3; i++ {
		if inertia.At(i, i) <= 0 {
			return mgl64.Mat3{}, configErrorf("inertia", "principal moment I%d%d must be positive, got %g", i, i, inertia.At(i, i))
		}
	}
	sym := mat64.NewSymDense(3, data)
	var chol mat64.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return mgl64.Mat3{}, configErrorf("inertia", "must be positive-definite\n%v", mat64.Formatted(sym))
	}
	var inv mat64.SymDense
	if err := inv.InverseCholesky(&chol); err != nil {
		return mgl64.Mat3{}, configErrorf("inertia", "cannot be inverted: %s", err)
	}
	var out mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, inv.At(i, j))
		}
	}
	return out, nil
}

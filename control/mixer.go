package control

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gonum/matrix/mat64"
	"github.com/quadsim/multicopter"
)

// ErrUncontrollable is returned when the rotors cannot produce independent
// thrust, roll, pitch and yaw.
var ErrUncontrollable = errors.New("rotor layout cannot control thrust and all three torques")

// Mixer allocates a collective thrust and a body torque to rotor speeds.
type Mixer struct {
	rotors []multicopter.RotorConfig
	// alloc maps the squared speed of each rotor to (thrust, τx, τy, τz).
	alloc *mat64.Dense
	// pinv is the minimum norm right inverse of alloc.
	pinv *mat64.Dense
}

// NewMixer builds the allocation of the provided vehicle.
func NewMixer(cfg multicopter.VehicleConfig) (*Mixer, error) {
	n := len(cfg.Rotors)
	if n < 4 {
		return nil, fmt.Errorf("%w: %d rotors", ErrUncontrollable, n)
	}
	alloc := mat64.NewDense(4, n, nil)
	for i, r := range cfg.Rotors {
		axis := r.Axis.Normalize()
		torque := r.Position.Cross(axis).Add(axis.Mul(float64(r.Spin) * r.TorqueCoefficient))
		alloc.Set(0, i, r.ThrustCoefficient*axis[2])
		for j := 0; j < 3; j++ {
			alloc.Set(j+1, i, r.ThrustCoefficient*torque[j])
		}
	}
	// pinv = Aᵀ(AAᵀ)⁻¹
	var aat, aatInv mat64.Dense
	aat.Mul(alloc, alloc.T())
	if err := aatInv.Inverse(&aat); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUncontrollable, err)
	}
	pinv := mat64.NewDense(n, 4, nil)
	pinv.Mul(alloc.T(), &aatInv)
	return &Mixer{rotors: append([]multicopter.RotorConfig(nil), cfg.Rotors...), alloc: alloc, pinv: pinv}, nil
}

// Mix returns the rotor speeds (rad/s) closest to the requested body frame
// thrust (N along +Z) and torque (N·m). Rotors saturate at zero and at their maximum speed.
func (m *Mixer) Mix(thrust float64, torque mgl64.Vec3) []float64 {
	b := mat64.NewVector(4, []float64{thrust, torque[0], torque[1], torque[2]})
	var u mat64.Vector
	u.MulVec(m.pinv, b)
	cmds := make([]float64, len(m.rotors))
	for i, r := range m.rotors {
		sq := math.Max(0, u.At(i, 0))
		cmds[i] = r.Clamp(math.Sqrt(sq))
	}
	return cmds
}

// Wrench returns the thrust and torque the allocation predicts for the commands.
func (m *Mixer) Wrench(cmds []float64) (thrust float64, torque mgl64.Vec3) {
	sq := make([]float64, len(m.rotors))
	for i, r := range m.rotors {
		if i < len(cmds) {
			c := r.Clamp(cmds[i])
			sq[i] = c * c
		}
	}
	var out mat64.Vector
	out.MulVec(m.alloc, mat64.NewVector(len(sq), sq))
	return out.At(0, 0), mgl64.Vec3{out.At(1, 0), out.At(2, 0), out.At(3, 0)}
}

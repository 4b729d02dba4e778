package multicopter

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPertArbitrary(t *testing.T) {
	pert := Wrench{Force: mgl64.Vec3{1, 2, 3}, Torque: mgl64.Vec3{4, 5, 6}}
	perts := Perturbations{}
	perts.Arbitrary = func(s State) Wrench {
		return pert
	}
	s := NewState(mgl64.Vec3{})
	s.Velocity = mgl64.Vec3{10, 0, 0}
	if w := perts.Perturb(s); w != pert {
		t.Fatalf("arbitrary perturbations fail: %+v", w)
	}
	// Drag adds up with the arbitrary disturbance.
	perts.LinearDrag = 1
	if w := perts.Perturb(s); !vectorsEqual(w.Force, mgl64.Vec3{-9, 2, 3}) {
		t.Fatalf("drag and arbitrary force = %v", w.Force)
	}
}

func TestPertEmpty(t *testing.T) {
	perts := Perturbations{Wind: mgl64.Vec3{3, 0, 0}}
	if !perts.isEmpty() {
		t.Fatal("wind alone should not perturb without drag")
	}
	s := NewState(mgl64.Vec3{})
	s.Velocity = mgl64.Vec3{1, 2, 3}
	if w := perts.Perturb(s); w != (Wrench{}) {
		t.Fatalf("empty perturbations = %+v", w)
	}
}

func TestPertBodyFrame(t *testing.T) {
	perts := Perturbations{LinearDrag: 2}
	s := NewState(mgl64.Vec3{})
	s.Orientation = QuatFromEuler(0, 0, math.Pi/2)
	s.Velocity = mgl64.Vec3{0, 1, 0}
	// Flying along world +Y while facing it: the drag is along body -X.
	if w := perts.Drag(s); !vectorsWithin(w.Force, mgl64.Vec3{-2, 0, 0}, 1e-12) {
		t.Fatalf("body frame drag = %v", w.Force)
	}
}

func TestPertValidation(t *testing.T) {
	for _, tc := range []struct {
		field string
		perts Perturbations
	}{
		{"drag.linear", Perturbations{LinearDrag: math.NaN()}},
		{"drag.quadratic", Perturbations{QuadraticDrag: -1}},
		{"drag.angular", Perturbations{AngularDrag: math.Inf(1)}},
		{"drag.wind", Perturbations{Wind: mgl64.Vec3{0, math.NaN(), 0}}},
	} {
		assertConfigError(t, tc.perts.validate(), tc.field)
	}
	if err := (Perturbations{LinearDrag: 0.1, Wind: mgl64.Vec3{1, 1, 0}}).validate(); err != nil {
		t.Fatalf("valid perturbations rejected: %s", err)
	}
}

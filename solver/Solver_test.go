package solver

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// valueGrad is a minimal G.ValueGrad with fixed gradients
type valueGrad struct {
	value, grad *tensor.Dense
}

func (v valueGrad) Value() G.Value         { return v.value }
func (v valueGrad) Grad() (G.Value, error) { return v.grad, nil }
func newValueGrad(grad ...float64) valueGrad {
	return valueGrad{
		value: tensor.New(tensor.WithShape(len(grad)),
			tensor.WithBacking(make([]float64, len(grad)))),
		grad: tensor.New(tensor.WithShape(len(grad)),
			tensor.WithBacking(grad)),
	}
}

func TestClipGradNorm(t *testing.T) {
	a := newValueGrad(3, 0)
	b := newValueGrad(0, 4)
	model := []G.ValueGrad{a, b}

	norm, err := ClipGradNorm(model, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(norm-5) > 1e-12 {
		t.Errorf("norm before clipping: want 5, got %v", norm)
	}

	clipped, err := GradNorm(model)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(clipped-0.5) > 1e-5 {
		t.Errorf("norm after clipping: want 0.5, got %v", clipped)
	}

	// Direction must be preserved
	ga := a.grad.Data().([]float64)
	gb := b.grad.Data().([]float64)
	if math.Abs(ga[0]/gb[1]-0.75) > 1e-12 {
		t.Errorf("clipping changed gradient direction: %v %v", ga, gb)
	}
}

func TestClipGradNormBelowMax(t *testing.T) {
	a := newValueGrad(0.1, 0.2)
	model := []G.ValueGrad{a}

	if _, err := ClipGradNorm(model, 0.5); err != nil {
		t.Fatal(err)
	}
	got := a.grad.Data().([]float64)
	if got[0] != 0.1 || got[1] != 0.2 {
		t.Errorf("gradients below max norm should be unchanged, got %v", got)
	}
}

func TestCreate(t *testing.T) {
	for _, c := range []Config{
		NewDefaultAdam(3e-4, 1),
		{Type: RMSProp, StepSize: 1e-3},
		{Type: Vanilla, StepSize: 1e-2},
	} {
		s, err := c.Create()
		if err != nil {
			t.Errorf("create %v: %v", c.Type, err)
		}
		if s == nil {
			t.Errorf("create %v: nil solver", c.Type)
		}
	}

	if _, err := (Config{Type: "Lion", StepSize: 1}).Create(); err == nil {
		t.Error("expected error for unknown solver type")
	}
	if _, err := (Config{Type: Adam}).Create(); err == nil {
		t.Error("expected error for zero step size")
	}
}

package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
)

// GradNorm returns the global L2 norm of the gradients of all nodes in
// model.
func GradNorm(model []G.ValueGrad) (float64, error) {
	var sumSq float64
	for _, vg := range model {
		grad, err := gradData(vg)
		if err != nil {
			return 0, fmt.Errorf("gradNorm: %w", err)
		}
		sumSq += floats.Dot(grad, grad)
	}
	return math.Sqrt(sumSq), nil
}

// ClipGradNorm rescales the gradients of model in place so that their
// global L2 norm is at most maxNorm. The norm before clipping is
// returned. A non-positive maxNorm disables clipping.
func ClipGradNorm(model []G.ValueGrad, maxNorm float64) (float64, error) {
	norm, err := GradNorm(model)
	if err != nil {
		return 0, fmt.Errorf("clipGradNorm: %w", err)
	}
	if maxNorm <= 0 {
		return norm, nil
	}

	coef := maxNorm / (norm + 1e-6)
	if coef >= 1 {
		return norm, nil
	}

	for _, vg := range model {
		grad, err := gradData(vg)
		if err != nil {
			return 0, fmt.Errorf("clipGradNorm: %w", err)
		}
		floats.Scale(coef, grad)
	}
	return norm, nil
}

// gradData returns the backing data of the gradient of vg
func gradData(vg G.ValueGrad) ([]float64, error) {
	grad, err := vg.Grad()
	if err != nil {
		return nil, fmt.Errorf("could not get gradient: %v", err)
	}

	switch data := grad.Data().(type) {
	case []float64:
		return data, nil
	case float64:
		return nil, fmt.Errorf("scalar gradients are not supported")
	default:
		return nil, fmt.Errorf("unsupported gradient type %T", data)
	}
}

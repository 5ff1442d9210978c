// Package policy implements action samplers for continuous-action
// policies.
package policy

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/safebench/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxAction bounds the magnitude of squashed actions so that they stay
// strictly inside (-1, 1) when tanh saturates in floating point.
const MaxAction = 1 - 1e-7

// DefaultEpsilon is the numeric floor of the squashing correction
const DefaultEpsilon = 1e-6

// Sample is a batch of squashed Gaussian samples, flattened row-major
type Sample struct {
	// Action holds the squashed actions tanh(z)
	Action []float64

	// PreSquash holds the Gaussian samples z
	PreSquash []float64

	// LogProb holds the corrected log-density of each row's action
	LogProb []float64
}

// SquashedGaussian samples actions from a Normal distribution squashed
// to (-1, 1) through tanh. The distribution is parameterised per
// element by a mean and a log standard deviation, so that an actor's
// two heads can be fed to it directly.
type SquashedGaussian struct {
	actionDim int
	epsilon   float64
	unit      distuv.Normal
}

// NewSquashedGaussian returns a sampler over actions of dimension
// actionDim. The epsilon argument is the numeric floor added inside the
// log of the squashing correction.
func NewSquashedGaussian(actionDim int, epsilon float64,
	seed uint64) (*SquashedGaussian, error) {
	if actionDim <= 0 {
		return nil, fmt.Errorf("newSquashedGaussian: action dimension "+
			"must be positive, got %v", actionDim)
	}
	if epsilon < 0 {
		return nil, fmt.Errorf("newSquashedGaussian: epsilon must be "+
			"non-negative, got %v", epsilon)
	}

	return &SquashedGaussian{
		actionDim: actionDim,
		epsilon:   epsilon,
		unit: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(seed),
		},
	}, nil
}

// ActionDim returns the dimension of actions
func (s *SquashedGaussian) ActionDim() int {
	return s.actionDim
}

// Sample draws z ~ N(mean, exp(logStd)) for each element, squashes it
// to (-1, 1) and computes the corrected log-probability of each row.
func (s *SquashedGaussian) Sample(mean, logStd []float64) (Sample, error) {
	if err := s.checkShape(mean, logStd); err != nil {
		return Sample{}, fmt.Errorf("sample: %w", err)
	}

	z := make([]float64, len(mean))
	action := make([]float64, len(mean))
	for i := range mean {
		z[i] = mean[i] + math.Exp(logStd[i])*s.unit.Rand()
		action[i] = floatutils.Clip(math.Tanh(z[i]), -MaxAction, MaxAction)
	}

	logProb, err := LogProb(mean, logStd, z, s.actionDim, s.epsilon)
	if err != nil {
		return Sample{}, fmt.Errorf("sample: %w", err)
	}

	return Sample{
		Action:    action,
		PreSquash: z,
		LogProb:   logProb,
	}, nil
}

// Mean returns the deterministic action for each row, which is the
// Gaussian mean itself. The mean is not passed through tanh; actors
// already bound it with their tanh mean head.
func (s *SquashedGaussian) Mean(mean []float64) []float64 {
	out := make([]float64, len(mean))
	copy(out, mean)
	return out
}

func (s *SquashedGaussian) checkShape(mean, logStd []float64) error {
	if len(mean) != len(logStd) {
		return fmt.Errorf("mean and log standard deviation lengths "+
			"differ (%v != %v)", len(mean), len(logStd))
	}
	if len(mean)%s.actionDim != 0 {
		return fmt.Errorf("length %v is not a multiple of the action "+
			"dimension %v", len(mean), s.actionDim)
	}
	return nil
}

// LogProb returns, for each row of the pre-squash samples z, the
// log-density of tanh(z):
//
//	log π(a) = Σ_i log N(z_i; mean_i, exp(logStd_i)) - log(1 - tanh(z_i)² + ε)
func LogProb(mean, logStd, z []float64, actionDim int,
	epsilon float64) ([]float64, error) {
	if len(mean) != len(logStd) || len(mean) != len(z) {
		return nil, fmt.Errorf("logProb: lengths differ (mean %v, "+
			"log std %v, z %v)", len(mean), len(logStd), len(z))
	}
	if actionDim <= 0 || len(z)%actionDim != 0 {
		return nil, fmt.Errorf("logProb: length %v is not a multiple of "+
			"the action dimension %v", len(z), actionDim)
	}

	rows := len(z) / actionDim
	logProb := make([]float64, rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < actionDim; col++ {
			i := row*actionDim + col
			normal := distuv.Normal{Mu: mean[i], Sigma: math.Exp(logStd[i])}
			squash := math.Tanh(z[i])
			logProb[row] += normal.LogProb(z[i]) -
				math.Log(1-squash*squash+epsilon)
		}
	}
	return logProb, nil
}

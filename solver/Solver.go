// Package solver wraps Gorgonia Solvers so that they can be described in
// configuration files, and provides gradient-norm clipping that Gorgonia
// solvers do not perform across a whole parameter set.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of Solvers that are available.
type Type string

const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

// Config describes a Gorgonia Solver. Fields that a Type does not use
// are ignored.
type Config struct {
	Type     Type    `mapstructure:"type" yaml:"type"`
	StepSize float64 `mapstructure:"step_size" yaml:"step_size"`
	Epsilon  float64 `mapstructure:"epsilon" yaml:"epsilon,omitempty"`
	Beta1    float64 `mapstructure:"beta1" yaml:"beta1,omitempty"`
	Beta2    float64 `mapstructure:"beta2" yaml:"beta2,omitempty"`
	Rho      float64 `mapstructure:"rho" yaml:"rho,omitempty"`
	Batch    int     `mapstructure:"batch" yaml:"batch,omitempty"`
}

// NewDefaultAdam returns the configuration of an Adam solver with
// default hyperparameters
func NewDefaultAdam(stepSize float64, batchSize int) Config {
	return Config{
		Type:     Adam,
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
		Batch:    batchSize,
	}
}

// Validate returns an error if the configuration cannot create a solver
func (c Config) Validate() error {
	switch c.Type {
	case Adam, RMSProp, Vanilla:
	default:
		return fmt.Errorf("validate: unknown solver type %q", c.Type)
	}
	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, got %v",
			c.StepSize)
	}
	return nil
}

// Create returns a new Gorgonia Solver as described by the Config.
// Unset hyperparameters take Gorgonia's usual defaults.
func (c Config) Create() (G.Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	batch := float64(c.Batch)
	if batch <= 0 {
		batch = 1
	}
	eps := c.Epsilon
	if eps <= 0 {
		eps = 1e-8
	}

	switch c.Type {
	case Adam:
		beta1, beta2 := c.Beta1, c.Beta2
		if beta1 == 0 {
			beta1 = 0.9
		}
		if beta2 == 0 {
			beta2 = 0.999
		}
		return G.NewAdamSolver(
			G.WithLearnRate(c.StepSize),
			G.WithEps(eps),
			G.WithBeta1(beta1),
			G.WithBeta2(beta2),
			G.WithBatchSize(batch),
		), nil

	case RMSProp:
		rho := c.Rho
		if rho == 0 {
			rho = 0.999
		}
		return G.NewRMSPropSolver(
			G.WithLearnRate(c.StepSize),
			G.WithEps(eps),
			G.WithRho(rho),
			G.WithBatchSize(batch),
		), nil

	default:
		return G.NewVanillaSolver(
			G.WithLearnRate(c.StepSize),
			G.WithBatchSize(batch),
		), nil
	}
}

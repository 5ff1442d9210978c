package sac

import (
	"fmt"

	"github.com/samuelfneumann/safebench/initwfn"
	"github.com/samuelfneumann/safebench/network"
	"github.com/samuelfneumann/safebench/solver"
)

// NetworkConfig describes the layers shared by all networks of the
// agent. State and action dimensions come from the agent Config.
type NetworkConfig struct {
	ScalarDim  int             `mapstructure:"scalar_dim" yaml:"scalar_dim"`
	Encoder    []int           `mapstructure:"encoder" yaml:"encoder"`
	Hidden     []int           `mapstructure:"hidden" yaml:"hidden"`
	Activation string          `mapstructure:"activation" yaml:"activation"`
	Init       initwfn.InitWFn `mapstructure:"init" yaml:"init"`
}

// Config implements a configuration of the risk-aware SAC agent
type Config struct {
	// Number of stored transitions before training starts
	BufferStartTraining int `mapstructure:"buffer_start_training" yaml:"buffer_start_training"`

	LR              float64 `mapstructure:"lr" yaml:"lr"`
	BatchSize       int     `mapstructure:"batch_size" yaml:"batch_size"`
	UpdateIteration int     `mapstructure:"update_iteration" yaml:"update_iteration"`
	Gamma           float64 `mapstructure:"gamma" yaml:"gamma"`
	Tau             float64 `mapstructure:"tau" yaml:"tau"`

	RiskThreshold     float64 `mapstructure:"risk_threshold" yaml:"risk_threshold"`
	SuppressionWeight float64 `mapstructure:"suppression_weight" yaml:"suppression_weight"`
	UseRecovery       bool    `mapstructure:"use_recovery" yaml:"use_recovery"`
	UseSuppression    bool    `mapstructure:"use_suppression" yaml:"use_suppression"`

	// Weight of the risk signal added to the reward when recovery is
	// disabled
	RiskPenalty float64 `mapstructure:"risk_penalty" yaml:"risk_penalty"`

	MaxGradNorm float64 `mapstructure:"max_grad_norm" yaml:"max_grad_norm"`

	// Numeric floor of the tanh squashing correction
	MinVal float64 `mapstructure:"min_val" yaml:"min_val"`

	EgoStateDim  int `mapstructure:"ego_state_dim" yaml:"ego_state_dim"`
	EgoActionDim int `mapstructure:"ego_action_dim" yaml:"ego_action_dim"`

	Network NetworkConfig `mapstructure:"network" yaml:"network"`

	// Solver overrides the default Adam solver with step size LR
	Solver solver.Config `mapstructure:"solver" yaml:"solver"`

	ModelID   string `mapstructure:"model_id" yaml:"model_id"`
	ModelPath string `mapstructure:"model_path" yaml:"model_path"`
	Seed      uint64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns the configuration of the ego agent used by
// the benchmark for the given observation and action dimensions
func DefaultConfig(stateDim, actionDim int) Config {
	arch := network.DefaultArchitecture(stateDim, actionDim)
	return Config{
		BufferStartTraining: 1000,
		LR:                  1e-4,
		BatchSize:           128,
		UpdateIteration:     4,
		Gamma:               0.99,
		Tau:                 0.005,
		RiskThreshold:       0.1,
		SuppressionWeight:   10.0,
		UseRecovery:         true,
		UseSuppression:      true,
		RiskPenalty:         2.0,
		MaxGradNorm:         0.5,
		MinVal:              1e-7,
		EgoStateDim:         stateDim,
		EgoActionDim:        actionDim,
		Network: NetworkConfig{
			ScalarDim:  arch.ScalarDim,
			Encoder:    arch.Encoder,
			Hidden:     arch.Hidden,
			Activation: arch.Activation,
			Init:       arch.Init,
		},
		ModelID:   "0",
		ModelPath: "model_ckpt/sac",
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("validate: batch size must be positive, got %v",
			c.BatchSize)
	}
	if c.UpdateIteration < 0 {
		return fmt.Errorf("validate: update iterations must be "+
			"non-negative, got %v", c.UpdateIteration)
	}
	if c.BufferStartTraining < 0 {
		return fmt.Errorf("validate: buffer_start_training must be "+
			"non-negative, got %v", c.BufferStartTraining)
	}
	if c.Gamma < 0 || c.Gamma >= 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1), got %v",
			c.Gamma)
	}
	if c.Tau < 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in [0, 1], got %v", c.Tau)
	}
	if c.RiskThreshold < 0 {
		return fmt.Errorf("validate: risk threshold must be non-negative, "+
			"got %v", c.RiskThreshold)
	}
	if c.UseSuppression && !c.UseRecovery {
		return fmt.Errorf("validate: suppression requires recovery")
	}
	if c.MinVal < 0 {
		return fmt.Errorf("validate: min_val must be non-negative, got %v",
			c.MinVal)
	}
	if c.ModelID == "" {
		return fmt.Errorf("validate: model id must be set")
	}
	if err := c.solver().Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := c.Architecture().Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// Architecture returns the layout of all networks of the agent
func (c Config) Architecture() network.Architecture {
	return network.Architecture{
		StateDim:   c.EgoStateDim,
		ScalarDim:  c.Network.ScalarDim,
		ActionDim:  c.EgoActionDim,
		Encoder:    c.Network.Encoder,
		Hidden:     c.Network.Hidden,
		Activation: c.Network.Activation,
		Init:       c.Network.Init,
	}
}

// solver returns the configuration of the solvers of every network
func (c Config) solver() solver.Config {
	if c.Solver.Type == "" {
		return solver.NewDefaultAdam(c.LR, 1)
	}
	s := c.Solver
	if s.StepSize == 0 {
		s.StepSize = c.LR
	}
	return s
}

package network

import (
	"fmt"

	"github.com/samuelfneumann/safebench/initwfn"
)

// Architecture describes the layout shared by all networks of an agent.
//
// The trailing ScalarDim columns of an observation form the scalar
// feature block; the leading StateDim-ScalarDim columns form the visual
// block. The visual block is reduced by the Encoder stages to an
// embedding which is concatenated with the scalar block (and the action
// for Q networks) before the Hidden stages.
type Architecture struct {
	StateDim   int             `mapstructure:"state_dim" yaml:"state_dim"`
	ScalarDim  int             `mapstructure:"scalar_dim" yaml:"scalar_dim"`
	ActionDim  int             `mapstructure:"action_dim" yaml:"action_dim"`
	Encoder    []int           `mapstructure:"encoder" yaml:"encoder"`
	Hidden     []int           `mapstructure:"hidden" yaml:"hidden"`
	Activation string          `mapstructure:"activation" yaml:"activation"`
	Init       initwfn.InitWFn `mapstructure:"init" yaml:"init"`
}

// DefaultArchitecture returns the default layout for the given state
// and action dimensions: a [256 64] visual encoder, four scalar
// features and two hidden stages of 256 ReLU units.
func DefaultArchitecture(stateDim, actionDim int) Architecture {
	return Architecture{
		StateDim:   stateDim,
		ScalarDim:  4,
		ActionDim:  actionDim,
		Encoder:    []int{256, 64},
		Hidden:     []int{256, 256},
		Activation: "relu",
		Init:       initwfn.Default(),
	}
}

// VisualDim returns the number of columns in the visual block
func (a Architecture) VisualDim() int {
	return a.StateDim - a.ScalarDim
}

// Validate returns an error if the architecture cannot be built
func (a Architecture) Validate() error {
	if a.StateDim <= 0 {
		return fmt.Errorf("validate: state dimension must be positive, "+
			"got %v", a.StateDim)
	}
	if a.ActionDim <= 0 {
		return fmt.Errorf("validate: action dimension must be positive, "+
			"got %v", a.ActionDim)
	}
	if a.ScalarDim < 0 || a.ScalarDim > a.StateDim {
		return fmt.Errorf("validate: scalar dimension %v must be in "+
			"[0, %v]", a.ScalarDim, a.StateDim)
	}
	if len(a.Hidden) == 0 {
		return fmt.Errorf("validate: at least one hidden stage is required")
	}
	for _, units := range append(append([]int{}, a.Encoder...), a.Hidden...) {
		if units <= 0 {
			return fmt.Errorf("validate: layer widths must be positive, "+
				"got %v", units)
		}
	}
	if _, err := ActivationFromName(a.Activation); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// equal returns whether a and b describe the same parameter layout
func (a Architecture) equal(b Architecture) bool {
	if a.StateDim != b.StateDim || a.ScalarDim != b.ScalarDim ||
		a.ActionDim != b.ActionDim || len(a.Encoder) != len(b.Encoder) ||
		len(a.Hidden) != len(b.Hidden) {
		return false
	}
	for i := range a.Encoder {
		if a.Encoder[i] != b.Encoder[i] {
			return false
		}
	}
	for i := range a.Hidden {
		if a.Hidden[i] != b.Hidden[i] {
			return false
		}
	}
	return true
}

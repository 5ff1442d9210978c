// Package dummy implements fixed, non-learning policies used as
// baselines for the ego vehicle and for scenarios
package dummy

import (
	"fmt"

	"github.com/samuelfneumann/safebench/agent"
	"github.com/samuelfneumann/safebench/expreplay"
	"gonum.org/v1/gonum/mat"
)

// Default throttle of the Ego policy
const Throttle = 0.5

// Constant is an agent.Agent that emits the same action for every
// observation. It never trains and has nothing to save.
type Constant struct {
	stateDim int
	action   []float64
	mode     agent.Mode
}

// NewConstant returns a policy which always emits action
func NewConstant(stateDim int, action []float64) (*Constant, error) {
	if stateDim <= 0 {
		return nil, fmt.Errorf("newConstant: state dimension must be "+
			"positive, got %v", stateDim)
	}
	if len(action) == 0 {
		return nil, fmt.Errorf("newConstant: empty action")
	}
	return &Constant{
		stateDim: stateDim,
		action:   append([]float64(nil), action...),
		mode:     agent.Train,
	}, nil
}

// NewEgo returns an ego policy which always drives straight ahead,
// emitting [accel, steer] = [Throttle, 0]
func NewEgo(stateDim int) (*Constant, error) {
	return NewConstant(stateDim, []float64{Throttle, 0})
}

// NewIdle returns a scenario policy which emits zero actions of
// dimension actionDim
func NewIdle(stateDim, actionDim int) (*Constant, error) {
	if actionDim <= 0 {
		return nil, fmt.Errorf("newIdle: action dimension must be "+
			"positive, got %v", actionDim)
	}
	return NewConstant(stateDim, make([]float64, actionDim))
}

// SelectAction returns the constant action for each row of states. The
// task and executed actions are always equal.
func (c *Constant) SelectAction(states *mat.Dense, _ bool) (task,
	executed *mat.Dense, err error) {
	rows, cols := states.Dims()
	if cols != c.stateDim {
		return nil, nil, fmt.Errorf("selectAction: expected %v state "+
			"features, got %v", c.stateDim, cols)
	}

	task = mat.NewDense(rows, len(c.action), nil)
	for i := 0; i < rows; i++ {
		task.SetRow(i, c.action)
	}
	return task, mat.DenseCopyOf(task), nil
}

func (c *Constant) SetMode(m agent.Mode) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("setMode: %w", err)
	}
	c.mode = m
	return nil
}

func (c *Constant) Mode() agent.Mode {
	return c.mode
}

// Train does nothing
func (c *Constant) Train(*expreplay.Buffer) (agent.UpdateStats, error) {
	return agent.UpdateStats{}, nil
}

// Save does nothing
func (c *Constant) Save(int) error { return nil }

// Load does nothing
func (c *Constant) Load(int) error { return nil }

// Package timestep implements the records of the interaction between
// agents, scenario policies and a batched driving environment
package timestep

import (
	"fmt"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// Info describes the outcome of one environment step for a single
// scenario instance
type Info struct {
	ScenarioID int
	Step       int
	StepType   StepType

	// Cost is the non-negative safety cost of the step
	Cost      float64
	Collision bool
	OffRoad   bool
}

// Risk returns the risk signal of the step, which is the negated cost
// so that higher values are safer
func (i Info) Risk() float64 {
	return -i.Cost
}

// Transition is a single (scenario, timestep) transition as stored in a
// replay buffer. TaskAction is the nominal policy's action, MixedAction
// is the action that was executed.
type Transition struct {
	State       []float64
	TaskAction  []float64
	MixedAction []float64
	Reward      float64
	Risk        float64
	NextState   []float64
	Done        bool
	Info        Info
}

// Last returns whether the transition ended its episode
func (t Transition) Last() bool {
	return t.Done
}

func (t Transition) String() string {
	str := "Transition | Scenario: %v  |  Step: %v  |  Reward:  %.2f  |  " +
		"Risk: %.2f  |  Done: %v"

	return fmt.Sprintf(str, t.Info.ScenarioID, t.Info.Step, t.Reward, t.Risk,
		t.Done)
}

package environment

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"
)

// Spec implements an environment specification, which tells the
// dimensions and bounds of observations and actions
type Spec struct {
	ObservationDim int

	// Number of trailing scalar features of each observation
	ScalarDim int

	ActionDim         int
	ScenarioActionDim int

	// Bounds of every action component
	ActionBounds r1.Interval

	// Maximum number of concurrently running scenario instances
	NumScenario int
}

// Validate checks a Spec for errors
func (s Spec) Validate() error {
	if s.ObservationDim <= 0 || s.ActionDim <= 0 || s.ScenarioActionDim <= 0 {
		return fmt.Errorf("validate: dimensions must be positive, got "+
			"observation %v, action %v, scenario action %v",
			s.ObservationDim, s.ActionDim, s.ScenarioActionDim)
	}
	if s.ScalarDim < 0 || s.ScalarDim > s.ObservationDim {
		return fmt.Errorf("validate: scalar dimension %v must be in "+
			"[0, %v]", s.ScalarDim, s.ObservationDim)
	}
	if s.ActionBounds.Min >= s.ActionBounds.Max {
		return fmt.Errorf("validate: empty action bounds %v", s.ActionBounds)
	}
	if s.NumScenario <= 0 {
		return fmt.Errorf("validate: number of scenarios must be positive, "+
			"got %v", s.NumScenario)
	}
	return nil
}

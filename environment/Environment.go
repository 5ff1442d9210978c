// Package environment outlines the interfaces and structs needed to
// implement batched driving environments, in which several scenario
// instances run side by side and are stepped together
package environment

import (
	"github.com/samuelfneumann/safebench/scenario"
	"github.com/samuelfneumann/safebench/timestep"
	"gonum.org/v1/gonum/mat"
)

// Step holds the outcome of stepping every scenario instance once.
// Row i of each field belongs to the instance started from the i-th
// config passed to Reset.
type Step struct {
	Observation *mat.Dense
	Reward      []float64
	Done        []bool
	Info        []timestep.Info
}

// Environment implements a batch of simulated scenario instances.
// Instances that are done keep their last observation and report zero
// reward until the next Reset.
type Environment interface {
	// Reset starts one scenario instance per config
	Reset(configs []scenario.Config) (*mat.Dense, []timestep.Info, error)

	// Step applies one row of ego actions and one row of scenario
	// actions to each running instance
	Step(ego, scenario *mat.Dense) (Step, error)

	// AllDone returns whether every instance has finished
	AllDone() bool

	Spec() Spec
	Close() error
}

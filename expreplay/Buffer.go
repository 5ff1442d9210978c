// Package expreplay implements a replay buffer which keeps a separate
// trajectory for each concurrently running scenario instance.
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/safebench/timestep"
)

// Config describes a replay buffer
type Config struct {
	Capacity    int    `mapstructure:"buffer_capacity" yaml:"buffer_capacity"`
	NumScenario int    `mapstructure:"num_scenario" yaml:"num_scenario"`
	StateDim    int    `mapstructure:"state_dim" yaml:"state_dim"`
	ActionDim   int    `mapstructure:"action_dim" yaml:"action_dim"`
	Seed        uint64 `mapstructure:"seed" yaml:"seed"`
}

// Batch is a batch of transitions sampled from a Buffer. Vector fields
// are flattened row-major with Size rows.
type Batch struct {
	Size        int
	StateDim    int
	ActionDim   int
	State       []float64
	TaskAction  []float64
	MixedAction []float64
	Reward      []float64
	Risk        []float64
	NextState   []float64

	// Done holds 1 for transitions that ended their episode, else 0
	Done []float64
}

// Buffer stores transitions in one list per scenario id. Transitions
// are never evicted, but only the most recent Capacity/NumScenario
// transitions of each scenario are sampled.
type Buffer struct {
	capacity    int
	numScenario int
	stateDim    int
	actionDim   int

	trajectories [][]timestep.Transition
	stored       int
	selector     Selector
}

// New returns a new Buffer
func New(c Config) (*Buffer, error) {
	if c.NumScenario <= 0 {
		return nil, fmt.Errorf("new: number of scenarios must be positive, "+
			"got %v", c.NumScenario)
	}
	if c.Capacity < c.NumScenario {
		return nil, fmt.Errorf("new: capacity %v must be at least the "+
			"number of scenarios %v", c.Capacity, c.NumScenario)
	}
	if c.StateDim <= 0 || c.ActionDim <= 0 {
		return nil, fmt.Errorf("new: state and action dimensions must be "+
			"positive, got %v and %v", c.StateDim, c.ActionDim)
	}

	return &Buffer{
		capacity:     c.Capacity,
		numScenario:  c.NumScenario,
		stateDim:     c.StateDim,
		actionDim:    c.ActionDim,
		trajectories: make([][]timestep.Transition, c.NumScenario),
		selector:     NewUniformSelector(c.Seed),
	}, nil
}

// Len returns the number of transitions stored since creation
func (b *Buffer) Len() int {
	return b.stored
}

// Window returns the number of most recent transitions of each
// scenario that can be sampled
func (b *Buffer) Window() int {
	return b.capacity / b.numScenario
}

// ScenarioLen returns the number of transitions stored for a scenario
func (b *Buffer) ScenarioLen(scenarioID int) int {
	if scenarioID < 0 || scenarioID >= b.numScenario {
		return 0
	}
	return len(b.trajectories[scenarioID])
}

// Store appends each transition of batch to the trajectory of the
// scenario named by its Info. Either all transitions are stored or
// none are.
func (b *Buffer) Store(batch []timestep.Transition) error {
	for _, t := range batch {
		if err := b.check(t); err != nil {
			return &Error{Op: "store", Err: err}
		}
	}

	for _, t := range batch {
		id := t.Info.ScenarioID
		b.trajectories[id] = append(b.trajectories[id], clone(t))
		b.stored++
	}
	return nil
}

// check returns an error if t cannot be stored
func (b *Buffer) check(t timestep.Transition) error {
	if id := t.Info.ScenarioID; id < 0 || id >= b.numScenario {
		return fmt.Errorf("%w %v, expected [0, %v)", errUnknownScenario, id,
			b.numScenario)
	}
	if len(t.State) != b.stateDim || len(t.NextState) != b.stateDim {
		return fmt.Errorf("states must have %v features, got %v and %v",
			b.stateDim, len(t.State), len(t.NextState))
	}
	if len(t.TaskAction) != b.actionDim || len(t.MixedAction) != b.actionDim {
		return fmt.Errorf("actions must have %v dimensions, got %v and %v",
			b.actionDim, len(t.TaskAction), len(t.MixedAction))
	}
	return nil
}

// Sample returns batchSize transitions drawn uniformly with replacement
// from the sampling window of every scenario.
func (b *Buffer) Sample(batchSize int) (Batch, error) {
	if batchSize <= 0 {
		return Batch{}, &Error{
			Op:  "sample",
			Err: fmt.Errorf("batch size must be positive, got %v", batchSize),
		}
	}

	pool := b.pool()
	if len(pool) == 0 {
		return Batch{}, &Error{Op: "sample", Err: errEmptyBuffer}
	}

	batch := Batch{
		Size:        batchSize,
		StateDim:    b.stateDim,
		ActionDim:   b.actionDim,
		State:       make([]float64, 0, batchSize*b.stateDim),
		TaskAction:  make([]float64, 0, batchSize*b.actionDim),
		MixedAction: make([]float64, 0, batchSize*b.actionDim),
		Reward:      make([]float64, 0, batchSize),
		Risk:        make([]float64, 0, batchSize),
		NextState:   make([]float64, 0, batchSize*b.stateDim),
		Done:        make([]float64, 0, batchSize),
	}

	for _, i := range b.selector.choose(batchSize, len(pool)) {
		t := pool[i]
		batch.State = append(batch.State, t.State...)
		batch.TaskAction = append(batch.TaskAction, t.TaskAction...)
		batch.MixedAction = append(batch.MixedAction, t.MixedAction...)
		batch.Reward = append(batch.Reward, t.Reward)
		batch.Risk = append(batch.Risk, t.Risk)
		batch.NextState = append(batch.NextState, t.NextState...)

		done := 0.0
		if t.Done {
			done = 1.0
		}
		batch.Done = append(batch.Done, done)
	}

	return batch, nil
}

// pool concatenates the sampling windows of all scenarios
func (b *Buffer) pool() []*timestep.Transition {
	window := b.Window()
	var pool []*timestep.Transition
	for _, trajectory := range b.trajectories {
		start := len(trajectory) - window
		if start < 0 {
			start = 0
		}
		for i := start; i < len(trajectory); i++ {
			pool = append(pool, &trajectory[i])
		}
	}
	return pool
}

func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer{Scenarios: %v, Window: %v, Stored: %v}",
		b.numScenario, b.Window(), b.stored)
}

// clone returns a copy of t that shares no memory with t
func clone(t timestep.Transition) timestep.Transition {
	t.State = append([]float64(nil), t.State...)
	t.TaskAction = append([]float64(nil), t.TaskAction...)
	t.MixedAction = append([]float64(nil), t.MixedAction...)
	t.NextState = append([]float64(nil), t.NextState...)
	return t
}

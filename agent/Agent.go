// Package agent defines the interfaces shared by ego agents and
// scenario policies
package agent

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samuelfneumann/safebench/expreplay"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Policy, which chooses actions for a batch
// of scenario observations, and a Learner, which updates the Policy
// from a replay buffer. Ego agents and scenario policies both satisfy
// Agent.
type Agent interface {
	Policy
	Learner
	Saver
}

// Policy chooses actions for a batch of observations, one row per
// active scenario.
type Policy interface {
	// SelectAction returns the nominal task actions and the actions
	// to execute, which differ where a safety mechanism substituted
	// the nominal action.
	SelectAction(states *mat.Dense, deterministic bool) (task,
		executed *mat.Dense, err error)

	// SetMode switches between training and evaluation mode
	SetMode(Mode) error
	Mode() Mode
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Train performs the updates warranted by the contents of buffer
	Train(buffer *expreplay.Buffer) (UpdateStats, error)
}

// Saver persists the weights of a Learner keyed by episode number
type Saver interface {
	// Save checkpoints the learner at the given episode
	Save(episode int) error

	// Load restores the learner from the checkpoint of the given
	// episode, or from the latest checkpoint if episode is negative
	Load(episode int) error
}

// UpdateStats summarises a call to Train
type UpdateStats struct {
	// Iterations is the number of gradient steps taken, 0 if the
	// call was skipped
	Iterations int

	// Losses maps loss names to their mean over the iterations
	Losses map[string]float64
}

// Skipped returns whether no update was performed
func (u UpdateStats) Skipped() bool {
	return u.Iterations == 0
}

func (u UpdateStats) String() string {
	if u.Skipped() {
		return "{skipped}"
	}

	names := make([]string, 0, len(u.Losses))
	for name := range u.Losses {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "{iterations: %v", u.Iterations)
	for _, name := range names {
		fmt.Fprintf(&b, ", %v: %.4f", name, u.Losses[name])
	}
	b.WriteString("}")
	return b.String()
}

// Mode is the operating mode of a Policy
type Mode string

const (
	Train Mode = "train"
	Eval  Mode = "eval"
)

// ErrUnknownMode is returned for mode strings other than train and eval
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode returns the Mode named by s
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// Validate returns an error if m is not a known mode
func (m Mode) Validate() error {
	switch m {
	case Train, Eval:
		return nil
	}
	return fmt.Errorf("%w %q, expected %q or %q", ErrUnknownMode, string(m),
		Train, Eval)
}

package experiment

import (
	"errors"
	"fmt"
)

// Mode determines which role, if any, is trained by a Runner
type Mode string

const (
	// Eval runs every scenario config once with deterministic actions
	Eval Mode = "eval"

	// TrainAgent trains the ego agent against fixed scenario policies
	TrainAgent Mode = "train_agent"

	// TrainScenario trains the scenario policy against a fixed ego
	TrainScenario Mode = "train_scenario"
)

// ErrUnknownMode is returned for run modes other than eval,
// train_agent and train_scenario
var ErrUnknownMode = errors.New("unknown run mode")

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
	case Eval, TrainAgent, TrainScenario:
		return nil
	}
	return fmt.Errorf("%w %q, expected one of %q, %q or %q", ErrUnknownMode,
		string(m), Eval, TrainAgent, TrainScenario)
}

// Training returns whether m trains a role
func (m Mode) Training() bool {
	return m == TrainAgent || m == TrainScenario
}

// Config represents a configuration of an experiment
type Config struct {
	Mode Mode `mapstructure:"mode" yaml:"mode"`

	// Number of training episodes, each running one batch of
	// scenario configs to completion
	TrainEpisode int `mapstructure:"train_episode" yaml:"train_episode"`

	// Checkpoint the trained role every SaveFreq episodes
	SaveFreq int `mapstructure:"save_freq" yaml:"save_freq"`

	// Number of concurrently running scenario instances
	NumScenario int `mapstructure:"num_scenario" yaml:"num_scenario"`

	BufferCapacity int `mapstructure:"buffer_capacity" yaml:"buffer_capacity"`

	// Display a progress bar on standard error
	Progress bool `mapstructure:"progress" yaml:"progress"`

	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns the default configuration of a run in mode m
func DefaultConfig(m Mode) Config {
	return Config{
		Mode:           m,
		TrainEpisode:   2000,
		SaveFreq:       100,
		NumScenario:    2,
		BufferCapacity: 10000,
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if err := c.Mode.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if c.NumScenario <= 0 {
		return fmt.Errorf("validate: number of scenarios must be positive, "+
			"got %v", c.NumScenario)
	}
	if c.Mode.Training() {
		if c.TrainEpisode <= 0 {
			return fmt.Errorf("validate: train_episode must be positive, "+
				"got %v", c.TrainEpisode)
		}
		if c.BufferCapacity < c.NumScenario {
			return fmt.Errorf("validate: buffer capacity %v must hold at "+
				"least one transition per scenario", c.BufferCapacity)
		}
	}
	return nil
}

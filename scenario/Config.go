// Package scenario implements scenario configurations and a data
// loader which hands out batches of them to concurrently running
// scenario instances.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one scenario: which route the ego vehicle drives
// and how the adversarial actors are placed on it
type Config struct {
	ID    int `mapstructure:"id" yaml:"id"`
	Route int `mapstructure:"route" yaml:"route"`

	// Number of adversarial actors ahead of the ego vehicle
	Adversaries int `mapstructure:"adversaries" yaml:"adversaries"`

	// Distance in metres between consecutive vehicles at spawn
	Gap float64 `mapstructure:"gap" yaml:"gap"`

	// Cruising speed of the adversaries in m/s
	LeadSpeed float64 `mapstructure:"lead_speed" yaml:"lead_speed"`
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.Adversaries < 0 {
		return fmt.Errorf("validate: scenario %v: adversaries must be "+
			"non-negative, got %v", c.ID, c.Adversaries)
	}
	if c.Adversaries > 0 && c.Gap <= 0 {
		return fmt.Errorf("validate: scenario %v: gap must be positive, "+
			"got %v", c.ID, c.Gap)
	}
	if c.LeadSpeed < 0 {
		return fmt.Errorf("validate: scenario %v: lead speed must be "+
			"non-negative, got %v", c.ID, c.LeadSpeed)
	}
	return nil
}

type file struct {
	Scenarios []Config `yaml:"scenarios"`
}

// Load reads the list of scenario configs stored under the scenarios
// key of a YAML file
func Load(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: could not read scenarios: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load: could not decode %v: %w", path, err)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("load: no scenarios in %v", path)
	}

	ids := make(map[int]bool, len(f.Scenarios))
	for _, c := range f.Scenarios {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		if ids[c.ID] {
			return nil, fmt.Errorf("load: duplicate scenario id %v", c.ID)
		}
		ids[c.ID] = true
	}
	return f.Scenarios, nil
}

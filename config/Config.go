// Package config loads YAML configuration files into the configuration
// structs of the other packages and writes them back
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samuelfneumann/safebench/environment/town"
	"github.com/samuelfneumann/safebench/environment/world"
	"github.com/samuelfneumann/safebench/experiment"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Run is the layout of a scenario config file. The same file lists the
// scenarios under the scenarios key, read by scenario.Load.
type Run struct {
	Experiment experiment.Config `mapstructure:"experiment" yaml:"experiment"`
	Town       town.Config       `mapstructure:"town" yaml:"town"`
	World      world.Config      `mapstructure:"world" yaml:"world"`
}

// DefaultRun returns the default run configuration in mode m
func DefaultRun(m experiment.Mode) Run {
	e := experiment.DefaultConfig(m)
	return Run{
		Experiment: e,
		Town:       town.DefaultConfig(e.NumScenario),
		World:      world.DefaultConfig(),
	}
}

// Load reads the YAML file at path into dst. Fields of dst missing
// from the file keep their values, so dst should hold the defaults.
func Load(path string, dst interface{}) error {
	vp, err := read(path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := vp.Unmarshal(dst); err != nil {
		return fmt.Errorf("load: could not decode %v: %w", path, err)
	}
	return nil
}

// LoadKey reads the value under key of the YAML file at path into dst
func LoadKey(path, key string, dst interface{}) error {
	vp, err := read(path)
	if err != nil {
		return fmt.Errorf("loadKey: %w", err)
	}
	if !vp.IsSet(key) {
		return fmt.Errorf("loadKey: %v has no key %q", path, key)
	}
	if err := vp.UnmarshalKey(key, dst); err != nil {
		return fmt.Errorf("loadKey: could not decode %v of %v: %w", key,
			path, err)
	}
	return nil
}

func read(path string) (*viper.Viper, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}
	return vp, nil
}

// Save writes src as YAML to path, creating its directory if needed
func Save(path string, src interface{}) error {
	data, err := yaml.Marshal(src)
	if err != nil {
		return fmt.Errorf("save: could not encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

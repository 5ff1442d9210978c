package world

import "fmt"

// Config configures the physics of a world Context and the retry
// policy used when spawning actors
type Config struct {
	// Physics step in seconds
	TimeStep           float64 `mapstructure:"time_step" yaml:"time_step"`
	VelocityIterations int     `mapstructure:"velocity_iterations" yaml:"velocity_iterations"`
	PositionIterations int     `mapstructure:"position_iterations" yaml:"position_iterations"`

	// Spawning retries a blocked pose with uniform jitter of at most
	// SpawnJitter metres per axis, up to MaxSpawnAttempts tries
	MaxSpawnAttempts int     `mapstructure:"max_spawn_attempts" yaml:"max_spawn_attempts"`
	SpawnJitter      float64 `mapstructure:"spawn_jitter" yaml:"spawn_jitter"`

	// Clearance kept between spawned actors
	SpawnMargin float64 `mapstructure:"spawn_margin" yaml:"spawn_margin"`

	Seed uint64 `mapstructure:"seed" yaml:"seed"`
}

// DefaultConfig returns a Config stepping at 10Hz
func DefaultConfig() Config {
	return Config{
		TimeStep:           0.1,
		VelocityIterations: 8,
		PositionIterations: 3,
		MaxSpawnAttempts:   10,
		SpawnJitter:        1.0,
		SpawnMargin:        0.5,
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.TimeStep <= 0 {
		return fmt.Errorf("validate: time step must be positive, got %v",
			c.TimeStep)
	}
	if c.VelocityIterations <= 0 || c.PositionIterations <= 0 {
		return fmt.Errorf("validate: solver iterations must be positive, "+
			"got %v and %v", c.VelocityIterations, c.PositionIterations)
	}
	if c.MaxSpawnAttempts <= 0 {
		return fmt.Errorf("validate: max spawn attempts must be positive, "+
			"got %v", c.MaxSpawnAttempts)
	}
	if c.SpawnJitter < 0 || c.SpawnMargin < 0 {
		return fmt.Errorf("validate: spawn jitter and margin must be " +
			"non-negative")
	}
	return nil
}

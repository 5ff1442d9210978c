package town

import (
	"fmt"
)

// Number of scalar features appended to each raster observation:
// speed, lateral offset, heading error and distance to the nearest
// actor
const ScalarDim = 4

// Config configures a Town
type Config struct {
	NumScenario int `mapstructure:"num_scenario" yaml:"num_scenario"`

	// Side of the square bird-eye raster in pixels and the distance
	// in metres it covers
	DisplaySize int     `mapstructure:"display_size" yaml:"display_size"`
	ViewRange   float64 `mapstructure:"view_range" yaml:"view_range"`

	LaneWidth   float64 `mapstructure:"lane_width" yaml:"lane_width"`
	LaneLength  float64 `mapstructure:"lane_length" yaml:"lane_length"`
	LaneSpacing float64 `mapstructure:"lane_spacing" yaml:"lane_spacing"`

	VehicleLength float64 `mapstructure:"vehicle_length" yaml:"vehicle_length"`
	VehicleWidth  float64 `mapstructure:"vehicle_width" yaml:"vehicle_width"`

	// Longitudinal position of the ego vehicle at spawn
	EgoStart float64 `mapstructure:"ego_start" yaml:"ego_start"`

	MaxSpeed   float64 `mapstructure:"max_speed" yaml:"max_speed"`
	MaxAccel   float64 `mapstructure:"max_accel" yaml:"max_accel"`
	MaxYawRate float64 `mapstructure:"max_yaw_rate" yaml:"max_yaw_rate"`

	MaxEpisodeStep int `mapstructure:"max_episode_step" yaml:"max_episode_step"`

	// Weight of the lateral deviation penalty in the reward
	DeviationPenalty float64 `mapstructure:"deviation_penalty" yaml:"deviation_penalty"`

	SaveFrames bool   `mapstructure:"save_frames" yaml:"save_frames"`
	FrameDir   string `mapstructure:"frame_dir" yaml:"frame_dir"`
}

// DefaultConfig returns the default town with numScenario lanes
func DefaultConfig(numScenario int) Config {
	return Config{
		NumScenario:      numScenario,
		DisplaySize:      32,
		ViewRange:        40,
		LaneWidth:        3.5,
		LaneLength:       300,
		LaneSpacing:      20,
		VehicleLength:    4.5,
		VehicleWidth:     2.0,
		EgoStart:         10,
		MaxSpeed:         12,
		MaxAccel:         3,
		MaxYawRate:       0.5,
		MaxEpisodeStep:   300,
		DeviationPenalty: 0.1,
	}
}

// ObservationDim returns the number of features of one observation
func (c Config) ObservationDim() int {
	return c.DisplaySize*c.DisplaySize + ScalarDim
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.NumScenario <= 0 {
		return fmt.Errorf("validate: number of scenarios must be positive, "+
			"got %v", c.NumScenario)
	}
	if c.DisplaySize <= 0 || c.ViewRange <= 0 {
		return fmt.Errorf("validate: display size and view range must be "+
			"positive, got %v and %v", c.DisplaySize, c.ViewRange)
	}
	if c.LaneWidth <= c.VehicleWidth {
		return fmt.Errorf("validate: lane width %v must exceed vehicle "+
			"width %v", c.LaneWidth, c.VehicleWidth)
	}
	if c.LaneSpacing < c.LaneWidth+c.VehicleLength {
		return fmt.Errorf("validate: lanes %v apart would overlap",
			c.LaneSpacing)
	}
	if c.VehicleLength <= 0 || c.VehicleWidth <= 0 {
		return fmt.Errorf("validate: vehicle size must be positive")
	}
	if c.EgoStart < 0 || c.EgoStart >= c.LaneLength {
		return fmt.Errorf("validate: ego start %v must lie on the lane "+
			"[0, %v)", c.EgoStart, c.LaneLength)
	}
	if c.MaxSpeed <= 0 || c.MaxAccel <= 0 || c.MaxYawRate <= 0 {
		return fmt.Errorf("validate: vehicle limits must be positive")
	}
	if c.SaveFrames && c.FrameDir == "" {
		return fmt.Errorf("validate: frame directory required to save frames")
	}
	return nil
}

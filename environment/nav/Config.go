package nav

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/gonav/observation"
)

// Default configuration values
const (
	DefaultDistTol               float64 = 0.2
	DefaultSuccessReward         float64 = 10.0
	DefaultSlackReward           float64 = -0.01
	DefaultPotentialRewardWeight float64 = 10.0
	DefaultEnergyClip            float64 = 0.005
	DefaultDeathZThreshold       float64 = 0.1
	DefaultActionTimestep        float64 = 1.0 / 10.0
	DefaultMinSeparation         float64 = 1.0
	DefaultMaxPlacementAttempts  int     = 100
	DefaultDoorAngle             float64 = 90.0
	DefaultHandleDistance        float64 = 0.2
)

// NormBounds holds the per-channel normalization bounds of one
// observation channel. Min and Max either have one element, which
// applies to every component of the channel, or one element per
// component.
type NormBounds struct {
	Min []float64 `yaml:"min"`
	Max []float64 `yaml:"max"`
}

// Config is the immutable per-episode configuration of a navigation
// environment. It is read once at load or reload and never mutated
// during a step.
type Config struct {
	Task Kind `yaml:"task"`

	// Fixed agent and goal placement, used unless RandomizePose is set
	InitialPos []float64 `yaml:"initial_pos"`
	InitialOrn []float64 `yaml:"initial_orn"`
	TargetPos  []float64 `yaml:"target_pos"`
	TargetOrn  []float64 `yaml:"target_orn"`

	// Randomized placement
	RandomizePose        bool    `yaml:"randomize_pose"`
	RandomHeight         bool    `yaml:"random_height"`
	MinSeparation        float64 `yaml:"min_separation"`
	MaxPlacementAttempts int     `yaml:"max_placement_attempts"`

	// Observation layout
	Output                []string              `yaml:"output"`
	AdditionalStatesDim   int                   `yaml:"additional_states_dim"`
	AuxiliarySensorDim    int                   `yaml:"auxiliary_sensor_dim"`
	Resolution            int                   `yaml:"resolution"`
	NormalizeObservation  bool                  `yaml:"normalize_observation"`
	ObservationNormalizer map[string]NormBounds `yaml:"observation_normalizer"`

	// Termination
	DistTol         float64 `yaml:"dist_tol"`
	MaxStep         int     `yaml:"max_step"`
	DeathZThreshold float64 `yaml:"death_z_threshold"`

	// Reward magnitudes and weights
	SuccessReward           float64 `yaml:"success_reward"`
	SlackReward             float64 `yaml:"slack_reward"`
	PotentialRewardWeight   float64 `yaml:"potential_reward_weight"`
	ElectricityRewardWeight float64 `yaml:"electricity_reward_weight"`
	StallTorqueRewardWeight float64 `yaml:"stall_torque_reward_weight"`
	CollisionRewardWeight   float64 `yaml:"collision_reward_weight"`
	CollisionLinks          []int   `yaml:"collision_links"`
	EnergyClip              float64 `yaml:"energy_clip"`

	DiscountFactor float64 `yaml:"discount_factor"`

	// Control
	ActionTimestep float64 `yaml:"action_timestep"`
	AutomaticReset bool    `yaml:"automatic_reset"`
	SettleTime     float64 `yaml:"settle_time"`

	// Interactive task thresholds
	DoorAngle      float64 `yaml:"door_angle"`
	HandleDistance float64 `yaml:"handle_distance"`
}

// DefaultConfig returns a point-goal configuration with the default
// physical and reward parameters
func DefaultConfig() *Config {
	return &Config{
		Task:                  PointGoal,
		InitialPos:            []float64{0, 0, 0},
		InitialOrn:            []float64{0, 0, 0},
		TargetPos:             []float64{5, 5, 0},
		TargetOrn:             []float64{0, 0, 0},
		MinSeparation:         DefaultMinSeparation,
		MaxPlacementAttempts:  DefaultMaxPlacementAttempts,
		Output:                []string{"sensor"},
		AdditionalStatesDim:   3,
		DistTol:               DefaultDistTol,
		MaxStep:               500,
		DeathZThreshold:       DefaultDeathZThreshold,
		SuccessReward:         DefaultSuccessReward,
		SlackReward:           DefaultSlackReward,
		PotentialRewardWeight: DefaultPotentialRewardWeight,
		CollisionLinks:        []int{-1},
		EnergyClip:            DefaultEnergyClip,
		DiscountFactor:        1.0,
		ActionTimestep:        DefaultActionTimestep,
		DoorAngle:             DefaultDoorAngle,
		HandleDistance:        DefaultHandleDistance,
	}
}

// LoadConfig reads a Config from a YAML file, filling unset fields
// with defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadConfig: could not read %v: %v", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("loadConfig: could not parse %v: %v", path,
			err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("loadConfig: %v", err)
	}
	return config, nil
}

// Channels converts the configured output set into observation
// channels, rejecting unknown channel names
func (c *Config) Channels() ([]observation.Channel, error) {
	known := map[observation.Channel]bool{
		observation.Sensor:          true,
		observation.AuxiliarySensor: true,
		observation.PointGoal:       true,
		observation.RGB:             true,
		observation.Depth:           true,
		observation.Normal:          true,
		observation.Seg:             true,
		observation.RGBFilled:       true,
		observation.Bump:            true,
		observation.Scan:            true,
	}

	channels := make([]observation.Channel, len(c.Output))
	for i, name := range c.Output {
		ch := observation.Channel(name)
		if !known[ch] {
			return nil, fmt.Errorf("channels: unknown output channel %q",
				name)
		}
		channels[i] = ch
	}
	return channels, nil
}

// HasChannel returns whether the configured output set contains ch
func (c *Config) HasChannel(ch observation.Channel) bool {
	for _, name := range c.Output {
		if observation.Channel(name) == ch {
			return true
		}
	}
	return false
}

// needsImagery returns whether any configured channel requires the
// rendering collaborator
func (c *Config) needsImagery() bool {
	return c.HasChannel(observation.RGB) ||
		c.HasChannel(observation.Depth) ||
		c.HasChannel(observation.Normal) ||
		c.HasChannel(observation.Seg) ||
		c.HasChannel(observation.RGBFilled)
}

// DoorAngleRadians returns the configured door opening threshold as a
// (negative) hinge angle in radians
func (c *Config) DoorAngleRadians() float64 {
	return -(c.DoorAngle / 180.0) * math.Pi
}

// Validate checks the configuration for missing or inconsistent
// values. Configuration errors are fatal and surface at load, never at
// step.
func (c *Config) Validate() error {
	switch c.Task {
	case PointGoal, Reaching, Interactive:
	default:
		return fmt.Errorf("validate: unknown task kind %q", c.Task)
	}

	if len(c.Output) == 0 {
		return fmt.Errorf("validate: no output channels configured")
	}
	if _, err := c.Channels(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}

	if c.HasChannel(observation.AuxiliarySensor) && c.Task != Interactive {
		return fmt.Errorf("validate: task %v provides no auxiliary sensor",
			c.Task)
	}

	if c.AdditionalStatesDim <= 0 && c.HasChannel(observation.Sensor) {
		return fmt.Errorf("validate: additional_states_dim missing")
	}

	if c.needsImagery() && c.Resolution <= 0 {
		return fmt.Errorf("validate: imagery channels configured without " +
			"a resolution")
	}

	if c.DistTol <= 0 {
		return fmt.Errorf("validate: dist_tol must be positive, got %v",
			c.DistTol)
	}
	if c.MaxStep <= 0 {
		return fmt.Errorf("validate: max_step must be positive, got %v",
			c.MaxStep)
	}
	if c.ActionTimestep <= 0 {
		return fmt.Errorf("validate: action_timestep must be positive, "+
			"got %v", c.ActionTimestep)
	}
	if c.DiscountFactor < 0 || c.DiscountFactor > 1 {
		return fmt.Errorf("validate: discount_factor must be in [0, 1], "+
			"got %v", c.DiscountFactor)
	}
	if c.MaxPlacementAttempts <= 0 {
		return fmt.Errorf("validate: max_placement_attempts must be "+
			"positive, got %v", c.MaxPlacementAttempts)
	}

	if c.NormalizeObservation {
		if err := c.validateNormalizer(); err != nil {
			return fmt.Errorf("validate: %v", err)
		}
	}
	return nil
}

func (c *Config) validateNormalizer() error {
	for _, name := range c.Output {
		ch := observation.Channel(name)
		if ch == observation.Bump || ch == observation.Scan {
			continue
		}

		bounds, ok := c.ObservationNormalizer[name]
		if !ok {
			return fmt.Errorf("normalization enabled but channel %q has "+
				"no bounds", name)
		}
		if len(bounds.Min) == 0 || len(bounds.Max) == 0 {
			return fmt.Errorf("channel %q has empty normalization bounds",
				name)
		}
		if len(bounds.Min) != len(bounds.Max) {
			return fmt.Errorf("channel %q normalization bounds have "+
				"mismatched lengths %v and %v", name, len(bounds.Min),
				len(bounds.Max))
		}
		for i := range bounds.Min {
			if bounds.Max[i] <= bounds.Min[i] {
				return fmt.Errorf("channel %q normalization bound %v is "+
					"empty: [%v, %v]", name, i, bounds.Min[i], bounds.Max[i])
			}
		}
	}
	return nil
}

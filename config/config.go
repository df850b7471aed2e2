// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Sim        SimConfig        `yaml:"sim"`
	World      WorldConfig      `yaml:"world"`
	Hull       HullConfig       `yaml:"hull"`
	Sensing    SensingConfig    `yaml:"sensing"`
	Detection  DetectionConfig  `yaml:"detection"`
	Navigation NavigationConfig `yaml:"navigation"`
	Recovery   RecoveryConfig   `yaml:"recovery"`
	Combat     CombatConfig     `yaml:"combat"`
	Policy     PolicyConfig     `yaml:"policy"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds tick loop and episode parameters.
type SimConfig struct {
	DT             float64 `yaml:"dt"`              // seconds per tick
	EpisodeSeconds float64 `yaml:"episode_seconds"` // episode length in sim time
	TeamSize       int     `yaml:"team_size"`       // vehicles per team
}

// WorldConfig holds battlefield dimensions and obstacle generation parameters.
type WorldConfig struct {
	Width             float64 `yaml:"width"`  // world units
	Height            float64 `yaml:"height"` // world units
	CellSize          float64 `yaml:"cell_size"`
	ObstacleThreshold float64 `yaml:"obstacle_threshold"` // noise value above which a cell is rock
	NoiseScale        float64 `yaml:"noise_scale"`
}

// HullConfig holds vehicle body and drivetrain parameters.
type HullConfig struct {
	HalfLength      float64 `yaml:"half_length"` // world units
	HalfWidth       float64 `yaml:"half_width"`
	EyeHeight       float64 `yaml:"eye_height"` // fallback eye offset above hull center
	MaxSpeed        float64 `yaml:"max_speed"`  // forward, units/s
	MaxReverseSpeed float64 `yaml:"max_reverse_speed"`
	Acceleration    float64 `yaml:"acceleration"` // units/s^2 at full throttle
	BrakeDecel      float64 `yaml:"brake_decel"`
	TurnRate        float64 `yaml:"turn_rate"` // deg/s at full steering
}

// SensingConfig holds obstacle probe parameters.
type SensingConfig struct {
	NumProbes          int     `yaml:"num_probes"` // radial samples around the hull
	MajorAxis          float64 `yaml:"major_axis"` // probe ellipse along hull forward
	MinorAxis          float64 `yaml:"minor_axis"` // probe ellipse lateral
	LateralProbeLength float64 `yaml:"lateral_probe_length"`
	SurfaceOffset      bool    `yaml:"surface_offset"` // start traces at the hull surface
}

// SocketConfig defines one visibility sample point on a vehicle.
type SocketConfig struct {
	Name   string    `yaml:"name"`
	Offset []float64 `yaml:"offset"` // local [x, y, z] from hull center
	Weight float64   `yaml:"weight"`
}

// DetectionConfig holds enemy detection and awareness parameters.
// Immutable per agent after setup; the detection engine only reads it.
type DetectionConfig struct {
	MaxRange            float64        `yaml:"max_range"`
	InstantRange        float64        `yaml:"instant_range"` // inside this, visibility is 1 without raycasts
	FOV                 float64        `yaml:"fov"`           // full horizontal arc, degrees
	PeripheralExtension float64        `yaml:"peripheral_extension"` // degrees beyond half-FOV
	PeripheralFloor     float64        `yaml:"peripheral_floor"`     // effectiveness at the peripheral edge
	GainRate            float64        `yaml:"gain_rate"`            // awareness per second at full visibility
	DecayRate           float64        `yaml:"decay_rate"`           // awareness per second while unseen
	MemoryDuration      float64        `yaml:"memory_duration"`      // seconds before a forgotten contact is purged
	FiringConeHalfAngle float64        `yaml:"firing_cone_half_angle"` // degrees
	MaxTracked          int            `yaml:"max_tracked"`
	MaxRaycastsPerFrame int            `yaml:"max_raycasts_per_frame"`
	RefreshInterval     float64        `yaml:"refresh_interval"` // seconds between candidate cache rebuilds
	Sockets             []SocketConfig `yaml:"sockets"`
}

// NavigationConfig holds waypoint navigation parameters.
type NavigationConfig struct {
	WaypointReachRadius float64 `yaml:"waypoint_reach_radius"` // 2D distance
	RandomTargetMin     float64 `yaml:"random_target_min"`
	RandomTargetMax     float64 `yaml:"random_target_max"`
	PartialPathAppend   float64 `yaml:"partial_path_append"` // append true target if final waypoint is farther than this
	NavCellSize         float64 `yaml:"nav_cell_size"`
	NavInflation        float64 `yaml:"nav_inflation"` // blocked-cell inflation radius
}

// RecoveryConfig holds stuck detection and recovery parameters.
type RecoveryConfig struct {
	StuckSpeedThreshold   float64 `yaml:"stuck_speed_threshold"`   // forward speed below this counts as stalled
	StuckTimeThreshold    float64 `yaml:"stuck_time_threshold"`    // seconds stalled before recovery
	MinThrottle           float64 `yaml:"min_throttle"`            // stalling only counts while commanding at least this
	TurnSteeringThreshold float64 `yaml:"turn_steering_threshold"` // |steering| above this exempts stuck detection
	ReverseThrottle       float64 `yaml:"reverse_throttle"`
	MaxReverseDistance    float64 `yaml:"max_reverse_distance"`
	RecoveryTimeout       float64 `yaml:"recovery_timeout"` // seconds
	MaxAttempts           int     `yaml:"max_attempts"`
	MinRearClearance      float64 `yaml:"min_rear_clearance"` // skip recovery if the rear probe reads below this
}

// CombatConfig holds engagement and turret parameters.
type CombatConfig struct {
	MinAwareness          float64 `yaml:"min_awareness"`    // awareness gate for engaging
	EngagementAngle       float64 `yaml:"engagement_angle"` // degrees, |angle to target| gate
	DisengageDelay        float64 `yaml:"disengage_delay"`  // seconds without a qualifying target before patrol
	TurretTurnSpeed       float64 `yaml:"turret_turn_speed"` // deg/s
	CombatSteerMultiplier float64 `yaml:"combat_steer_multiplier"` // turret speed boost while steering in combat
}

// PolicyConfig holds policy boundary parameters.
type PolicyConfig struct {
	WeightsPath string `yaml:"weights_path"` // FFNN weights file (empty = random init)
	RecordDemos bool   `yaml:"record_demos"` // write observation/action rows for cloning
}

// TelemetryConfig holds stats output parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats row
}

// DerivedConfig holds values computed after loading.
type DerivedConfig struct {
	TicksPerEpisode int
	HalfFOV         float64 // degrees
	SocketCount     int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.computeDerived()
	return cfg, nil
}

// Validate checks parameter ranges the core relies on.
func (c *Config) Validate() error {
	if c.Sim.DT <= 0 {
		return fmt.Errorf("sim.dt must be positive, got %v", c.Sim.DT)
	}
	if c.Sensing.NumProbes < 4 {
		return fmt.Errorf("sensing.num_probes must be at least 4, got %d", c.Sensing.NumProbes)
	}
	if c.Sensing.MajorAxis <= 0 || c.Sensing.MinorAxis <= 0 {
		return fmt.Errorf("sensing axes must be positive, got %v x %v", c.Sensing.MajorAxis, c.Sensing.MinorAxis)
	}
	if c.Detection.MaxRange <= 0 {
		return fmt.Errorf("detection.max_range must be positive, got %v", c.Detection.MaxRange)
	}
	if c.Detection.InstantRange > c.Detection.MaxRange {
		return fmt.Errorf("detection.instant_range %v exceeds max_range %v", c.Detection.InstantRange, c.Detection.MaxRange)
	}
	if c.Detection.MaxTracked < 1 {
		return fmt.Errorf("detection.max_tracked must be at least 1, got %d", c.Detection.MaxTracked)
	}
	if len(c.Detection.Sockets) > 8 {
		return fmt.Errorf("at most 8 detection sockets supported, got %d", len(c.Detection.Sockets))
	}
	for i, s := range c.Detection.Sockets {
		if len(s.Offset) != 3 {
			return fmt.Errorf("socket %q (index %d) offset must have 3 elements", s.Name, i)
		}
		if s.Weight <= 0 {
			return fmt.Errorf("socket %q weight must be positive, got %v", s.Name, s.Weight)
		}
	}
	if c.Detection.MemoryDuration <= 0 {
		return fmt.Errorf("detection.memory_duration must be positive, got %v", c.Detection.MemoryDuration)
	}
	if c.Navigation.WaypointReachRadius <= 0 {
		return fmt.Errorf("navigation.waypoint_reach_radius must be positive, got %v", c.Navigation.WaypointReachRadius)
	}
	if c.Recovery.MaxAttempts < 1 {
		return fmt.Errorf("recovery.max_attempts must be at least 1, got %d", c.Recovery.MaxAttempts)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TicksPerEpisode = int(c.Sim.EpisodeSeconds / c.Sim.DT)
	c.Derived.HalfFOV = c.Detection.FOV / 2
	c.Derived.SocketCount = len(c.Detection.Sockets)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Package config provides configuration loading and access for the colony simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Ant       AntConfig       `yaml:"ant"`
	Forage    ForageConfig    `yaml:"forage"`
	Nest      NestConfig      `yaml:"nest"`
	Pheromone PheromoneConfig `yaml:"pheromone"`
	Food      FoodConfig      `yaml:"food"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the viewer.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds world bounds. Positions live in
// [origin_x, origin_x+width] x [origin_y, origin_y+height].
type WorldConfig struct {
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	OriginX float64 `yaml:"origin_x"`
	OriginY float64 `yaml:"origin_y"`
}

// PhysicsConfig holds clock parameters.
type PhysicsConfig struct {
	DT              float64 `yaml:"dt"`               // Seconds per tick
	SpeedMultiplier float64 `yaml:"speed_multiplier"` // Scales dt; cooldowns run on simulated time
}

// AntConfig holds agent creation and aging parameters.
type AntConfig struct {
	Speed            float64 `yaml:"speed"`              // World units per second
	MaxAge           float64 `yaml:"max_age"`            // antMaxAge
	AgeIncrement     float64 `yaml:"age_increment"`      // ageIncrementRate, age units per second
	InitialCount     int     `yaml:"initial_count"`      // Non-player agents at world init
	InitialAgeJitter float64 `yaml:"initial_age_jitter"` // Initial ants start at rand*jitter*max_age
	SpawnRadius      float64 `yaml:"spawn_radius"`       // Initial ants scatter within this radius of the nest
	Player           bool    `yaml:"player"`             // Create one player-controlled agent next to the nest
}

// ForageConfig holds the foraging state machine parameters.
type ForageConfig struct {
	DetectionRange                   float64 `yaml:"detection_range"`
	PickupRange                      float64 `yaml:"pickup_range"`
	PickupTimeout                    float64 `yaml:"pickup_timeout"` // Seconds
	NestRadius                       float64 `yaml:"nest_radius"`
	ExplorationRadius                float64 `yaml:"exploration_radius"`
	ExplorationMinDistance           float64 `yaml:"exploration_min_distance"`
	ExplorationTargetTimeout         float64 `yaml:"exploration_target_timeout"` // Seconds
	ExplorationTargetReachedDistance float64 `yaml:"exploration_target_reached_distance"`
	TrailFollowing                   bool    `yaml:"trail_following"` // false = random walk only
	TrailStep                        float64 `yaml:"trail_step"`      // Distance to the trail waypoint
}

// NestConfig holds nest placement and reproduction parameters.
type NestConfig struct {
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	SpawnCost   float64 `yaml:"spawn_cost"`   // antSpawnCost
	ResetPolicy string  `yaml:"reset_policy"` // "reset" or "decrement"
}

// PheromoneConfig holds pheromone field parameters.
type PheromoneConfig struct {
	Resolution           float64 `yaml:"resolution"`       // Grid cells per world unit
	DecayRate            float64 `yaml:"decay_rate"`       // Per second
	DecayModel           string  `yaml:"decay_model"`      // "linear" or "exponential"
	DiffusionRate        float64 `yaml:"diffusion_rate"`   // Per second
	DiffusionKernel      string  `yaml:"diffusion_kernel"` // "split" or "broadcast"
	DepositPolicy        string  `yaml:"deposit_policy"`   // "flat" or "freshness"
	DepositRate          float64 `yaml:"deposit_rate"`     // Flat policy, strength per second
	TrailInitialStrength float64 `yaml:"trail_initial_strength"`
	TrailSlope           float64 `yaml:"trail_slope"`
	Async                bool    `yaml:"async"`       // Offload decay/diffusion to a worker goroutine
	AsyncMerge           string  `yaml:"async_merge"` // "replace" or "reapply"
}

// FoodConfig holds food placement and the external spawn timer.
type FoodConfig struct {
	InitialCount  int           `yaml:"initial_count"`
	Amount        float64       `yaml:"amount"`         // Units per food item
	SpawnInterval float64       `yaml:"spawn_interval"` // Seconds between spawns (0 disables)
	Clusters      []PointConfig `yaml:"clusters"`
	ClusterSpread float64       `yaml:"cluster_spread"` // Gaussian sigma around a cluster point
}

// PointConfig is a world-space point.
type PointConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // Seconds per stats window
	PerfWindow  int     `yaml:"perf_window"`  // Ticks averaged by the perf collector
}

// Accepted values for the enum-valued keys.
const (
	ResetToZero       = "reset"
	DecrementByCost   = "decrement"
	DecayLinear       = "linear"
	DecayExponential  = "exponential"
	DepositFlat       = "flat"
	DepositFreshness  = "freshness"
	AsyncMergeReplace = "replace"
	AsyncMergeReapply = "reapply"
	KernelSplit       = "split"
	KernelBroadcast   = "broadcast"
)

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	DT32      float32
	WorldMinX float32
	WorldMinY float32
	WorldMaxX float32
	WorldMaxY float32
	WorldW32  float32
	WorldH32  float32
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
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.Merge(data); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Defaults returns a fresh copy of the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge unmarshals YAML over the current values. Only keys present in data
// are overwritten; derived values are recomputed.
func (c *Config) Merge(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return c.finish()
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Food.Clusters = append([]PointConfig(nil), c.Food.Clusters...)
	return &cp
}

// Recompute refreshes derived values after fields were changed in place and
// validates the result.
func (c *Config) Recompute() error {
	return c.finish()
}

func (c *Config) finish() error {
	c.computeDerived()
	return c.Validate()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Physics.SpeedMultiplier <= 0 {
		c.Physics.SpeedMultiplier = 1
	}
	c.Nest.ResetPolicy = strings.ToLower(c.Nest.ResetPolicy)
	c.Pheromone.DecayModel = strings.ToLower(c.Pheromone.DecayModel)
	c.Pheromone.DepositPolicy = strings.ToLower(c.Pheromone.DepositPolicy)
	c.Pheromone.DiffusionKernel = strings.ToLower(c.Pheromone.DiffusionKernel)
	if c.Pheromone.DiffusionKernel == "" {
		c.Pheromone.DiffusionKernel = KernelSplit
	}
	c.Pheromone.AsyncMerge = strings.ToLower(c.Pheromone.AsyncMerge)
	if c.Pheromone.AsyncMerge == "" {
		c.Pheromone.AsyncMerge = AsyncMergeReplace
	}

	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.WorldMinX = float32(c.World.OriginX)
	c.Derived.WorldMinY = float32(c.World.OriginY)
	c.Derived.WorldMaxX = float32(c.World.OriginX + c.World.Width)
	c.Derived.WorldMaxY = float32(c.World.OriginY + c.World.Height)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
}

// Validate reports configuration values the simulation cannot run with.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world: size must be positive, got %vx%v", c.World.Width, c.World.Height)
	}
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics: dt must be positive, got %v", c.Physics.DT)
	}
	if c.Pheromone.Resolution <= 0 {
		return fmt.Errorf("pheromone: resolution must be positive, got %v", c.Pheromone.Resolution)
	}
	if c.Nest.SpawnCost <= 0 {
		return fmt.Errorf("nest: spawn_cost must be positive, got %v", c.Nest.SpawnCost)
	}
	switch c.Nest.ResetPolicy {
	case ResetToZero, DecrementByCost:
	default:
		return fmt.Errorf("nest: unknown reset_policy %q", c.Nest.ResetPolicy)
	}
	switch c.Pheromone.DecayModel {
	case DecayLinear, DecayExponential:
	default:
		return fmt.Errorf("pheromone: unknown decay_model %q", c.Pheromone.DecayModel)
	}
	switch c.Pheromone.DepositPolicy {
	case DepositFlat, DepositFreshness:
	default:
		return fmt.Errorf("pheromone: unknown deposit_policy %q", c.Pheromone.DepositPolicy)
	}
	switch c.Pheromone.DiffusionKernel {
	case KernelSplit, KernelBroadcast:
	default:
		return fmt.Errorf("pheromone: unknown diffusion_kernel %q", c.Pheromone.DiffusionKernel)
	}
	switch c.Pheromone.AsyncMerge {
	case AsyncMergeReplace, AsyncMergeReapply:
	default:
		return fmt.Errorf("pheromone: unknown async_merge %q", c.Pheromone.AsyncMerge)
	}
	if c.Forage.ExplorationMinDistance > c.Forage.ExplorationRadius {
		return fmt.Errorf("forage: exploration_min_distance %v exceeds exploration_radius %v",
			c.Forage.ExplorationMinDistance, c.Forage.ExplorationRadius)
	}
	return nil
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

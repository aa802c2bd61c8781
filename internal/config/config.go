package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Simulation SimulationConfig `toml:"simulation"`
	Scene      SceneConfig      `toml:"scene"`
	Logging    LoggingConfig    `toml:"logging"`
}

// StoreConfig sizes one object store.
type StoreConfig struct {
	Capacity int `toml:"capacity"` // slots reserved up front
	Growth   int `toml:"growth"`   // slots added each time the store is full
}

type StorageConfig struct {
	Bodies    StoreConfig `toml:"bodies"`
	Shapes    StoreConfig `toml:"shapes"`
	Colliders StoreConfig `toml:"colliders"`
	Joints    StoreConfig `toml:"joints"`
}

type SimulationConfig struct {
	Step           time.Duration `toml:"step"`
	MaxSubSteps    int           `toml:"max_sub_steps"` // caps the time bank to avoid a spiral of death
	Gravity        [3]float64    `toml:"gravity"`
	SleepThreshold float64       `toml:"sleep_threshold"`
	SleepTime      time.Duration `toml:"sleep_time"`
	CellSize       float64       `toml:"cell_size"` // broadphase cell edge of the reference engine
	TickRate       time.Duration `toml:"tick_rate"` // host frame rate of cmd/physim
}

type SceneConfig struct {
	Path   string `toml:"path"`   // YAML scene, empty for none
	Script string `toml:"script"` // Lua script, empty for none
	Ticks  int    `toml:"ticks"`  // 0 runs until interrupted
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for name, s := range map[string]StoreConfig{
		"bodies":    c.Storage.Bodies,
		"shapes":    c.Storage.Shapes,
		"colliders": c.Storage.Colliders,
		"joints":    c.Storage.Joints,
	} {
		if s.Capacity < 0 || s.Growth < 1 {
			return fmt.Errorf("storage.%s: capacity must be >= 0 and growth >= 1", name)
		}
	}
	if c.Simulation.Step <= 0 {
		return fmt.Errorf("simulation.step must be positive")
	}
	if c.Simulation.CellSize <= 0 {
		return fmt.Errorf("simulation.cell_size must be positive")
	}
	if c.Simulation.MaxSubSteps < 1 {
		return fmt.Errorf("simulation.max_sub_steps must be >= 1")
	}
	return nil
}

// Defaults returns the configuration used when a key is absent.
func Defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Bodies:    StoreConfig{Capacity: 64, Growth: 64},
			Shapes:    StoreConfig{Capacity: 32, Growth: 32},
			Colliders: StoreConfig{Capacity: 64, Growth: 64},
			Joints:    StoreConfig{Capacity: 16, Growth: 16},
		},
		Simulation: SimulationConfig{
			Step:           time.Second / 60,
			MaxSubSteps:    8,
			Gravity:        [3]float64{0, -9.81, 0},
			SleepThreshold: 0.05,
			SleepTime:      time.Second,
			CellSize:       4,
			TickRate:       16 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

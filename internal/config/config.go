package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/casperlundberg/offload-autoscale-env/pkg/env"
)

// Config is the on-disk configuration shared by the simulation CLI and the
// analytics server.
type Config struct {
	Parameters env.Parameters   `yaml:"parameters"`
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig controls a simulation run.
type SimulationConfig struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Policy      string  `yaml:"policy"`
	Budget      float64 `yaml:"budget"`
	Action      float64 `yaml:"action"`
	Slots       int     `yaml:"slots"`
	Seed        uint64  `yaml:"seed"`
	// BatchSize is how many slot records are buffered before a database flush
	BatchSize int `yaml:"batch_size"`
}

type ServerConfig struct {
	Port         string   `yaml:"port"`
	AllowOrigins []string `yaml:"allow_origins"`
	// MaxSlots caps the slots a single API request may simulate
	MaxSlots int `yaml:"max_slots"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Parameters: env.DefaultParameters(),
		Simulation: SimulationConfig{
			Name:        "baseline simulation",
			Description: "offload/autoscale baseline run",
			Policy:      "myopic",
			Budget:      600,
			Action:      0.5,
			Slots:       100,
			Seed:        1234,
			BatchSize:   100,
		},
		Server: ServerConfig{
			Port:         "8080",
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
			MaxSlots:     100000,
		},
		Database: DatabaseConfig{Path: "analytics.db"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the model parameters and run settings.
func (c *Config) Validate() error {
	if err := c.Parameters.Validate(); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	if c.Simulation.Slots < 1 {
		return fmt.Errorf("simulation.slots must be positive, got %d", c.Simulation.Slots)
	}
	if c.Simulation.BatchSize < 1 {
		return fmt.Errorf("simulation.batch_size must be positive, got %d", c.Simulation.BatchSize)
	}
	return nil
}

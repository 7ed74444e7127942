// Package config provides configuration loading and management for fmrimask.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Extraction parameters
	Extraction struct {
		// SmoothingFWHM is the spatial smoothing kernel width in mm
		// applied to each frame before aggregation; 0 disables smoothing
		SmoothingFWHM float64 `yaml:"smoothingFWHM"`

		// ResamplingTarget selects the fit-time resampling policy:
		// "none", "mask" or "maps"
		ResamplingTarget string `yaml:"resamplingTarget"`

		// Detrend removes a per-region linear trend from extracted signals
		Detrend bool `yaml:"detrend"`

		// Standardize z-scores each region signal over time
		Standardize bool `yaml:"standardize"`

		// NumWorkers bounds how many subjects are processed concurrently
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"extraction"`

	// Output parameters
	Output struct {
		// Directory receives the per-subject signal CSV files
		Directory string `yaml:"directory"`

		// SaveInverse additionally writes each subject's
		// inverse-transformed volume
		SaveInverse bool `yaml:"saveInverse"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Extraction.SmoothingFWHM = 0
	cfg.Extraction.ResamplingTarget = "none"
	cfg.Extraction.Detrend = false
	cfg.Extraction.Standardize = false
	cfg.Extraction.NumWorkers = runtime.NumCPU()

	cfg.Output.Directory = "signals"
	cfg.Output.SaveInverse = false
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

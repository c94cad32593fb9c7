// Package config provides configuration loading and management for iscfluence.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Optimization parameters
	Optimization struct {
		// ThresholdPercent is the dose level, in percent of the prescription,
		// above which the fluence is reduced
		ThresholdPercent float64 `yaml:"thresholdPercent"`

		// NumberOfSteps splits the reduction from the maximum dose down to the threshold
		NumberOfSteps int `yaml:"numberOfSteps"`

		// Step selects the entry of the threshold schedule used for this run
		Step int `yaml:"step"`

		// SourceAxisDistance is the SAD of the treatment machine in mm
		SourceAxisDistance float64 `yaml:"sourceAxisDistance"`
	} `yaml:"optimization"`

	// Fluence shaping parameters
	Shaping struct {
		// Enabled turns shaping of the reduced fluence on
		Enabled bool `yaml:"enabled"`

		// Margin expands the aperture outward in mm
		Margin float64 `yaml:"margin"`

		// FlushValue is given to in-field pixels without fluence
		FlushValue float64 `yaml:"flushValue"`

		// MinimumFluence is the floor for in-field pixels
		MinimumFluence float64 `yaml:"minimumFluence"`
	} `yaml:"shaping"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many beams are processed in parallel
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Verbose switches the log level to debug
		Verbose bool `yaml:"verbose"`

		// SaveImages writes JPEG previews of the reduced fluences and factor maps
		SaveImages bool `yaml:"saveImages"`

		// ImageDir is the directory for the previews
		ImageDir string `yaml:"imageDir"`

		// LogLevel is one of panic, fatal, error, warn, info, debug
		LogLevel string `yaml:"logLevel"`

		// FilePrefix and FileExtension build the reduced fluence file names
		FilePrefix    string `yaml:"filePrefix"`
		FileExtension string `yaml:"fileExtension"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default optimization parameters
	cfg.Optimization.ThresholdPercent = 107
	cfg.Optimization.NumberOfSteps = 1
	cfg.Optimization.Step = 0
	cfg.Optimization.SourceAxisDistance = 1000

	// Set default shaping parameters
	cfg.Shaping.Enabled = true
	cfg.Shaping.Margin = 1.25
	cfg.Shaping.FlushValue = 0.5
	cfg.Shaping.MinimumFluence = 0

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default output parameters
	cfg.Output.Verbose = false
	cfg.Output.SaveImages = false
	cfg.Output.ImageDir = "images"
	cfg.Output.LogLevel = "info"
	cfg.Output.FilePrefix = "Reduced"
	cfg.Output.FileExtension = ".optimal_fluence"

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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks the ranges of the configured values
func (c *Config) Validate() error {
	if c.Optimization.ThresholdPercent <= 0 {
		return fmt.Errorf("optimization.thresholdPercent must be positive, got %g", c.Optimization.ThresholdPercent)
	}
	if c.Optimization.NumberOfSteps < 1 {
		return fmt.Errorf("optimization.numberOfSteps must be at least 1, got %d", c.Optimization.NumberOfSteps)
	}
	if c.Optimization.Step < 0 || c.Optimization.Step >= c.Optimization.NumberOfSteps {
		return fmt.Errorf("optimization.step %d not in [0, %d)", c.Optimization.Step, c.Optimization.NumberOfSteps)
	}
	if c.Optimization.SourceAxisDistance <= 0 {
		return fmt.Errorf("optimization.sourceAxisDistance must be positive, got %g", c.Optimization.SourceAxisDistance)
	}
	if c.Shaping.Margin < 0 {
		return fmt.Errorf("shaping.margin must not be negative, got %g", c.Shaping.Margin)
	}
	if c.Shaping.MinimumFluence < 0 || c.Shaping.FlushValue < 0 {
		return fmt.Errorf("shaping values must not be negative")
	}
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if _, err := logrus.ParseLevel(c.Output.LogLevel); err != nil {
		return fmt.Errorf("output.logLevel: %w", err)
	}
	return nil
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

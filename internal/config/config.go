// Package config holds the conversion job configuration and its YAML
// representation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// VerticalReference selects the height buildings are normalized to
type VerticalReference string

const (
	// ReferenceZero places building bottoms at z = 0
	ReferenceZero VerticalReference = "zero"
	// ReferencePlateTop places building bottoms on the top surface of the base plate
	ReferencePlateTop VerticalReference = "plate_top"
)

// Base describes the optional base plate
type Base struct {
	Include   bool    `yaml:"include"`
	Width     float64 `yaml:"width"`
	Length    float64 `yaml:"length"`
	Thickness float64 `yaml:"thickness"`
	CenterX   float64 `yaml:"center_x"`
	CenterY   float64 `yaml:"center_y"`
}

// Repair tunes the mesh repair stages
type Repair struct {
	MaxHoleEdges int `yaml:"max_hole_edges"`
}

// Logging configures the structured log output
type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Config is one conversion job
type Config struct {
	Input             string            `yaml:"input,omitempty"`
	Output            string            `yaml:"output"`
	BuildingLayer     string            `yaml:"building_layer"`
	MaxDimension      float64           `yaml:"max_dimension"`
	VerticalReference VerticalReference `yaml:"vertical_reference"`
	Base              Base              `yaml:"base"`
	STLASCII          bool              `yaml:"stl_ascii"`
	Workers           int               `yaml:"workers"`
	Repair            Repair            `yaml:"repair"`
	Logging           Logging           `yaml:"logging"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	return &Config{
		Output:            "output.stl",
		BuildingLayer:     "buildings",
		MaxDimension:      200.0,
		VerticalReference: ReferencePlateTop,
		Base: Base{
			Include:   true,
			Width:     200.0,
			Length:    200.0,
			Thickness: 4.0,
		},
		Repair: Repair{
			MaxHoleEdges: 64,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// ReferenceHeight resolves the vertical reference to a z coordinate. The
// plate spans [0, thickness], so its top is the plate thickness.
func (c *Config) ReferenceHeight() float64 {
	if c.VerticalReference == ReferencePlateTop && c.Base.Include {
		return c.Base.Thickness
	}
	return 0
}

// WorkerCount returns the number of parallel mesh builders
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Loader handles loading and validating YAML configuration files
type Loader struct{}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a YAML job file on top of the defaults. Relative input and
// output paths are resolved against the job file's directory.
func (l *Loader) Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := l.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	absConfigDir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of config directory: %w", err)
	}
	if config.Input != "" && !filepath.IsAbs(config.Input) {
		config.Input = filepath.Join(absConfigDir, config.Input)
	}
	if !filepath.IsAbs(config.Output) {
		config.Output = filepath.Join(absConfigDir, config.Output)
	}
	if config.Logging.File != "" && !filepath.IsAbs(config.Logging.File) {
		config.Logging.File = filepath.Join(absConfigDir, config.Logging.File)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (l *Loader) Validate(config *Config) error {
	if config.Output == "" {
		return fmt.Errorf("output file must be specified")
	}
	switch strings.ToLower(filepath.Ext(config.Output)) {
	case ".stl", ".3mf":
	default:
		return fmt.Errorf("output %s: unsupported format, use .stl or .3mf", config.Output)
	}

	if config.BuildingLayer == "" {
		return fmt.Errorf("building_layer must not be empty")
	}
	if config.MaxDimension <= 0 {
		return fmt.Errorf("max_dimension must be positive, got %g", config.MaxDimension)
	}

	switch config.VerticalReference {
	case ReferenceZero, ReferencePlateTop:
	default:
		return fmt.Errorf("vertical_reference must be %q or %q, got %q", ReferenceZero, ReferencePlateTop, config.VerticalReference)
	}

	if config.Base.Include {
		if config.Base.Width <= 0 || config.Base.Length <= 0 || config.Base.Thickness <= 0 {
			return fmt.Errorf("base: width, length and thickness must be positive")
		}
	}

	if config.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if config.Repair.MaxHoleEdges < 3 {
		return fmt.Errorf("repair.max_hole_edges must be at least 3, got %d", config.Repair.MaxHoleEdges)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}

	return nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// SaveTo writes the configuration as a YAML job file
func (c *Config) SaveTo(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

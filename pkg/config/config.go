// Package config provides configuration loading and management for watershed3d.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"watershed3d/pkg/labeling"
	"watershed3d/pkg/phantom"
	"watershed3d/pkg/pipeline"
	"watershed3d/pkg/progress"
	"watershed3d/pkg/reconstruction"
	"watershed3d/pkg/watershed"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many z-slabs are processed concurrently
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Labeling parameters
	Labeling struct {
		// Connectivity is 26 (faces, edges and corners) or 6 (faces only)
		Connectivity int `yaml:"connectivity"`
	} `yaml:"labeling"`

	// Watershed flooding parameters
	Watershed struct {
		// Strategy is "queue" (priority queue) or "sweep" (sorted sweeps)
		Strategy string `yaml:"strategy"`

		// MaxSweeps bounds the sweep strategy; 0 means voxels + 1
		MaxSweeps int `yaml:"maxSweeps"`
	} `yaml:"watershed"`

	// Geodesic reconstruction parameters
	Reconstruction struct {
		// Method is "hybrid" or "queue"
		Method string `yaml:"method"`

		// MaxPops caps queue pops; 0 derives the cap from the input values
		MaxPops int `yaml:"maxPops"`
	} `yaml:"reconstruction"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// LogFile, when set, receives a rotated JSON copy of the log
		LogFile string `yaml:"logFile"`

		// LogMaxSizeMB is the size at which the log file is rotated
		LogMaxSizeMB int `yaml:"logMaxSizeMB"`

		// LogMaxAgeDays is how long rotated log files are kept
		LogMaxAgeDays int `yaml:"logMaxAgeDays"`
	} `yaml:"output"`

	// Synthetic input parameters
	Phantom struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
		Depth  int `yaml:"depth"`

		// Blobs is the number of basins the phantom is built around
		Blobs int `yaml:"blobs"`

		// Noise is the amplitude of the uniform noise added to every voxel
		Noise float64 `yaml:"noise"`

		// Seed makes the phantom reproducible
		Seed uint64 `yaml:"seed"`
	} `yaml:"phantom"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default

	cfg.Labeling.Connectivity = int(labeling.Connectivity26)

	cfg.Watershed.Strategy = watershed.StrategyPriorityQueue.String()
	cfg.Watershed.MaxSweeps = 0

	cfg.Reconstruction.Method = reconstruction.MethodHybrid.String()
	cfg.Reconstruction.MaxPops = 0

	// Set default output parameters
	cfg.Output.Verbose = false
	cfg.Output.LogMaxSizeMB = 100
	cfg.Output.LogMaxAgeDays = 28

	cfg.Phantom.Width = 64
	cfg.Phantom.Height = 64
	cfg.Phantom.Depth = 32
	cfg.Phantom.Blobs = 6
	cfg.Phantom.Noise = 0.5
	cfg.Phantom.Seed = 1

	return cfg
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Processing.NumWorkers < 0 {
		err = multierr.Append(err, errors.Errorf("processing.numWorkers must not be negative, got %d", c.Processing.NumWorkers))
	}
	if _, e := c.Connectivity(); e != nil {
		err = multierr.Append(err, e)
	}
	if _, e := watershed.ParseStrategy(c.Watershed.Strategy); e != nil {
		err = multierr.Append(err, e)
	}
	if c.Watershed.MaxSweeps < 0 {
		err = multierr.Append(err, errors.Errorf("watershed.maxSweeps must not be negative, got %d", c.Watershed.MaxSweeps))
	}
	if _, e := reconstruction.ParseMethod(c.Reconstruction.Method); e != nil {
		err = multierr.Append(err, e)
	}
	if c.Reconstruction.MaxPops < 0 {
		err = multierr.Append(err, errors.Errorf("reconstruction.maxPops must not be negative, got %d", c.Reconstruction.MaxPops))
	}
	p := c.Phantom
	if p.Width <= 0 || p.Height <= 0 || p.Depth <= 0 {
		err = multierr.Append(err, errors.Errorf("phantom dimensions must be positive, got %dx%dx%d", p.Width, p.Height, p.Depth))
	}
	if p.Blobs < 1 {
		err = multierr.Append(err, errors.Errorf("phantom.blobs must be at least 1, got %d", p.Blobs))
	}
	if p.Noise < 0 {
		err = multierr.Append(err, errors.Errorf("phantom.noise must not be negative, got %v", p.Noise))
	}
	return err
}

// Connectivity returns the labeling connectivity.
func (c *Config) Connectivity() (labeling.Connectivity, error) {
	switch conn := labeling.Connectivity(c.Labeling.Connectivity); conn {
	case labeling.Connectivity6, labeling.Connectivity26:
		return conn, nil
	}
	return 0, errors.Errorf("labeling.connectivity must be 6 or 26, got %d", c.Labeling.Connectivity)
}

// PipelineParams converts the configuration into segmentation parameters.
func (c *Config) PipelineParams() (*pipeline.Params, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	conn, _ := c.Connectivity()
	strategy, _ := watershed.ParseStrategy(c.Watershed.Strategy)
	return &pipeline.Params{
		Workers:      c.Processing.NumWorkers,
		Connectivity: conn,
		Strategy:     strategy,
		MaxSweeps:    c.Watershed.MaxSweeps,
	}, nil
}

// ReconstructionOptions converts the configuration into reconstruction options.
func (c *Config) ReconstructionOptions() (reconstruction.Options, error) {
	method, err := reconstruction.ParseMethod(c.Reconstruction.Method)
	if err != nil {
		return reconstruction.Options{}, err
	}
	opts := reconstruction.Options{Method: method, MaxPops: c.Reconstruction.MaxPops}
	opts.Workers = c.Processing.NumWorkers
	return opts, nil
}

// PhantomParams converts the configuration into phantom parameters.
func (c *Config) PhantomParams() phantom.Params {
	p := c.Phantom
	return phantom.Params{
		Width:  p.Width,
		Height: p.Height,
		Depth:  p.Depth,
		Blobs:  p.Blobs,
		Noise:  p.Noise,
		Seed:   p.Seed,
	}
}

// LogConfig converts the output section into logger settings.
func (c *Config) LogConfig() progress.LogConfig {
	return progress.LogConfig{
		Verbose: c.Output.Verbose,
		Logfile: c.Output.LogFile,
		MaxSize: c.Output.LogMaxSizeMB,
		MaxAge:  c.Output.LogMaxAgeDays,
	}
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
		return nil, errors.Wrap(err, "error reading config file")
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config file")
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "error creating config directory")
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "error marshaling config")
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrap(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

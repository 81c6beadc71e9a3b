package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a recording run needs. Binary paths are resolved
// once at startup and threaded down explicitly.
type Config struct {
	RepeatCount       int           `yaml:"repeat"`
	Port              int           `yaml:"port"`
	Headless          bool          `yaml:"headless"`
	DisableThrottling bool          `yaml:"disable_throttling"`
	OutputDir         string        `yaml:"output_dir"`
	FFmpegPath        string        `yaml:"ffmpeg"`
	LighthousePath    string        `yaml:"lighthouse"`
	ChromePath        string        `yaml:"chrome"`
	EncodeWorkers     int           `yaml:"encode_workers"`
	FrameHeight       int           `yaml:"frame_height"` // 0 keeps captured size
	JPEGQuality       int           `yaml:"jpeg_quality"`
	MaxCPULoad        float64       `yaml:"max_cpu_load"` // percent, 0 disables the probe
	LaunchTimeout     time.Duration `yaml:"launch_timeout"`
	KeepScratch       bool          `yaml:"keep_scratch"`
	WriteReport       bool          `yaml:"report"`
	Debug             bool          `yaml:"debug"`
}

// Default returns the configuration used when no file or flag overrides it.
func Default() *Config {
	return &Config{
		RepeatCount:    3,
		Headless:       true,
		FFmpegPath:     "ffmpeg",
		LighthousePath: "lighthouse",
		EncodeWorkers:  runtime.NumCPU(),
		JPEGQuality:    90,
		MaxCPULoad:     80,
		LaunchTimeout:  30 * time.Second,
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.RepeatCount < 1 {
		errs = append(errs, fmt.Errorf("repeat count must be at least 1, got %d", c.RepeatCount))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.EncodeWorkers < 1 {
		errs = append(errs, fmt.Errorf("encode workers must be at least 1, got %d", c.EncodeWorkers))
	}
	if c.FrameHeight < 0 || c.FrameHeight%2 != 0 {
		errs = append(errs, fmt.Errorf("frame height must be a non-negative even number, got %d", c.FrameHeight))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be within 1..100, got %d", c.JPEGQuality))
	}
	if c.MaxCPULoad < 0 || c.MaxCPULoad > 100 {
		errs = append(errs, fmt.Errorf("max cpu load must be within 0..100, got %g", c.MaxCPULoad))
	}
	if c.LaunchTimeout <= 0 {
		errs = append(errs, errors.New("launch timeout must be positive"))
	}
	if c.FFmpegPath == "" || c.LighthousePath == "" {
		errs = append(errs, errors.New("ffmpeg and lighthouse paths must be set"))
	}
	return errors.Join(errs...)
}

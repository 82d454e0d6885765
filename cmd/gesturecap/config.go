package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-gesture/capture"
)

// defaultConfigFile is loaded from the working directory when --config is not given.
const defaultConfigFile = "gesturecap.yaml"

// fileConfig represents a gesturecap.yaml configuration file.
// All values are optional and act as defaults for command flags.
// Flags always override config values.
type fileConfig struct {
	Port        string         `yaml:"port"`
	Auto        bool           `yaml:"auto"`
	Baud        int            `yaml:"baud"`
	Output      string         `yaml:"output"`
	Debug       bool           `yaml:"debug"`
	LogLevel    string         `yaml:"log_level"`
	MaxAttempts int            `yaml:"max_attempts"`
	Timeouts    timeoutsConfig `yaml:"timeouts"`
}

// timeoutsConfig overrides the protocol timeouts.
type timeoutsConfig struct {
	Config     Duration `yaml:"config"`
	Marker     Duration `yaml:"marker"`
	ConfigLine Duration `yaml:"config_line"`
	DataLine   Duration `yaml:"data_line"`
	Count      Duration `yaml:"count"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "1m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "1m30s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed

	return nil
}

// loadConfig reads a YAML config file and expands environment variables.
//
// When path is empty the default file is read if it exists; a missing
// default file yields an empty config.
func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if !explicit {
				return &fileConfig{}, nil
			}
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	return &cfg, nil
}

// captureOptions converts the protocol overrides into capture options.
func (c *fileConfig) captureOptions() []capture.CaptureOption {
	var opts []capture.CaptureOption

	t := c.Timeouts
	if t.Config.Duration > 0 {
		opts = append(opts, capture.WithConfigTimeout(t.Config.Duration))
	}
	if t.Marker.Duration > 0 {
		opts = append(opts, capture.WithMarkerTimeout(t.Marker.Duration))
	}
	if t.ConfigLine.Duration > 0 {
		opts = append(opts, capture.WithConfigLineTimeout(t.ConfigLine.Duration))
	}
	if t.DataLine.Duration > 0 {
		opts = append(opts, capture.WithDataLineTimeout(t.DataLine.Duration))
	}
	if t.Count.Duration > 0 {
		opts = append(opts, capture.WithCountTimeout(t.Count.Duration))
	}
	if c.MaxAttempts > 0 {
		opts = append(opts, capture.WithMaxAttempts(c.MaxAttempts))
	}

	return opts
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when the file omits a field.
const (
	DefaultListenAddr  = "0.0.0.0:7427"
	DefaultMetricsAddr = "0.0.0.0:9427"
	DefaultDataDir     = "/var/lib/shoal"
	DefaultStreams     = 4
	DefaultLogLevel    = "info"
	DefaultSerializer  = "json"
)

// Config holds node configuration.
type Config struct {
	// DataDir is the root directory for pool shard files.
	DataDir string `yaml:"dataDir"`
	// ListenAddr is the pool target service listen address.
	ListenAddr string `yaml:"listenAddr"`
	// MetricsAddr serves Prometheus metrics; empty disables the endpoint.
	MetricsAddr string `yaml:"metricsAddr"`
	// Streams is the number of execution streams (one per local shard).
	Streams int `yaml:"streams"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
	// LogJSON switches the log output from console to JSON.
	LogJSON bool `yaml:"logJSON"`
	// Serializer names the wire encoding, "json" or "gob".
	Serializer string `yaml:"serializer"`
}

// Default returns a config populated with defaults.
func Default() *Config {
	return &Config{
		DataDir:     DefaultDataDir,
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		Streams:     DefaultStreams,
		LogLevel:    DefaultLogLevel,
		Serializer:  DefaultSerializer,
	}
}

// Load reads a YAML config file, filling omitted fields with defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values; defaults always validate.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("dataDir must not be empty")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr must not be empty")
	}
	if c.Streams < 1 {
		return fmt.Errorf("streams must be at least 1, got %d", c.Streams)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.Serializer {
	case "json", "gob":
	default:
		return fmt.Errorf("unknown serializer %q", c.Serializer)
	}
	return nil
}

// Package config loads the YAML configuration consumed by the GraphTrace
// binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProbeConfig holds the probe-to-engine transport settings.
type ProbeConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ReplayConfig holds the recording pipeline settings.
type ReplayConfig struct {
	RootPath string `yaml:"root_path"`
	Interval string `yaml:"interval"` // duration string, e.g. "10s"
}

// ParseInterval returns the configured tick interval, falling back to 10s
// when unset.
func (c ReplayConfig) ParseInterval() (time.Duration, error) {
	if c.Interval == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid replay interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("replay interval must be positive, got %q", c.Interval)
	}
	return d, nil
}

// ClickHouseConfig holds the connection settings for the metrics exporter.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ExporterDef defines one per-tick snapshot exporter.
type ExporterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// EngineConfig holds the live service settings.
type EngineConfig struct {
	NumWorkers          int           `yaml:"num_workers"`
	SizeOfSampleChannel int           `yaml:"size_of_sample_channel"`
	NumShards           uint32        `yaml:"num_shards"`
	RecordOnStart       bool          `yaml:"record_on_start"`
	Replay              ReplayConfig  `yaml:"replay"`
	Exporters           []ExporterDef `yaml:"exporters"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Probe  ProbeConfig  `yaml:"probe"`
	Engine EngineConfig `yaml:"engine"`
	API    APIConfig    `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file, applies defaults for
// absent values, and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Probe.NATSURL == "" {
		c.Probe.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.Probe.Subject == "" {
		c.Probe.Subject = "graphtrace.samples"
	}
	if c.Engine.NumWorkers <= 0 {
		c.Engine.NumWorkers = 4
	}
	if c.Engine.SizeOfSampleChannel <= 0 {
		c.Engine.SizeOfSampleChannel = 1024
	}
	if c.Engine.NumShards == 0 {
		c.Engine.NumShards = 256
	}
	if c.Engine.Replay.RootPath == "" {
		c.Engine.Replay.RootPath = "data/replay"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
}

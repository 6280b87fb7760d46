// YAML config loader with CUE validation and env overrides
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Greptime configures the GreptimeDB sink. An empty endpoint disables it.
type Greptime struct {
	Endpoint string `yaml:"endpoint" env:"GREPTIMEDB_ENDPOINT"`
	Database string `yaml:"database" env:"GREPTIMEDB_DATABASE"`
	Table    string `yaml:"table" env:"GREPTIMEDB_TABLE"`
}

// Sinks selects where recorded frames go.
type Sinks struct {
	Output    string   `yaml:"output"`
	LogFile   string   `yaml:"log_file"`
	SQLite    string   `yaml:"sqlite" env:"TELEMETRY_SQLITE"`
	BatchSize int      `yaml:"batch_size"`
	Greptime  Greptime `yaml:"greptime"`
}

// Admin configures the HTTP snapshot endpoint. An empty addr disables it.
type Admin struct {
	Addr string `yaml:"addr" env:"ADMIN_ADDR"`
}

// Config is the root configuration of the simulator.
type Config struct {
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat       string        `yaml:"log_format"`
	TelemetryHz     float64       `yaml:"telemetry_hz" env:"TELEMETRY_HZ"`
	SessionInterval time.Duration `yaml:"session_interval"`
	RunningInterval time.Duration `yaml:"running_interval"`
	DatasetDir      string        `yaml:"dataset_dir" env:"DATASET_DIR"`
	Seed            int64         `yaml:"seed"`
	Source          string        `yaml:"source"`
	Sinks           Sinks         `yaml:"sinks"`
	Admin           Admin         `yaml:"admin"`
}

// Sources understood by the stream command.
const (
	SourceMock = "mock"
	SourceSDK  = "sdk"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		TelemetryHz:     60,
		SessionInterval: 2 * time.Second,
		RunningInterval: time.Second,
		Source:          SourceMock,
		Sinks: Sinks{
			Output:    "json",
			BatchSize: 30,
			Greptime: Greptime{
				Database: "public",
				Table:    "car_telemetry",
			},
		},
	}
}

// Load reads the YAML file at configPath over Default, validating it
// against the CUE schema first. An empty schemaPath uses the embedded
// schema; an empty configPath skips the file. Environment overrides are
// applied last.
func Load(configPath, schemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		schema, err := loadSchema(schemaPath)
		if err != nil {
			return nil, err
		}
		if err := Validate(configPath, data, schema); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Check verifies the values the schema cannot see, such as those set from
// the environment.
func (c *Config) Check() error {
	switch {
	case c.TelemetryHz <= 0:
		return fmt.Errorf("telemetry_hz must be positive, got %v", c.TelemetryHz)
	case c.SessionInterval <= 0:
		return fmt.Errorf("session_interval must be positive, got %v", c.SessionInterval)
	case c.RunningInterval <= 0:
		return fmt.Errorf("running_interval must be positive, got %v", c.RunningInterval)
	case c.Source != SourceMock && c.Source != SourceSDK:
		return fmt.Errorf("unknown source %q", c.Source)
	case c.Sinks.BatchSize < 1:
		return fmt.Errorf("sinks.batch_size must be at least 1, got %d", c.Sinks.BatchSize)
	}
	return nil
}

// TelemetryInterval is the period of the telemetry loop.
func (c *Config) TelemetryInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.TelemetryHz)
}

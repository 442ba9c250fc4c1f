package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Config is the complete sqlq configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Engine    EngineConfig    `yaml:"engine" json:"engine"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
}

// DatabaseConfig holds MySQL connection settings.
type DatabaseConfig struct {
	Host            string            `yaml:"host" json:"host" validate:"required"`
	Port            int               `yaml:"port" json:"port" validate:"required,min=1,max=65535"`
	Name            string            `yaml:"name" json:"name" validate:"required"`
	User            string            `yaml:"user" json:"user" validate:"required"`
	Password        string            `yaml:"password" json:"-"`
	Params          map[string]string `yaml:"params" json:"params"`
	MaxOpen         int               `yaml:"max_open" json:"max_open" validate:"min=0"`
	MaxIdle         int               `yaml:"max_idle" json:"max_idle" validate:"min=0"`
	ConnMaxLifetime time.Duration     `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	Workers        int           `yaml:"workers" json:"workers" validate:"required,min=1,max=256"`
	PollInterval   time.Duration `yaml:"poll_interval" json:"poll_interval" validate:"required"`
	DrainInterval  time.Duration `yaml:"drain_interval" json:"drain_interval" validate:"required"`
	Assignment     string        `yaml:"assignment" json:"assignment" validate:"oneof=round_robin shortest_queue"`
	TrackerInitial int           `yaml:"tracker_initial" json:"tracker_initial" validate:"min=1"`
	TrackerSamples int           `yaml:"tracker_samples" json:"tracker_samples" validate:"min=1"`
}

// LogConfig selects the logging backend.
type LogConfig struct {
	Backend     string `yaml:"backend" json:"backend" validate:"omitempty,oneof=zap noop none"`
	Level       string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	File        string `yaml:"file" json:"file"`
	Development bool   `yaml:"development" json:"development"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate" validate:"min=0,max=1"`
}

// HTTPConfig configures the status server of `sqlq serve`.
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            3306,
			Name:            "sqlq",
			User:            "root",
			MaxOpen:         16,
			MaxIdle:         8,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Engine: EngineConfig{
			Workers:        4,
			PollInterval:   20 * time.Millisecond,
			DrainInterval:  50 * time.Millisecond,
			Assignment:     "round_robin",
			TrackerInitial: 100,
			TrackerSamples: 25,
		},
		Log: LogConfig{
			Backend: "zap",
			Level:   "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "sqlq",
			SampleRate:  1.0,
		},
		HTTP: HTTPConfig{
			Addr: ":8089",
		},
	}
}

// Load reads the YAML file at path (if any), applies SQLQ_* environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DSN renders the go-sql-driver/mysql connection string.
func (d DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	cfg.DBName = d.Name
	cfg.Collation = "utf8mb4_general_ci"
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"time_zone": "'+00:00'"}
	for k, v := range d.Params {
		cfg.Params[k] = v
	}
	return cfg.FormatDSN()
}

// Package config loads and validates the bringup configuration. Defaults
// cover a stock install; an optional YAML file overrides them, and the
// environment variables APP_DIR, SERVICE_USER, HOST and PORT win over both.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full provisioning configuration.
type Config struct {
	// AppDir is the application install root; the working copy of the
	// application source must already be present here.
	AppDir string `yaml:"app_dir" validate:"required"`

	// ServiceUser is the unix account the main service runs as.
	ServiceUser string `yaml:"service_user" validate:"required"`

	// Host and Port form the main service's bind address.
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"gte=1,lte=65535"`

	// Packages are the OS packages installed before anything else.
	Packages []string `yaml:"packages" validate:"min=1,dive,required"`

	// MainUnit and BootstrapUnit are the systemd unit names the
	// orchestrator installs and drives.
	MainUnit      string `yaml:"main_unit" validate:"required"`
	BootstrapUnit string `yaml:"bootstrap_unit" validate:"required"`

	// StateDir holds markers, locks and the run-history database.
	StateDir string `yaml:"state_dir" validate:"required"`

	// LogFile is the durable append-only log.
	LogFile string `yaml:"log_file"`

	// PolicyDir holds operator-supplied rego policy files. Optional.
	PolicyDir string `yaml:"policy_dir"`

	Retry RetryConfig `yaml:"retry"`
	Poll  PollConfig  `yaml:"poll"`
}

// RetryConfig tunes the retry executor for package operations.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" validate:"gte=1"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gte=0"`
	Multiplier   float64       `yaml:"multiplier" validate:"gte=1"`
	MaxDelay     time.Duration `yaml:"max_delay" validate:"gte=0"`
}

// PollConfig tunes the orchestrator's waits.
type PollConfig struct {
	// ContentionInterval is the re-check interval while waiting out
	// package-manager lock contention.
	ContentionInterval time.Duration `yaml:"contention_interval" validate:"gt=0"`

	// StateInterval and StateIterations bound the wait for the
	// dependency bootstrap unit to reach a terminal state.
	StateInterval   time.Duration `yaml:"state_interval" validate:"gt=0"`
	StateIterations int           `yaml:"state_iterations" validate:"gte=1"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		AppDir:        "/opt/app",
		ServiceUser:   "appsvc",
		Host:          "0.0.0.0",
		Port:          8000,
		Packages:      []string{"python3", "python3-venv", "python3-pip"},
		MainUnit:      "app.service",
		BootstrapUnit: "app-bootstrap.service",
		StateDir:      "/var/lib/bringup",
		LogFile:       "/var/log/bringup.log",
		Retry: RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			Multiplier:   2,
			MaxDelay:     time.Minute,
		},
		Poll: PollConfig{
			ContentionInterval: 5 * time.Second,
			StateInterval:      5 * time.Second,
			StateIterations:    60,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty and the file exists), then environment overrides, then
// validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APP_DIR"); v != "" {
		cfg.AppDir = v
	}
	if v := os.Getenv("SERVICE_USER"); v != "" {
		cfg.ServiceUser = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
}

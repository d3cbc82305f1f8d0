// Package config provides configuration management for the policy simulator.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/limiquantix/vmpolicy/internal/datacenter"
	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/drs"
	"github.com/limiquantix/vmpolicy/internal/policy"
)

// Fallback detector kinds.
const (
	FallbackStatic = "static"
	FallbackMAD    = "mad"
)

// Config holds all configuration for the application.
type Config struct {
	Policy     policy.Config    `mapstructure:"policy"`
	Fallback   FallbackConfig   `mapstructure:"fallback"`
	DRS        drs.Config       `mapstructure:"drs"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// FallbackConfig selects the detector used while a host's history is too short.
type FallbackConfig struct {
	Kind                 string  `mapstructure:"kind"`
	UtilizationThreshold float64 `mapstructure:"utilization_threshold"`

	// SafetyParameter of the MAD detector.
	SafetyParameter float64 `mapstructure:"safety_parameter"`
}

// SimulationConfig describes the synthetic datacenter and workload.
type SimulationConfig struct {
	Ticks int   `mapstructure:"ticks"`
	Seed  int64 `mapstructure:"seed"`

	// InitialUtilization of every VM. Zero draws a random value per VM.
	InitialUtilization float64 `mapstructure:"initial_utilization"`

	// Volatility is the largest change of a VM's utilization between two ticks.
	Volatility float64               `mapstructure:"volatility"`
	Hosts      []datacenter.HostSpec `mapstructure:"hosts"`
	VMs        []datacenter.VMSpec   `mapstructure:"vms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("VMPOLICY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := c.Policy.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.Fallback.Kind {
	case FallbackStatic, FallbackMAD:
	default:
		result = multierror.Append(result, fmt.Errorf("%w: unknown fallback kind %q",
			domain.ErrInvalidConfig, c.Fallback.Kind))
	}
	if c.Fallback.UtilizationThreshold <= 0 || c.Fallback.UtilizationThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("%w: fallback.utilization_threshold must be in (0, 1], got %v",
			domain.ErrInvalidConfig, c.Fallback.UtilizationThreshold))
	}
	if c.Fallback.Kind == FallbackMAD && c.Fallback.SafetyParameter < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: fallback.safety_parameter must not be negative, got %v",
			domain.ErrInvalidConfig, c.Fallback.SafetyParameter))
	}

	if c.DRS.MaxRecommendations < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: drs.max_recommendations must not be negative, got %d",
			domain.ErrInvalidConfig, c.DRS.MaxRecommendations))
	}

	if c.Simulation.Ticks <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: simulation.ticks must be positive, got %d",
			domain.ErrInvalidConfig, c.Simulation.Ticks))
	}
	if c.Simulation.InitialUtilization < 0 || c.Simulation.InitialUtilization > 1 {
		result = multierror.Append(result, fmt.Errorf("%w: simulation.initial_utilization must be in [0, 1], got %v",
			domain.ErrInvalidConfig, c.Simulation.InitialUtilization))
	}
	if c.Simulation.Volatility < 0 || c.Simulation.Volatility > 1 {
		result = multierror.Append(result, fmt.Errorf("%w: simulation.volatility must be in [0, 1], got %v",
			domain.ErrInvalidConfig, c.Simulation.Volatility))
	}
	if len(c.Simulation.Hosts) == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: simulation needs at least one host", domain.ErrInvalidConfig))
	}

	return result.ErrorOrNil()
}

func setDefaults(v *viper.Viper) {
	// Policy
	v.SetDefault("policy.safety_parameter", 1.2)
	v.SetDefault("policy.scheduling_interval", 300)
	v.SetDefault("policy.utilization_threshold", 0.9)

	// Fallback
	v.SetDefault("fallback.kind", FallbackStatic)
	v.SetDefault("fallback.utilization_threshold", 0.9)
	v.SetDefault("fallback.safety_parameter", 2.5)

	// DRS
	v.SetDefault("drs.max_recommendations", 0)

	// Simulation
	v.SetDefault("simulation.ticks", 48)
	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.initial_utilization", 0)
	v.SetDefault("simulation.volatility", 0.15)
	v.SetDefault("simulation.hosts", []map[string]any{
		{"id": "host-1", "mips": 2660, "ram_mb": 4096, "bandwidth_bps": 1_000_000_000},
		{"id": "host-2", "mips": 2660, "ram_mb": 4096, "bandwidth_bps": 1_000_000_000},
		{"id": "host-3", "mips": 3720, "ram_mb": 8192, "bandwidth_bps": 1_000_000_000},
		{"id": "host-4", "mips": 3720, "ram_mb": 8192, "bandwidth_bps": 1_000_000_000},
	})
	v.SetDefault("simulation.vms", []map[string]any{
		{"id": "vm-1", "mips": 2500, "ram_mb": 870},
		{"id": "vm-2", "mips": 2000, "ram_mb": 1740},
		{"id": "vm-3", "mips": 1000, "ram_mb": 1740},
		{"id": "vm-4", "mips": 500, "ram_mb": 613},
		{"id": "vm-5", "mips": 2500, "ram_mb": 870},
		{"id": "vm-6", "mips": 2000, "ram_mb": 1740},
		{"id": "vm-7", "mips": 1000, "ram_mb": 1740},
		{"id": "vm-8", "mips": 500, "ram_mb": 613},
	})

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
}

// Package policy combines the local regression overload detector and the best-fit
// placement selector into the VM allocation policy driven by the simulator.
package policy

import (
	"github.com/limiquantix/vmpolicy/internal/overload"
)

// Config holds the policy configuration.
type Config struct {
	// SafetyParameter inflates the predicted utilization. Higher values migrate more
	// aggressively.
	SafetyParameter float64 `mapstructure:"safety_parameter"`

	// SchedulingInterval is the number of seconds between policy invocations.
	SchedulingInterval float64 `mapstructure:"scheduling_interval"`

	// UtilizationThreshold is accepted for compatibility with threshold-based policies.
	// The local regression policy ignores it.
	UtilizationThreshold float64 `mapstructure:"utilization_threshold"`
}

// DefaultConfig returns the default policy configuration.
func DefaultConfig() Config {
	d := overload.DefaultLocalRegressionConfig()
	return Config{
		SafetyParameter:      d.SafetyParameter,
		SchedulingInterval:   d.SchedulingInterval,
		UtilizationThreshold: overload.DefaultUtilizationThreshold,
	}
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	return c.detectorConfig().Validate()
}

func (c Config) detectorConfig() overload.LocalRegressionConfig {
	return overload.LocalRegressionConfig{
		SafetyParameter:    c.SafetyParameter,
		SchedulingInterval: c.SchedulingInterval,
	}
}

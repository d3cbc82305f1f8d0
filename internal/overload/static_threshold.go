package overload

import (
	"fmt"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// DefaultUtilizationThreshold is the static threshold used when none is configured.
const DefaultUtilizationThreshold = 0.9

// StaticThreshold judges a host over-utilized when its VMs request more than a fixed
// fraction of its capacity.
type StaticThreshold struct {
	threshold float64
}

// NewStaticThreshold creates a static threshold detector. The threshold must be in (0, 1].
func NewStaticThreshold(threshold float64) (*StaticThreshold, error) {
	if !(threshold > 0 && threshold <= 1) {
		return nil, fmt.Errorf("%w: utilization threshold must be in (0, 1], got %v",
			domain.ErrInvalidConfig, threshold)
	}
	return &StaticThreshold{threshold: threshold}, nil
}

// Threshold returns the configured utilization threshold.
func (s *StaticThreshold) Threshold() float64 {
	return s.threshold
}

// IsOverUtilized reports whether the requested CPU exceeds the threshold.
func (s *StaticThreshold) IsOverUtilized(host domain.Host) (bool, error) {
	utilization, err := RequestedUtilization(host)
	if err != nil {
		return false, err
	}
	return utilization > s.threshold, nil
}

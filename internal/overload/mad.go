package overload

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// MinMADHistory is the shortest history the median absolute deviation is computed on.
const MinMADHistory = 12

// MedianAbsoluteDeviation adapts the utilization threshold to the host's variability:
// the threshold is 1 - safety·MAD(history), so hosts with a volatile history are judged
// over-utilized earlier. Hosts with a short history are judged by the fallback.
type MedianAbsoluteDeviation struct {
	safety   float64
	fallback Detector
	logger   *zap.Logger
}

// NewMedianAbsoluteDeviation creates a MAD detector.
func NewMedianAbsoluteDeviation(safety float64, fallback Detector, logger *zap.Logger) (*MedianAbsoluteDeviation, error) {
	if !(safety >= 0) || math.IsInf(safety, 0) {
		return nil, fmt.Errorf("%w: safety parameter must not be negative, got %v", domain.ErrInvalidConfig, safety)
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: fallback detector is required", domain.ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedianAbsoluteDeviation{
		safety:   safety,
		fallback: fallback,
		logger:   logger.With(zap.String("component", "mad-detector")),
	}, nil
}

// UpperThreshold returns the adaptive utilization threshold of the host.
func (m *MedianAbsoluteDeviation) UpperThreshold(host domain.Host) (float64, error) {
	history := host.UtilizationHistory()
	if len(history) < MinMADHistory {
		return 0, fmt.Errorf("%w: need %d samples, got %d", domain.ErrInsufficientHistory, MinMADHistory, len(history))
	}

	mad, err := stats.MedianAbsoluteDeviationPopulation(history)
	if err != nil {
		return 0, err
	}
	return 1 - m.safety*mad, nil
}

// IsOverUtilized reports whether the requested CPU exceeds the adaptive threshold.
func (m *MedianAbsoluteDeviation) IsOverUtilized(host domain.Host) (bool, error) {
	upper, err := m.UpperThreshold(host)
	if err != nil {
		m.logger.Debug("Delegating to fallback detector", zap.String("host_id", host.ID()), zap.Error(err))
		return m.fallback.IsOverUtilized(host)
	}

	utilization, err := RequestedUtilization(host)
	if err != nil {
		return false, err
	}
	return utilization > upper, nil
}

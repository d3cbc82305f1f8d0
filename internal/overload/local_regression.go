package overload

import (
	"errors"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/regression"
)

// HistoryWindow is the number of most recent utilization samples the trend is fitted to.
const HistoryWindow = 10

// LocalRegressionConfig holds the tuning parameters of the local regression detector.
type LocalRegressionConfig struct {
	// SafetyParameter inflates the predicted utilization. Higher values migrate more
	// aggressively.
	SafetyParameter float64 `mapstructure:"safety_parameter"`

	// SchedulingInterval is the number of seconds between policy invocations.
	SchedulingInterval float64 `mapstructure:"scheduling_interval"`
}

// DefaultLocalRegressionConfig returns the parameters used by the reference experiments.
func DefaultLocalRegressionConfig() LocalRegressionConfig {
	return LocalRegressionConfig{
		SafetyParameter:    1.2,
		SchedulingInterval: 300,
	}
}

// Validate checks the parameters and reports every problem found.
func (c LocalRegressionConfig) Validate() error {
	var result *multierror.Error
	if !(c.SchedulingInterval > 0) || math.IsInf(c.SchedulingInterval, 0) {
		result = multierror.Append(result, fmt.Errorf("%w: scheduling interval must be positive, got %v",
			domain.ErrInvalidConfig, c.SchedulingInterval))
	}
	if !(c.SafetyParameter >= 0) || math.IsInf(c.SafetyParameter, 0) {
		result = multierror.Append(result, fmt.Errorf("%w: safety parameter must not be negative, got %v",
			domain.ErrInvalidConfig, c.SafetyParameter))
	}
	return result.ErrorOrNil()
}

// LocalRegression is the "modified" local regression overload detector.
//
// On every decision with enough history it fits a trend to the last HistoryWindow
// utilization samples, projects it past the time needed to migrate the host's largest
// VM, and records the projection in its HistorySink. The verdict itself does not use
// the projection: a host is over-utilized when the sum over its VMs of mean demand plus
// one standard deviation reaches its capacity. Hosts with a short history, or whose
// history cannot be fitted, are judged by the fallback detector and nothing is
// recorded.
type LocalRegression struct {
	config    LocalRegressionConfig
	estimator regression.Estimator
	fallback  Detector
	sink      HistorySink
	metrics   *Metrics
	logger    *zap.Logger
}

// NewLocalRegression creates a local regression detector. A nil estimator selects
// regression.Loess and a nil scope disables metrics.
func NewLocalRegression(
	cfg LocalRegressionConfig,
	estimator regression.Estimator,
	fallback Detector,
	sink HistorySink,
	scope tally.Scope,
	logger *zap.Logger,
) (*LocalRegression, error) {
	var result *multierror.Error
	if err := cfg.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if fallback == nil {
		result = multierror.Append(result, fmt.Errorf("%w: fallback detector is required", domain.ErrInvalidConfig))
	}
	if sink == nil {
		result = multierror.Append(result, fmt.Errorf("%w: history sink is required", domain.ErrInvalidConfig))
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	if estimator == nil {
		estimator = regression.Loess
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LocalRegression{
		config:    cfg,
		estimator: estimator,
		fallback:  fallback,
		sink:      sink,
		metrics:   NewMetrics(scope),
		logger:    logger.With(zap.String("component", "overload-detector")),
	}, nil
}

// Config returns the detector parameters.
func (d *LocalRegression) Config() LocalRegressionConfig {
	return d.config
}

// Fallback returns the detector used when the trend cannot be computed.
func (d *LocalRegression) Fallback() Detector {
	return d.fallback
}

// IsOverUtilized reports whether the host is over-utilized, recording the predicted
// utilization when the regression path runs.
func (d *LocalRegression) IsOverUtilized(host domain.Host) (bool, error) {
	return d.evaluate(host, true)
}

// WithoutRecording returns a Detector with the same verdicts that never writes to the
// history sink. It is used to judge hypothetical host states.
func (d *LocalRegression) WithoutRecording() Detector {
	return DetectorFunc(func(host domain.Host) (bool, error) {
		return d.evaluate(host, false)
	})
}

// PredictedUtilization projects the trend past the host's migration time and applies
// the safety parameter.
func (d *LocalRegression) PredictedUtilization(host domain.Host, est regression.Estimate) float64 {
	steps := d.MigrationIntervals(host)
	return est.At(float64(HistoryWindow)+steps) * d.config.SafetyParameter
}

// MigrationIntervals is the number of scheduling intervals the migration of the host's
// largest VM occupies. A host without VMs or without bandwidth needs none.
func (d *LocalRegression) MigrationIntervals(host domain.Host) float64 {
	seconds, err := MaxMigrationTime(host)
	if err != nil {
		if !errors.Is(err, domain.ErrNoVMs) {
			d.logger.Warn("Cannot estimate migration time", zap.String("host_id", host.ID()), zap.Error(err))
		}
		return 0
	}
	return math.Ceil(seconds / d.config.SchedulingInterval)
}

func (d *LocalRegression) evaluate(host domain.Host, record bool) (bool, error) {
	logger := d.logger.With(zap.String("host_id", host.ID()))

	history := host.UtilizationHistory()
	if len(history) < HistoryWindow {
		logger.Debug("Delegating to fallback detector",
			zap.Error(domain.ErrInsufficientHistory),
			zap.Int("samples", len(history)),
		)
		d.metrics.FallbackInsufficientHistory.Inc(1)
		return d.fallback.IsOverUtilized(host)
	}

	est, err := d.estimator.Estimate(recentReversed(history, HistoryWindow))
	if err != nil {
		logger.Debug("Delegating to fallback detector", zap.Error(err))
		d.metrics.FallbackRegressionFailure.Inc(1)
		return d.fallback.IsOverUtilized(host)
	}

	predicted := d.PredictedUtilization(host, est)
	if record {
		d.sink.Record(host, predicted)
	}

	demand := StatisticalDemand(host.VMs())
	totalMips := host.TotalMips()

	logger.Debug("Evaluated host utilization",
		zap.Float64("predicted_utilization", predicted),
		zap.Float64("demand_mips", demand),
		zap.Float64("total_mips", totalMips),
	)

	if math.IsNaN(demand) || math.IsInf(demand, 0) || !(totalMips > 0) || math.IsInf(totalMips, 0) {
		d.metrics.InvalidCapacity.Inc(1)
		return false, fmt.Errorf("%w: host %s demand %v MIPS over capacity %v MIPS",
			domain.ErrInvalidCapacity, host.ID(), demand, totalMips)
	}

	d.metrics.Evaluations.Inc(1)
	overloaded := demand/totalMips >= 1
	if overloaded {
		d.metrics.Overloaded.Inc(1)
	}
	return overloaded, nil
}

// recentReversed returns the last n samples with the newest first.
func recentReversed(history []float64, n int) []float64 {
	window := make([]float64, n)
	last := len(history) - 1
	for i := 0; i < n; i++ {
		window[i] = history[last-i]
	}
	return window
}

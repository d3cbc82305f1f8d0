package overload

import (
	"github.com/uber-go/tally/v4"
)

// Metrics contains the counters emitted by the overload detectors.
type Metrics struct {
	// Evaluations counts primary-path decisions.
	Evaluations tally.Counter
	// Overloaded counts primary-path decisions that found the host over-utilized.
	Overloaded tally.Counter
	// InvalidCapacity counts decisions abandoned because of an unusable host capacity.
	InvalidCapacity tally.Counter

	// FallbackInsufficientHistory counts delegations caused by a short history.
	FallbackInsufficientHistory tally.Counter
	// FallbackRegressionFailure counts delegations caused by a failed trend fit.
	FallbackRegressionFailure tally.Counter
}

// NewMetrics returns a new Metrics struct with all metrics rooted below the given scope.
func NewMetrics(scope tally.Scope) *Metrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	overloadScope := scope.SubScope("overload")
	fallbackScope := overloadScope.SubScope("fallback")

	return &Metrics{
		Evaluations:     overloadScope.Counter("evaluations"),
		Overloaded:      overloadScope.Counter("overloaded"),
		InvalidCapacity: overloadScope.Counter("invalid_capacity"),

		FallbackInsufficientHistory: fallbackScope.Tagged(map[string]string{"reason": "insufficient_history"}).Counter("delegations"),
		FallbackRegressionFailure:   fallbackScope.Tagged(map[string]string{"reason": "regression_failure"}).Counter("delegations"),
	}
}

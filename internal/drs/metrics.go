package drs

import (
	"github.com/uber-go/tally/v4"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// Metrics contains the counters emitted by the migration planner.
type Metrics struct {
	Analyses  tally.Counter
	Unplaced  tally.Counter
	Truncated tally.Counter

	scope tally.Scope
}

// NewMetrics returns a new Metrics struct with all metrics rooted below the given scope.
func NewMetrics(scope tally.Scope) *Metrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	drsScope := scope.SubScope("drs")

	return &Metrics{
		Analyses:  drsScope.Counter("analyses"),
		Unplaced:  drsScope.Counter("unplaced"),
		Truncated: drsScope.Counter("truncated"),
		scope:     drsScope,
	}
}

func (m *Metrics) recommended(priority domain.MigrationPriority) tally.Counter {
	return m.scope.Tagged(map[string]string{"priority": string(priority)}).Counter("recommendations")
}

package placement

import (
	"github.com/uber-go/tally/v4"
)

// Metrics contains the counters emitted by the placement selector.
type Metrics struct {
	// PlacedActive counts VMs assigned to an already active host.
	PlacedActive tally.Counter
	// PlacedInactive counts VMs that required waking an idle host.
	PlacedInactive tally.Counter
	// NoSuitableHost counts searches that found no host.
	NoSuitableHost tally.Counter
	// RejectedOverload counts candidate hosts skipped because the VM would overload them.
	RejectedOverload tally.Counter
}

// NewMetrics returns a new Metrics struct with all metrics rooted below the given scope.
func NewMetrics(scope tally.Scope) *Metrics {
	if scope == nil {
		scope = tally.NoopScope
	}
	placementScope := scope.SubScope("placement")

	return &Metrics{
		PlacedActive:     placementScope.Tagged(map[string]string{"target": "active"}).Counter("placed"),
		PlacedInactive:   placementScope.Tagged(map[string]string{"target": "inactive"}).Counter("placed"),
		NoSuitableHost:   placementScope.Counter("no_suitable_host"),
		RejectedOverload: placementScope.Counter("rejected_overload"),
	}
}

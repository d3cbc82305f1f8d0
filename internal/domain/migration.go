package domain

import "time"

// MigrationPriority represents the urgency of a migration recommendation.
type MigrationPriority string

const (
	MigrationPriorityCritical MigrationPriority = "CRITICAL"
	MigrationPriorityHigh     MigrationPriority = "HIGH"
	MigrationPriorityMedium   MigrationPriority = "MEDIUM"
	MigrationPriorityLow      MigrationPriority = "LOW"
)

// MigrationRecommendation proposes moving a VM off an over-utilized host.
// The simulator decides whether and when to execute it.
type MigrationRecommendation struct {
	ID           string            `json:"id"`
	Priority     MigrationPriority `json:"priority"`
	Reason       string            `json:"reason"`
	VMID         string            `json:"vm_id"`
	SourceHostID string            `json:"source_host_id"`
	TargetHostID string            `json:"target_host_id"`

	// SourceDemand is the source host's Σ(mean+σ) over its capacity.
	SourceDemand float64 `json:"source_demand"`

	// EstimatedDuration is the worst-case migration time of the source host.
	EstimatedDuration time.Duration `json:"estimated_duration"`

	// SimulationTime is the simulator clock at which the plan was made.
	SimulationTime float64 `json:"simulation_time"`
}

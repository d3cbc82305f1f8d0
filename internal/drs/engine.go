// Package drs plans VM migrations off over-utilized hosts.
package drs

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/overload"
)

// Allocator judges hosts and places VMs.
type Allocator interface {
	OverUtilizedHosts() ([]domain.Host, error)
	FindHostForVM(vm domain.VM, excluded domain.HostSet) domain.Host
}

// VMSelector chooses which VMs to move off an over-utilized host.
type VMSelector interface {
	VMsToMigrate(host domain.Host) []domain.VM
}

// Config holds the migration planning configuration.
type Config struct {
	// MaxRecommendations caps the size of one plan. Zero means unlimited.
	MaxRecommendations int `mapstructure:"max_recommendations"`
}

// Engine builds migration plans from the allocation policy's decisions. It never
// executes a migration.
type Engine struct {
	config    Config
	allocator Allocator
	selector  VMSelector
	metrics   *Metrics
	logger    *zap.Logger
}

// NewEngine creates a new migration planning engine.
func NewEngine(
	cfg Config,
	allocator Allocator,
	selector VMSelector,
	scope tally.Scope,
	logger *zap.Logger,
) (*Engine, error) {
	if allocator == nil || selector == nil {
		return nil, fmt.Errorf("%w: migration planning needs an allocator and a VM selector", domain.ErrInvalidConfig)
	}
	if cfg.MaxRecommendations < 0 {
		return nil, fmt.Errorf("%w: max_recommendations must not be negative, got %d",
			domain.ErrInvalidConfig, cfg.MaxRecommendations)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config:    cfg,
		allocator: allocator,
		selector:  selector,
		metrics:   NewMetrics(scope),
		logger:    logger.With(zap.String("component", "drs")),
	}, nil
}

type overloadedHost struct {
	host   domain.Host
	demand float64
}

// Analyze returns the migrations that would relieve the currently over-utilized hosts.
// Over-utilized hosts are never chosen as targets. Recommendations are ordered by source
// demand, highest first. Hosts the policy could not judge are reported in the error,
// alongside the plan for the others.
func (e *Engine) Analyze(now float64) ([]*domain.MigrationRecommendation, error) {
	e.metrics.Analyses.Inc(1)
	start := time.Now()

	over, scanErr := e.allocator.OverUtilizedHosts()
	if scanErr != nil {
		e.logger.Warn("Some hosts could not be judged", zap.Error(scanErr))
	}
	if len(over) == 0 {
		return nil, scanErr
	}

	excluded := domain.NewHostSet(over...)

	sources := make([]overloadedHost, 0, len(over))
	for _, host := range over {
		sources = append(sources, overloadedHost{host: host, demand: sourceDemand(host)})
	}

	// Sort by demand (highest first)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].demand > sources[j].demand
	})

	var recommendations []*domain.MigrationRecommendation
	for _, source := range sources {
		vms := e.selector.VMsToMigrate(source.host)
		if len(vms) == 0 {
			e.logger.Debug("No VM selected for migration", zap.String("host_id", source.host.ID()))
			continue
		}

		duration := e.estimateDuration(source.host)
		priority := calculatePriority(source.demand)

		for _, vm := range vms {
			if e.config.MaxRecommendations > 0 && len(recommendations) >= e.config.MaxRecommendations {
				e.metrics.Truncated.Inc(1)
				return recommendations, scanErr
			}

			target := e.allocator.FindHostForVM(vm, excluded)
			if target == nil {
				e.metrics.Unplaced.Inc(1)
				e.logger.Debug("No target host for VM",
					zap.String("vm_id", vm.ID()),
					zap.String("source_host", source.host.ID()),
				)
				continue
			}

			rec := &domain.MigrationRecommendation{
				ID:                uuid.NewString(),
				Priority:          priority,
				Reason:            generateReason(source),
				VMID:              vm.ID(),
				SourceHostID:      source.host.ID(),
				TargetHostID:      target.ID(),
				SourceDemand:      source.demand,
				EstimatedDuration: duration,
				SimulationTime:    now,
			}
			recommendations = append(recommendations, rec)
			e.metrics.recommended(priority).Inc(1)

			e.logger.Debug("Migration recommended",
				zap.String("id", rec.ID),
				zap.String("priority", string(rec.Priority)),
				zap.String("vm_id", rec.VMID),
				zap.String("source_host", rec.SourceHostID),
				zap.String("target_host", rec.TargetHostID),
				zap.String("reason", rec.Reason),
			)
		}
	}

	e.logger.Debug("Migration analysis complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("overloaded_hosts", len(sources)),
		zap.Int("recommendations", len(recommendations)),
	)

	return recommendations, scanErr
}

func (e *Engine) estimateDuration(host domain.Host) time.Duration {
	seconds, err := overload.MaxMigrationTime(host)
	if err != nil {
		e.logger.Debug("Cannot estimate migration time", zap.String("host_id", host.ID()), zap.Error(err))
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// sourceDemand returns the host's statistical demand as a fraction of its capacity.
func sourceDemand(host domain.Host) float64 {
	total := host.TotalMips()
	if total <= 0 {
		return 0
	}
	return overload.StatisticalDemand(host.VMs()) / total
}

// calculatePriority determines recommendation priority based on demand.
func calculatePriority(demand float64) domain.MigrationPriority {
	switch {
	case demand >= 1.5:
		return domain.MigrationPriorityCritical
	case demand >= 1.25:
		return domain.MigrationPriorityHigh
	case demand >= 1.1:
		return domain.MigrationPriorityMedium
	default:
		return domain.MigrationPriorityLow
	}
}

// generateReason creates a human-readable reason for the recommendation.
func generateReason(source overloadedHost) string {
	if source.demand >= 1 {
		return fmt.Sprintf("Host %s is overloaded (demand %.1f%% of capacity)", source.host.ID(), source.demand*100)
	}
	return fmt.Sprintf("Host %s was judged over-utilized by the fallback detector (demand %.1f%% of capacity)",
		source.host.ID(), source.demand*100)
}

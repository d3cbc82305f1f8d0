// Package simulation drives the allocation policy over an in-memory datacenter with a
// synthetic workload.
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/config"
	"github.com/limiquantix/vmpolicy/internal/datacenter"
	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/drs"
	"github.com/limiquantix/vmpolicy/internal/history"
	"github.com/limiquantix/vmpolicy/internal/overload"
	"github.com/limiquantix/vmpolicy/internal/policy"
)

// Report summarizes a simulation run.
type Report struct {
	Ticks            int `json:"ticks"`
	Placed           int `json:"placed"`
	Unplaced         int `json:"unplaced"`
	Migrations       int `json:"migrations"`
	FailedMigrations int `json:"failed_migrations"`

	Recommendations []*domain.MigrationRecommendation `json:"recommendations"`
}

// Runner advances the datacenter one scheduling interval at a time, places waiting
// VMs and applies the migration plans.
type Runner struct {
	config *config.Config

	dc      *datacenter.Datacenter
	vms     []*datacenter.VM
	pending []*datacenter.VM

	store  *history.Store
	policy *policy.Policy
	engine *drs.Engine
	rng    *rand.Rand
	tick   int
	logger *zap.Logger
}

// NewFallback creates the fallback detector described by the configuration.
func NewFallback(cfg config.FallbackConfig, logger *zap.Logger) (overload.Detector, error) {
	static, err := overload.NewStaticThreshold(cfg.UtilizationThreshold)
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case config.FallbackStatic:
		return static, nil
	case config.FallbackMAD:
		mad, err := overload.NewMedianAbsoluteDeviation(cfg.SafetyParameter, static, logger)
		if err != nil {
			return nil, err
		}
		return mad, nil
	default:
		return nil, fmt.Errorf("%w: unknown fallback kind %q", domain.ErrInvalidConfig, cfg.Kind)
	}
}

// New builds the datacenter and the policy from the configuration. VMs start unplaced.
func New(cfg *config.Config, scope tally.Scope, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dc := datacenter.New()
	for _, spec := range cfg.Simulation.Hosts {
		host, err := datacenter.NewHost(spec)
		if err != nil {
			return nil, fmt.Errorf("failed to create host %q: %w", spec.ID, err)
		}
		if err := dc.AddHost(host); err != nil {
			return nil, fmt.Errorf("failed to add host %s: %w", host.ID(), err)
		}
	}

	seed := uint64(cfg.Simulation.Seed)
	rng := rand.New(rand.NewPCG(seed, seed))

	vms := make([]*datacenter.VM, 0, len(cfg.Simulation.VMs))
	for _, spec := range cfg.Simulation.VMs {
		vm, err := datacenter.NewVM(spec)
		if err != nil {
			return nil, fmt.Errorf("failed to create VM %q: %w", spec.ID, err)
		}
		initial := cfg.Simulation.InitialUtilization
		if initial == 0 {
			initial = 0.2 + 0.6*rng.Float64()
		}
		vm.SetUtilization(initial)
		vms = append(vms, vm)
	}

	fallback, err := NewFallback(cfg.Fallback, logger)
	if err != nil {
		return nil, err
	}

	store := history.NewStore(dc.Now)
	p, err := policy.New(dc, MinimumMigrationTime{}, cfg.Policy, fallback, store, scope, logger)
	if err != nil {
		return nil, err
	}

	engine, err := drs.NewEngine(cfg.DRS, p, p.VMSelection(), scope, logger)
	if err != nil {
		return nil, err
	}

	return &Runner{
		config:  cfg,
		dc:      dc,
		vms:     vms,
		pending: append([]*datacenter.VM(nil), vms...),
		store:   store,
		policy:  p,
		engine:  engine,
		rng:     rng,
		logger:  logger.With(zap.String("component", "simulation")),
	}, nil
}

// Run executes the configured number of ticks.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	for i := 0; i < r.config.Simulation.Ticks; i++ {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		r.Step(report)
	}
	report.Unplaced = len(r.pending)
	return report, nil
}

// Step advances the simulation by one scheduling interval.
func (r *Runner) Step(report *Report) {
	if r.tick > 0 {
		r.perturb()
	}
	r.tick++
	report.Placed += r.placePending()

	r.dc.Advance(r.config.Policy.SchedulingInterval)
	report.Ticks++

	recs, err := r.engine.Analyze(r.dc.Now())
	if err != nil {
		r.logger.Warn("Migration analysis incomplete", zap.Float64("time", r.dc.Now()), zap.Error(err))
	}
	report.Recommendations = append(report.Recommendations, recs...)

	for _, rec := range recs {
		if err := r.dc.Migrate(rec.VMID, rec.TargetHostID); err != nil {
			report.FailedMigrations++
			r.logger.Debug("Migration failed",
				zap.String("vm_id", rec.VMID),
				zap.String("target_host", rec.TargetHostID),
				zap.Error(err),
			)
			continue
		}
		report.Migrations++
	}
}

// perturb moves every VM's utilization by a bounded random step.
func (r *Runner) perturb() {
	volatility := r.config.Simulation.Volatility
	if volatility == 0 {
		return
	}
	for _, vm := range r.vms {
		vm.SetUtilization(vm.Utilization() + (2*r.rng.Float64()-1)*volatility)
	}
}

func (r *Runner) placePending() int {
	var (
		placed    int
		remaining []*datacenter.VM
	)
	for _, vm := range r.pending {
		host := r.policy.FindHostForVM(vm, nil)
		if host == nil {
			remaining = append(remaining, vm)
			continue
		}
		if err := r.dc.Place(vm, host.ID()); err != nil {
			r.logger.Warn("Failed to place VM", zap.String("vm_id", vm.ID()), zap.Error(err))
			remaining = append(remaining, vm)
			continue
		}
		placed++
	}
	r.pending = remaining
	return placed
}

// Datacenter returns the simulated datacenter.
func (r *Runner) Datacenter() *datacenter.Datacenter {
	return r.dc
}

// History returns the recorded utilization predictions.
func (r *Runner) History() *history.Store {
	return r.store
}

// Policy returns the allocation policy under test.
func (r *Runner) Policy() *policy.Policy {
	return r.policy
}

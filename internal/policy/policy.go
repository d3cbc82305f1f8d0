package policy

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/history"
	"github.com/limiquantix/vmpolicy/internal/overload"
	"github.com/limiquantix/vmpolicy/internal/placement"
	"github.com/limiquantix/vmpolicy/internal/regression"
)

// VMSelector chooses which VMs to migrate off an over-utilized host. It is supplied by
// the simulator; the policy only hands it over to migration planning.
type VMSelector interface {
	VMsToMigrate(host domain.Host) []domain.VM
}

// Policy is the local regression VM allocation policy.
//
// Overload decisions record a regression-based utilization prediction per host but are
// taken on the per-VM mean plus one standard deviation; see overload.LocalRegression.
type Policy struct {
	config      Config
	hosts       placement.HostRepository
	vmSelection VMSelector
	sink        overload.HistorySink
	detector    *overload.LocalRegression
	selector    *placement.Selector
	logger      *zap.Logger
}

// New creates the policy over the managed hosts.
//
// The fallback detector judges hosts whose history is too short or cannot be fitted and
// is required. A nil sink records predictions in an in-memory history.Store, a nil
// scope disables metrics. cfg.UtilizationThreshold is ignored.
func New(
	hosts placement.HostRepository,
	vmSelection VMSelector,
	cfg Config,
	fallback overload.Detector,
	sink overload.HistorySink,
	scope tally.Scope,
	logger *zap.Logger,
) (*Policy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hosts == nil {
		return nil, fmt.Errorf("%w: host repository is required", domain.ErrInvalidConfig)
	}
	if sink == nil {
		sink = history.NewStore(nil)
	}

	detector, err := overload.NewLocalRegression(cfg.detectorConfig(), regression.Loess, fallback, sink, scope, logger)
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("component", "policy"))
	logger.Debug("Created local regression policy",
		zap.Float64("safety_parameter", cfg.SafetyParameter),
		zap.Float64("scheduling_interval", cfg.SchedulingInterval),
		zap.Float64("ignored_utilization_threshold", cfg.UtilizationThreshold),
	)

	return &Policy{
		config:      cfg,
		hosts:       hosts,
		vmSelection: vmSelection,
		sink:        sink,
		detector:    detector,
		selector:    placement.New(hosts, detector.WithoutRecording(), scope, logger),
		logger:      logger,
	}, nil
}

// IsOverUtilized reports whether the host is over-utilized.
func (p *Policy) IsOverUtilized(host domain.Host) (bool, error) {
	return p.detector.IsOverUtilized(host)
}

// FindHostForVM returns the host the VM should be placed on, or nil if none is suitable.
func (p *Policy) FindHostForVM(vm domain.VM, excluded domain.HostSet) domain.Host {
	return p.selector.FindHostForVM(vm, excluded)
}

// OverUtilizedHosts judges every managed host once and returns the over-utilized ones.
// Hosts that cannot be judged are skipped and reported in the returned error.
func (p *Policy) OverUtilizedHosts() ([]domain.Host, error) {
	var (
		overUtilized []domain.Host
		result       *multierror.Error
	)
	for _, host := range p.hosts.Hosts() {
		over, err := p.IsOverUtilized(host)
		if err != nil {
			p.logger.Warn("Cannot judge host", zap.String("host_id", host.ID()), zap.Error(err))
			result = multierror.Append(result, err)
			continue
		}
		if over {
			overUtilized = append(overUtilized, host)
		}
	}
	return overUtilized, result.ErrorOrNil()
}

// Hosts returns the managed hosts.
func (p *Policy) Hosts() []domain.Host {
	return p.hosts.Hosts()
}

// Config returns the policy configuration.
func (p *Policy) Config() Config {
	return p.config
}

// VMSelection returns the VM selection policy supplied at construction.
func (p *Policy) VMSelection() VMSelector {
	return p.vmSelection
}

// History returns the sink receiving the predicted utilizations.
func (p *Policy) History() overload.HistorySink {
	return p.sink
}

// Detector returns the overload detector.
func (p *Policy) Detector() *overload.LocalRegression {
	return p.detector
}

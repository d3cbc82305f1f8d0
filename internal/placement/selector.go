// Package placement implements best-fit VM placement. It determines which host a VM
// should be assigned to, preferring the tightest active host that stays below overload
// and waking an idle host only when no active host qualifies.
package placement

import (
	"math"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/overload"
)

// Selector picks target hosts for VMs.
type Selector struct {
	hosts    HostRepository
	detector overload.Detector
	metrics  *Metrics
	logger   *zap.Logger
}

// New creates a Selector. The detector judges hypothetical post-placement host states
// and should not record history.
func New(hosts HostRepository, detector overload.Detector, scope tally.Scope, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		hosts:    hosts,
		detector: detector,
		metrics:  NewMetrics(scope),
		logger:   logger.With(zap.String("component", "placement")),
	}
}

// FindHostForVM returns the host the VM should be placed on, or nil if no host is
// suitable. Hosts in excluded are never returned.
//
// Among active hosts that can accept the VM without becoming over-utilized, the one
// with the least available MIPS wins, ties broken by the least available RAM. An idle
// host, again the one with the least available MIPS, is returned only when no active
// host qualifies.
func (s *Selector) FindHostForVM(vm domain.VM, excluded domain.HostSet) domain.Host {
	logger := s.logger.With(
		zap.String("vm_id", vm.ID()),
		zap.Float64("requested_mips", vm.CurrentMips()),
		zap.Int64("requested_ram_mb", vm.RAM()),
	)

	var bestActive, bestInactive domain.Host
	minActiveMips, minInactiveMips := math.MaxFloat64, math.MaxFloat64
	var candidates, rejectedAfterPlacement int

	for _, host := range s.hosts.Hosts() {
		if excluded.Contains(host) {
			continue
		}
		if !host.CanAccept(vm) {
			continue
		}

		active := domain.IsActive(host)
		if active && s.overUtilizedAfter(host, vm, logger) {
			rejectedAfterPlacement++
			continue
		}
		candidates++

		available := host.AvailableMips()
		if !active {
			if available < minInactiveMips {
				minInactiveMips = available
				bestInactive = host
			}
			continue
		}

		if available < minActiveMips {
			minActiveMips = available
			bestActive = host
		} else if available == minActiveMips && bestActive != nil &&
			host.RAM().Available() < bestActive.RAM().Available() {
			bestActive = host
		}
	}

	s.metrics.RejectedOverload.Inc(int64(rejectedAfterPlacement))

	switch {
	case bestActive != nil:
		s.metrics.PlacedActive.Inc(1)
		logger.Debug("Selected active host",
			zap.String("host_id", bestActive.ID()),
			zap.Float64("available_mips", minActiveMips),
			zap.Int("candidates", candidates),
		)
		return bestActive
	case bestInactive != nil:
		s.metrics.PlacedInactive.Inc(1)
		logger.Debug("Selected inactive host",
			zap.String("host_id", bestInactive.ID()),
			zap.Float64("available_mips", minInactiveMips),
			zap.Int("rejected_after_placement", rejectedAfterPlacement),
		)
		return bestInactive
	default:
		s.metrics.NoSuitableHost.Inc(1)
		logger.Debug("No suitable host", zap.Int("rejected_after_placement", rejectedAfterPlacement))
		return nil
	}
}

// overUtilizedAfter judges the host as it would be with the VM placed on it. A host
// that cannot be judged is treated as over-utilized.
func (s *Selector) overUtilizedAfter(host domain.Host, vm domain.VM, logger *zap.Logger) bool {
	over, err := s.detector.IsOverUtilized(WithVM(host, vm))
	if err != nil {
		logger.Warn("Cannot judge host after placement", zap.String("host_id", host.ID()), zap.Error(err))
		return true
	}
	return over
}

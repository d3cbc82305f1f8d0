// Package overload decides whether a host is over-utilized and should shed load by
// migrating VMs away.
package overload

import (
	"fmt"
	"math"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// Detector decides whether a host is over-utilized.
type Detector interface {
	IsOverUtilized(host domain.Host) (bool, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(host domain.Host) (bool, error)

// IsOverUtilized calls f(host).
func (f DetectorFunc) IsOverUtilized(host domain.Host) (bool, error) {
	return f(host)
}

// HistorySink receives the predicted utilization computed for a host.
type HistorySink interface {
	Record(host domain.Host, predicted float64)
}

// HistorySinkFunc adapts a function to the HistorySink interface.
type HistorySinkFunc func(host domain.Host, predicted float64)

// Record calls f(host, predicted).
func (f HistorySinkFunc) Record(host domain.Host, predicted float64) {
	f(host, predicted)
}

// StatisticalDemand returns Σ(mean + σ) of the VMs' CPU demand, in MIPS.
// A non-positive variance contributes no deviation.
func StatisticalDemand(vms []domain.VM) float64 {
	var total float64
	for _, vm := range vms {
		total += vm.UtilizationMean()
		if variance := vm.UtilizationVariance(); variance > 0 {
			total += math.Sqrt(variance)
		}
	}
	return total
}

// RequestedUtilization returns the CPU currently requested by the host's VMs as a
// fraction of its capacity.
func RequestedUtilization(host domain.Host) (float64, error) {
	total := host.TotalMips()
	if total <= 0 || math.IsNaN(total) {
		return 0, fmt.Errorf("%w: host %s total MIPS %v", domain.ErrInvalidCapacity, host.ID(), total)
	}

	var requested float64
	for _, vm := range host.VMs() {
		requested += vm.CurrentMips()
	}
	return requested / total, nil
}

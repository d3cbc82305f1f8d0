package overload

import (
	"fmt"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// BandwidthDivisor converts a bandwidth in bits per second into the MB per second
// available to a migration: 8000 Kb per MB, and half of the link reserved for
// production traffic.
const BandwidthDivisor = 2 * 8000

// MaxMigrationTime estimates the seconds needed to migrate the largest VM on the host.
func MaxMigrationTime(host domain.Host) (float64, error) {
	maxRAM, ok := domain.MaxRAM(host.VMs())
	if !ok {
		return 0, fmt.Errorf("%w: host %s", domain.ErrNoVMs, host.ID())
	}

	bw := host.Bandwidth()
	if bw <= 0 {
		return 0, fmt.Errorf("%w: host %s bandwidth %d", domain.ErrInvalidCapacity, host.ID(), bw)
	}

	return float64(maxRAM) / (float64(bw) / BandwidthDivisor), nil
}

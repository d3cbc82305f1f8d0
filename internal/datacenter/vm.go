// Package datacenter provides in-memory hosts and VMs implementing the domain contracts,
// used to drive the placement policy in tests and in the simulation CLI.
package datacenter

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// VMHistoryLength is the number of utilization samples the running statistics cover.
const VMHistoryLength = 30

// Ensure VM implements domain.VM
var _ domain.VM = (*VM)(nil)

// VMSpec describes a VM to create.
type VMSpec struct {
	ID    string  `mapstructure:"id"`
	Mips  float64 `mapstructure:"mips"`
	RAMMB int64   `mapstructure:"ram_mb"`
}

// VM is a virtual machine whose CPU demand is a fraction of its MIPS capacity.
type VM struct {
	id    string
	mips  float64
	ramMB int64

	utilization float64
	history     []float64 // newest last
}

// NewVM creates a VM with zero utilization. An empty ID is replaced by a random one.
func NewVM(spec VMSpec) (*VM, error) {
	if spec.Mips <= 0 || spec.RAMMB <= 0 {
		return nil, fmt.Errorf("%w: VM needs positive MIPS and RAM, got %v MIPS and %d MB",
			domain.ErrInvalidCapacity, spec.Mips, spec.RAMMB)
	}
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &VM{id: id, mips: spec.Mips, ramMB: spec.RAMMB}, nil
}

func (v *VM) ID() string { return v.id }

// Mips returns the VM's CPU capacity.
func (v *VM) Mips() float64 { return v.mips }

func (v *VM) RAM() int64 { return v.ramMB }

// CurrentMips returns the CPU the VM currently requests.
func (v *VM) CurrentMips() float64 {
	return v.utilization * v.mips
}

// Utilization returns the current fraction of the VM's capacity in use.
func (v *VM) Utilization() float64 {
	return v.utilization
}

// SetUtilization records a new utilization sample, clamped to [0, 1].
func (v *VM) SetUtilization(u float64) {
	u = math.Max(0, math.Min(1, u))
	v.utilization = u
	v.history = append(v.history, u)
	if len(v.history) > VMHistoryLength {
		v.history = v.history[len(v.history)-VMHistoryLength:]
	}
}

// UtilizationMean returns the mean demand over the recent samples, in MIPS.
func (v *VM) UtilizationMean() float64 {
	mean, err := stats.Mean(v.history)
	if err != nil {
		return 0
	}
	return mean * v.mips
}

// UtilizationVariance returns the population variance of the demand over the recent
// samples, in MIPS².
func (v *VM) UtilizationVariance() float64 {
	demand := make([]float64, len(v.history))
	for i, u := range v.history {
		demand[i] = u * v.mips
	}
	variance, err := stats.PopulationVariance(demand)
	if err != nil {
		return 0
	}
	return variance
}

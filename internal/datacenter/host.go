package datacenter

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// HostHistoryLength is the number of utilization samples a host keeps.
const HostHistoryLength = 30

// Ensure Host implements domain.Host
var _ domain.Host = (*Host)(nil)

// HostSpec describes a physical host to create.
type HostSpec struct {
	ID           string  `mapstructure:"id"`
	Mips         float64 `mapstructure:"mips"`
	RAMMB        int64   `mapstructure:"ram_mb"`
	BandwidthBps int64   `mapstructure:"bandwidth_bps"`
}

// Host is a physical machine running VMs.
type Host struct {
	id           string
	mips         float64
	ramMB        int64
	bandwidthBps int64

	vms     []*VM
	history []float64 // newest last
}

// NewHost creates an empty host. An empty ID is replaced by a random one.
func NewHost(spec HostSpec) (*Host, error) {
	if spec.Mips <= 0 || spec.RAMMB <= 0 || spec.BandwidthBps <= 0 {
		return nil, fmt.Errorf("%w: host needs positive MIPS, RAM and bandwidth", domain.ErrInvalidCapacity)
	}
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Host{
		id:           id,
		mips:         spec.Mips,
		ramMB:        spec.RAMMB,
		bandwidthBps: spec.BandwidthBps,
	}, nil
}

func (h *Host) ID() string { return h.id }

func (h *Host) TotalMips() float64 { return h.mips }

func (h *Host) AvailableMips() float64 {
	return h.mips - h.UsedMips()
}

// UsedMips returns the CPU currently requested by the resident VMs.
func (h *Host) UsedMips() float64 {
	var used float64
	for _, vm := range h.vms {
		used += vm.CurrentMips()
	}
	return used
}

func (h *Host) Bandwidth() int64 { return h.bandwidthBps }

// VMs returns the resident VMs in placement order.
func (h *Host) VMs() []domain.VM {
	vms := make([]domain.VM, len(h.vms))
	for i, vm := range h.vms {
		vms[i] = vm
	}
	return vms
}

// UtilizationHistory returns a copy of the recorded utilization, oldest first.
func (h *Host) UtilizationHistory() []float64 {
	return append([]float64(nil), h.history...)
}

// CanAccept reports whether the host has enough free CPU and RAM for the VM.
func (h *Host) CanAccept(vm domain.VM) bool {
	return h.AvailableMips() >= vm.CurrentMips() && h.availableRAM() >= vm.RAM()
}

func (h *Host) RAM() domain.RAMProvisioner {
	return ramProvisioner{host: h}
}

// Place makes the VM resident on the host.
func (h *Host) Place(vm *VM) error {
	for _, existing := range h.vms {
		if existing.ID() == vm.ID() {
			return domain.ErrAlreadyExists
		}
	}
	if !h.CanAccept(vm) {
		return fmt.Errorf("%w: host %s cannot accept VM %s", domain.ErrInvalidCapacity, h.id, vm.ID())
	}
	h.vms = append(h.vms, vm)
	return nil
}

// Remove evicts a VM from the host.
func (h *Host) Remove(vmID string) (*VM, error) {
	for i, vm := range h.vms {
		if vm.ID() == vmID {
			h.vms = append(h.vms[:i], h.vms[i+1:]...)
			return vm, nil
		}
	}
	return nil, domain.ErrNotFound
}

// RecordUtilization appends the current CPU utilization to the host history.
func (h *Host) RecordUtilization() {
	h.history = append(h.history, h.UsedMips()/h.mips)
	if len(h.history) > HostHistoryLength {
		h.history = h.history[len(h.history)-HostHistoryLength:]
	}
}

func (h *Host) availableRAM() int64 {
	available := h.ramMB
	for _, vm := range h.vms {
		available -= vm.RAM()
	}
	return available
}

type ramProvisioner struct {
	host *Host
}

func (r ramProvisioner) Available() int64 {
	return r.host.availableRAM()
}

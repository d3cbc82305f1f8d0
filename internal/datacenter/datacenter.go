package datacenter

import (
	"fmt"
	"sync"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

// Datacenter is an in-memory set of hosts with a simulation clock.
type Datacenter struct {
	mu    sync.RWMutex
	now   float64
	hosts []*Host
	index map[string]*Host
	owner map[string]*Host // VM ID -> host
}

// New creates an empty datacenter at time zero.
func New() *Datacenter {
	return &Datacenter{
		index: make(map[string]*Host),
		owner: make(map[string]*Host),
	}
}

// AddHost registers a host.
func (d *Datacenter) AddHost(h *Host) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[h.ID()]; ok {
		return domain.ErrAlreadyExists
	}
	d.hosts = append(d.hosts, h)
	d.index[h.ID()] = h
	for _, vm := range h.vms {
		d.owner[vm.ID()] = h
	}
	return nil
}

// Host retrieves a host by ID.
func (d *Datacenter) Host(id string) (*Host, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h, ok := d.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return h, nil
}

// Hosts returns every host in registration order.
func (d *Datacenter) Hosts() []domain.Host {
	d.mu.RLock()
	defer d.mu.RUnlock()

	hosts := make([]domain.Host, len(d.hosts))
	for i, h := range d.hosts {
		hosts[i] = h
	}
	return hosts
}

// HostOf returns the host a VM is resident on.
func (d *Datacenter) HostOf(vmID string) (*Host, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	h, ok := d.owner[vmID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return h, nil
}

// Place makes the VM resident on the host with the given ID.
func (d *Datacenter) Place(vm *VM, hostID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.owner[vm.ID()]; ok {
		return fmt.Errorf("VM %s: %w", vm.ID(), domain.ErrAlreadyExists)
	}
	h, ok := d.index[hostID]
	if !ok {
		return fmt.Errorf("host %s: %w", hostID, domain.ErrNotFound)
	}
	if err := h.Place(vm); err != nil {
		return err
	}
	d.owner[vm.ID()] = h
	return nil
}

// VMs returns every resident VM.
func (d *Datacenter) VMs() []*VM {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var vms []*VM
	for _, h := range d.hosts {
		vms = append(vms, h.vms...)
	}
	return vms
}

// Now returns the simulation time in seconds.
func (d *Datacenter) Now() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.now
}

// Advance moves the clock forward and appends the current utilization of every host
// to its history.
func (d *Datacenter) Advance(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.now += seconds
	for _, h := range d.hosts {
		h.RecordUtilization()
	}
}

// Migrate moves a resident VM to another host. The VM stays on its source host if the
// target cannot accept it.
func (d *Datacenter) Migrate(vmID, targetHostID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	source, ok := d.owner[vmID]
	if !ok {
		return fmt.Errorf("VM %s: %w", vmID, domain.ErrNotFound)
	}
	target, ok := d.index[targetHostID]
	if !ok {
		return fmt.Errorf("host %s: %w", targetHostID, domain.ErrNotFound)
	}
	if source == target {
		return nil
	}

	vm, err := source.Remove(vmID)
	if err != nil {
		return err
	}
	if err := target.Place(vm); err != nil {
		source.vms = append(source.vms, vm)
		return err
	}
	d.owner[vmID] = target
	return nil
}

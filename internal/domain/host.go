package domain

// Host is a physical machine as seen by the placement policy. The simulator owns the
// state; the policy only reads it.
type Host interface {
	// ID uniquely identifies the host within the simulation.
	ID() string

	// TotalMips is the CPU capacity of the host.
	TotalMips() float64

	// AvailableMips is the capacity not yet allocated to VMs.
	AvailableMips() float64

	// UsedMips is the capacity currently consumed by resident VMs.
	// A host with zero used MIPS is considered inactive.
	UsedMips() float64

	// Bandwidth is the network bandwidth in bits per second.
	Bandwidth() int64

	// VMs returns the resident VMs.
	VMs() []VM

	// UtilizationHistory returns recent CPU utilization fractions, oldest first.
	UtilizationHistory() []float64

	// CanAccept reports whether the host has room for the VM.
	CanAccept(vm VM) bool

	// RAM returns the host's RAM provisioner.
	RAM() RAMProvisioner
}

// RAMProvisioner tracks RAM allocation on a host.
type RAMProvisioner interface {
	// Available returns the unallocated RAM in MB.
	Available() int64
}

// IsActive returns true if the host is currently serving load.
func IsActive(h Host) bool {
	return h.UsedMips() > 0
}

// HostSet is a set of hosts keyed by ID.
type HostSet map[string]struct{}

// NewHostSet creates a set containing the given hosts.
func NewHostSet(hosts ...Host) HostSet {
	s := make(HostSet, len(hosts))
	for _, h := range hosts {
		s.Add(h)
	}
	return s
}

// Add inserts a host into the set.
func (s HostSet) Add(h Host) {
	s[h.ID()] = struct{}{}
}

// Contains returns true if the host is in the set. A nil set contains nothing.
func (s HostSet) Contains(h Host) bool {
	_, ok := s[h.ID()]
	return ok
}

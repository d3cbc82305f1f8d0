package domain

// VM is a virtual machine as seen by the placement policy.
type VM interface {
	// ID uniquely identifies the VM within the simulation.
	ID() string

	// RAM is the configured memory in MB.
	RAM() int64

	// CurrentMips is the CPU the VM currently requests.
	CurrentMips() float64

	// UtilizationMean is the running mean of the VM's CPU demand, in MIPS.
	UtilizationMean() float64

	// UtilizationVariance is the running variance of the VM's CPU demand, in MIPS².
	UtilizationVariance() float64
}

// MaxRAM returns the largest RAM among the VMs, and false if there are none.
func MaxRAM(vms []VM) (int64, bool) {
	if len(vms) == 0 {
		return 0, false
	}
	largest := vms[0].RAM()
	for _, vm := range vms[1:] {
		if ram := vm.RAM(); ram > largest {
			largest = ram
		}
	}
	return largest, true
}

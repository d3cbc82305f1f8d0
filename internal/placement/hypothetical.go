package placement

import (
	"github.com/limiquantix/vmpolicy/internal/domain"
)

// WithVM returns a read-only view of the host as it would be after the VM is placed on
// it. The host itself is not modified.
func WithVM(host domain.Host, vm domain.VM) domain.Host {
	return withVM{Host: host, vm: vm}
}

type withVM struct {
	domain.Host
	vm domain.VM
}

func (h withVM) UsedMips() float64 {
	return h.Host.UsedMips() + h.vm.CurrentMips()
}

func (h withVM) AvailableMips() float64 {
	return h.Host.AvailableMips() - h.vm.CurrentMips()
}

func (h withVM) VMs() []domain.VM {
	resident := h.Host.VMs()
	vms := make([]domain.VM, 0, len(resident)+1)
	vms = append(vms, resident...)
	return append(vms, h.vm)
}

func (h withVM) CanAccept(vm domain.VM) bool {
	return h.AvailableMips() >= vm.CurrentMips() && h.RAM().Available() >= vm.RAM()
}

func (h withVM) RAM() domain.RAMProvisioner {
	return ramAfter{base: h.Host.RAM(), reserved: h.vm.RAM()}
}

type ramAfter struct {
	base     domain.RAMProvisioner
	reserved int64
}

func (r ramAfter) Available() int64 {
	return r.base.Available() - r.reserved
}

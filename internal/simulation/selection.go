package simulation

import (
	"github.com/limiquantix/vmpolicy/internal/domain"
)

// MinimumMigrationTime selects the resident VM with the least RAM, which is the
// fastest to migrate. Ties go to the VM placed first.
type MinimumMigrationTime struct{}

// VMsToMigrate returns at most one VM.
func (MinimumMigrationTime) VMsToMigrate(host domain.Host) []domain.VM {
	var selected domain.VM
	for _, vm := range host.VMs() {
		if selected == nil || vm.RAM() < selected.RAM() {
			selected = vm
		}
	}
	if selected == nil {
		return nil
	}
	return []domain.VM{selected}
}

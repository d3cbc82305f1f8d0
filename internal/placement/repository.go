// Package placement defines the host source consumed by the selector.
package placement

import (
	"github.com/limiquantix/vmpolicy/internal/domain"
)

// HostRepository provides the hosts managed by the policy.
type HostRepository interface {
	// Hosts returns all managed hosts.
	Hosts() []domain.Host
}

// HostList is a fixed list of managed hosts.
type HostList []domain.Host

// Hosts returns the list itself.
func (l HostList) Hosts() []domain.Host {
	return l
}

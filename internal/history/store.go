// Package history keeps the per-host record of predicted utilizations written by the
// overload detectors, for analysis after a simulation run.
package history

import (
	"sort"
	"sync"

	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/overload"
)

// Ensure Store implements overload.HistorySink
var _ overload.HistorySink = (*Store)(nil)

// Clock returns the current simulation time.
type Clock func() float64

// Entry is one recorded decision for a host.
type Entry struct {
	// Time is the simulation time of the decision.
	Time float64 `json:"time"`
	// Utilization is the host's CPU utilization when the decision was taken.
	Utilization float64 `json:"utilization"`
	// Metric is the value computed by the detector, e.g. the predicted utilization.
	Metric float64 `json:"metric"`
}

// Store is an in-memory, append-only history of detector metrics per host.
type Store struct {
	clock Clock

	mu   sync.RWMutex
	data map[string][]Entry
}

// NewStore creates an empty store. A nil clock stamps every entry with time zero.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = func() float64 { return 0 }
	}
	return &Store{
		clock: clock,
		data:  make(map[string][]Entry),
	}
}

// Record appends the metric computed for the host.
func (s *Store) Record(host domain.Host, metric float64) {
	entry := Entry{
		Time:        s.clock(),
		Utilization: currentUtilization(host),
		Metric:      metric,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[host.ID()] = append(s.data[host.ID()], entry)
}

// Entries returns a copy of the host's history, oldest first.
func (s *Store) Entries(hostID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Entry(nil), s.data[hostID]...)
}

// Latest returns the most recent entry of the host.
func (s *Store) Latest(hostID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.data[hostID]
	if len(entries) == 0 {
		return Entry{}, domain.ErrNotFound
	}
	return entries[len(entries)-1], nil
}

// Len returns the number of entries recorded for the host.
func (s *Store) Len(hostID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data[hostID])
}

// HostIDs returns the IDs of all hosts with at least one entry, sorted.
func (s *Store) HostIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset drops all recorded entries.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]Entry)
}

func currentUtilization(host domain.Host) float64 {
	total := host.TotalMips()
	if total <= 0 {
		return 0
	}
	return host.UsedMips() / total
}

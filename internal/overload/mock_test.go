package overload

import (
	"github.com/limiquantix/vmpolicy/internal/domain"
)

// MockVM is a VM with fixed statistics.
type MockVM struct {
	id       string
	ram      int64
	current  float64
	mean     float64
	variance float64
}

func (v *MockVM) ID() string                   { return v.id }
func (v *MockVM) RAM() int64                   { return v.ram }
func (v *MockVM) CurrentMips() float64         { return v.current }
func (v *MockVM) UtilizationMean() float64     { return v.mean }
func (v *MockVM) UtilizationVariance() float64 { return v.variance }

// MockRAM is a RAM provisioner with a fixed amount available.
type MockRAM int64

func (r MockRAM) Available() int64 { return int64(r) }

// MockHost is a host snapshot with fixed state.
type MockHost struct {
	id        string
	totalMips float64
	usedMips  float64
	bandwidth int64
	ram       MockRAM
	vms       []domain.VM
	history   []float64
}

func (h *MockHost) ID() string                    { return h.id }
func (h *MockHost) TotalMips() float64            { return h.totalMips }
func (h *MockHost) AvailableMips() float64        { return h.totalMips - h.usedMips }
func (h *MockHost) UsedMips() float64             { return h.usedMips }
func (h *MockHost) Bandwidth() int64              { return h.bandwidth }
func (h *MockHost) VMs() []domain.VM              { return h.vms }
func (h *MockHost) UtilizationHistory() []float64 { return h.history }
func (h *MockHost) CanAccept(vm domain.VM) bool   { return h.AvailableMips() >= vm.CurrentMips() }
func (h *MockHost) RAM() domain.RAMProvisioner    { return h.ram }

// MockDetector returns a fixed verdict and counts its calls.
type MockDetector struct {
	verdict bool
	err     error
	calls   int
}

func (d *MockDetector) IsOverUtilized(host domain.Host) (bool, error) {
	d.calls++
	return d.verdict, d.err
}

// MockSink stores recorded predictions per host.
type MockSink struct {
	entries map[string][]float64
}

func NewMockSink() *MockSink {
	return &MockSink{entries: make(map[string][]float64)}
}

func (s *MockSink) Record(host domain.Host, predicted float64) {
	s.entries[host.ID()] = append(s.entries[host.ID()], predicted)
}

func (s *MockSink) Count() int {
	n := 0
	for _, e := range s.entries {
		n += len(e)
	}
	return n
}

func risingHistory(n int) []float64 {
	history := make([]float64, n)
	for i := range history {
		history[i] = 0.3 + 0.02*float64(i)
	}
	return history
}

func constantHistory(n int, value float64) []float64 {
	history := make([]float64, n)
	for i := range history {
		history[i] = value
	}
	return history
}

package overload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/domain"
)

func TestStaticThreshold(t *testing.T) {
	detector, err := NewStaticThreshold(0.8)
	require.NoError(t, err)
	assert.Equal(t, 0.8, detector.Threshold())

	host := &MockHost{
		id:        "host-1",
		totalMips: 1000,
		vms: []domain.VM{
			&MockVM{id: "vm-1", current: 500},
			&MockVM{id: "vm-2", current: 250},
		},
	}

	over, err := detector.IsOverUtilized(host)
	require.NoError(t, err)
	assert.False(t, over)

	host.vms = append(host.vms, &MockVM{id: "vm-3", current: 100})
	over, err = detector.IsOverUtilized(host)
	require.NoError(t, err)
	assert.True(t, over)
}

func TestStaticThreshold_InvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{0, -0.1, 1.5} {
		_, err := NewStaticThreshold(threshold)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig, "threshold %v", threshold)
	}
}

func TestStaticThreshold_InvalidCapacity(t *testing.T) {
	detector, err := NewStaticThreshold(0.8)
	require.NoError(t, err)

	_, err = detector.IsOverUtilized(&MockHost{id: "host-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
}

func TestMedianAbsoluteDeviation_UpperThreshold(t *testing.T) {
	fallback := &MockDetector{}
	detector, err := NewMedianAbsoluteDeviation(2, fallback, zap.NewNop())
	require.NoError(t, err)

	// Median 0.65, absolute deviations median 0.3.
	history := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.1, 1.2}
	host := &MockHost{
		id:        "host-1",
		totalMips: 1000,
		history:   history,
		vms:       []domain.VM{&MockVM{id: "vm-1", current: 500}},
	}

	upper, err := detector.UpperThreshold(host)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, upper, 1e-9)

	over, err := detector.IsOverUtilized(host)
	require.NoError(t, err)
	assert.True(t, over)
	assert.Zero(t, fallback.calls)

	relaxed, err := NewMedianAbsoluteDeviation(1, fallback, nil)
	require.NoError(t, err)
	over, err = relaxed.IsOverUtilized(host)
	require.NoError(t, err)
	assert.False(t, over)
}

func TestMedianAbsoluteDeviation_ShortHistoryDelegates(t *testing.T) {
	fallback := &MockDetector{verdict: true}
	detector, err := NewMedianAbsoluteDeviation(2.5, fallback, zap.NewNop())
	require.NoError(t, err)

	host := &MockHost{id: "host-1", totalMips: 1000, history: risingHistory(MinMADHistory - 1)}

	_, err = detector.UpperThreshold(host)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)

	over, err := detector.IsOverUtilized(host)
	require.NoError(t, err)
	assert.True(t, over)
	assert.Equal(t, 1, fallback.calls)
}

func TestNewMedianAbsoluteDeviation_ConfigErrors(t *testing.T) {
	_, err := NewMedianAbsoluteDeviation(-1, &MockDetector{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewMedianAbsoluteDeviation(2.5, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestMaxMigrationTime(t *testing.T) {
	host := &MockHost{
		id:        "host-1",
		bandwidth: 32000,
		vms: []domain.VM{
			&MockVM{id: "vm-1", ram: 512},
			&MockVM{id: "vm-2", ram: 2048},
			&MockVM{id: "vm-3", ram: 1024},
		},
	}

	seconds, err := MaxMigrationTime(host)
	require.NoError(t, err)
	assert.InDelta(t, 1024.0, seconds, 1e-9)
}

func TestMaxMigrationTime_Errors(t *testing.T) {
	_, err := MaxMigrationTime(&MockHost{id: "empty", bandwidth: 1e9})
	assert.ErrorIs(t, err, domain.ErrNoVMs)

	_, err = MaxMigrationTime(&MockHost{id: "offline", vms: []domain.VM{&MockVM{id: "vm-1", ram: 512}}})
	assert.ErrorIs(t, err, domain.ErrInvalidCapacity)
}

func TestStatisticalDemand(t *testing.T) {
	vms := []domain.VM{
		&MockVM{id: "vm-1", mean: 400, variance: 2500},
		&MockVM{id: "vm-2", mean: 500, variance: 10000},
		&MockVM{id: "vm-3", mean: 50},
	}
	assert.InDelta(t, 1100.0, StatisticalDemand(vms), 1e-9)
	assert.Zero(t, StatisticalDemand(nil))
}

package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"

	"github.com/limiquantix/vmpolicy/internal/config"
	"github.com/limiquantix/vmpolicy/internal/datacenter"
	"github.com/limiquantix/vmpolicy/internal/domain"
	"github.com/limiquantix/vmpolicy/internal/overload"
	"github.com/limiquantix/vmpolicy/internal/policy"
)

func testConfig() *config.Config {
	return &config.Config{
		Policy: policy.DefaultConfig(),
		Fallback: config.FallbackConfig{
			Kind:                 config.FallbackStatic,
			UtilizationThreshold: 0.9,
			SafetyParameter:      2.5,
		},
		Simulation: config.SimulationConfig{
			Ticks:              12,
			Seed:               7,
			InitialUtilization: 0.5,
			Hosts: []datacenter.HostSpec{
				{ID: "host-a", Mips: 1000, RAMMB: 4096, BandwidthBps: 1_000_000_000},
				{ID: "host-b", Mips: 1000, RAMMB: 4096, BandwidthBps: 1_000_000_000},
			},
			VMs: []datacenter.VMSpec{
				{ID: "vm-1", Mips: 1000, RAMMB: 1024},
				{ID: "vm-2", Mips: 1000, RAMMB: 1024},
			},
		},
	}
}

func TestRunner_SteadyWorkload(t *testing.T) {
	runner, err := New(testConfig(), nil, zap.NewNop())
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, report.Ticks)
	assert.Equal(t, 2, report.Placed)
	assert.Zero(t, report.Unplaced)
	assert.Empty(t, report.Recommendations)

	// Two half-loaded VMs do not fit on one host under the 0.9 fallback threshold.
	a, err := runner.Datacenter().HostOf("vm-1")
	require.NoError(t, err)
	b, err := runner.Datacenter().HostOf("vm-2")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	// A flat history cannot be fitted, so nothing is recorded.
	assert.Empty(t, runner.History().HostIDs())
	assert.Equal(t, 3600.0, runner.Datacenter().Now())

	assert.Equal(t, testConfig().Policy, runner.Policy().Config())
	assert.Same(t, runner.History(), runner.Policy().History())
}

func TestRunner_VolatileWorkloadRecordsPredictions(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.Volatility = 0.1

	scope := tally.NewTestScope("", nil)
	runner, err := New(cfg, scope, zap.NewNop())
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, report.Ticks)

	// Ticks 10 to 12 have a full window on both hosts.
	for _, id := range []string{"host-a", "host-b"} {
		assert.Equal(t, 3, runner.History().Len(id), id)
	}

	var evaluations int64
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == "overload.evaluations" {
			evaluations += c.Value()
		}
	}
	assert.Positive(t, evaluations)
}

func TestRunner_Unplaceable(t *testing.T) {
	cfg := testConfig()
	cfg.Simulation.VMs = append(cfg.Simulation.VMs, datacenter.VMSpec{ID: "huge", Mips: 1000, RAMMB: 8192})
	cfg.Simulation.Ticks = 2

	runner, err := New(cfg, nil, nil)
	require.NoError(t, err)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Placed)
	assert.Equal(t, 1, report.Unplaced)
}

func TestRunner_Cancelled(t *testing.T) {
	runner, err := New(testConfig(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Ticks)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Policy.SchedulingInterval = 0

	_, err := New(cfg, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	cfg = testConfig()
	cfg.Simulation.Hosts = append(cfg.Simulation.Hosts, cfg.Simulation.Hosts[0])
	_, err = New(cfg, nil, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestNewFallback(t *testing.T) {
	static, err := NewFallback(config.FallbackConfig{Kind: config.FallbackStatic, UtilizationThreshold: 0.8}, nil)
	require.NoError(t, err)
	assert.IsType(t, &overload.StaticThreshold{}, static)

	mad, err := NewFallback(config.FallbackConfig{Kind: config.FallbackMAD, UtilizationThreshold: 0.8, SafetyParameter: 2.5}, nil)
	require.NoError(t, err)
	assert.IsType(t, &overload.MedianAbsoluteDeviation{}, mad)

	_, err = NewFallback(config.FallbackConfig{Kind: "lr", UtilizationThreshold: 0.8}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewFallback(config.FallbackConfig{Kind: config.FallbackStatic}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestMinimumMigrationTime(t *testing.T) {
	host, err := datacenter.NewHost(datacenter.HostSpec{ID: "h", Mips: 1000, RAMMB: 8192, BandwidthBps: 1})
	require.NoError(t, err)
	assert.Nil(t, MinimumMigrationTime{}.VMsToMigrate(host))

	for _, spec := range []datacenter.VMSpec{
		{ID: "big", Mips: 100, RAMMB: 2048},
		{ID: "small", Mips: 100, RAMMB: 512},
		{ID: "small-too", Mips: 100, RAMMB: 512},
	} {
		vm, err := datacenter.NewVM(spec)
		require.NoError(t, err)
		require.NoError(t, host.Place(vm))
	}

	selected := MinimumMigrationTime{}.VMsToMigrate(host)
	require.Len(t, selected, 1)
	assert.Equal(t, "small", selected[0].ID())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limiquantix/vmpolicy/internal/datacenter"
	"github.com/limiquantix/vmpolicy/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.2, cfg.Policy.SafetyParameter)
	assert.Equal(t, 300.0, cfg.Policy.SchedulingInterval)
	assert.Equal(t, FallbackStatic, cfg.Fallback.Kind)
	assert.Equal(t, 0.9, cfg.Fallback.UtilizationThreshold)
	assert.Equal(t, 48, cfg.Simulation.Ticks)
	assert.Len(t, cfg.Simulation.Hosts, 4)
	assert.Len(t, cfg.Simulation.VMs, 8)
	assert.Equal(t, datacenter.HostSpec{ID: "host-1", Mips: 2660, RAMMB: 4096, BandwidthBps: 1_000_000_000}, cfg.Simulation.Hosts[0])
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
policy:
  safety_parameter: 1.5
  scheduling_interval: 60
fallback:
  kind: mad
  safety_parameter: 3
simulation:
  ticks: 10
  hosts:
    - id: small
      mips: 1000
      ram_mb: 2048
      bandwidth_bps: 100000000
  vms:
    - id: web
      mips: 500
      ram_mb: 512
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.Policy.SafetyParameter)
	assert.Equal(t, 60.0, cfg.Policy.SchedulingInterval)
	assert.Equal(t, FallbackMAD, cfg.Fallback.Kind)
	assert.Equal(t, 3.0, cfg.Fallback.SafetyParameter)
	assert.Equal(t, 10, cfg.Simulation.Ticks)
	assert.Equal(t, []datacenter.HostSpec{{ID: "small", Mips: 1000, RAMMB: 2048, BandwidthBps: 100_000_000}}, cfg.Simulation.Hosts)
	assert.Equal(t, []datacenter.VMSpec{{ID: "web", Mips: 500, RAMMB: 512}}, cfg.Simulation.VMs)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("VMPOLICY_POLICY_SAFETY_PARAMETER", "2")
	t.Setenv("VMPOLICY_SIMULATION_TICKS", "5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Policy.SafetyParameter)
	assert.Equal(t, 5, cfg.Simulation.Ticks)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  scheduling_interval: 0\n"), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	// scheduling interval, fallback kind, fallback threshold, ticks, hosts
	assert.Len(t, merr.Errors, 5)
}

// Package main is the entry point for the VM allocation policy simulator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/limiquantix/vmpolicy/internal/config"
	"github.com/limiquantix/vmpolicy/internal/simulation"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	printJSON := flag.Bool("json", false, "Print the simulation report as JSON")
	flag.Parse()

	if *showVersion {
		println("VM Policy Simulator")
		println("Version:", version)
		println("Commit:", commit)
		println("Build Date:", buildDate)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		println("Failed to load config:", err.Error())
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	defer logger.Sync()

	logger.Info("Starting VM Policy Simulator",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("ticks", cfg.Simulation.Ticks),
		zap.Int("hosts", len(cfg.Simulation.Hosts)),
		zap.Int("vms", len(cfg.Simulation.VMs)),
		zap.String("fallback", cfg.Fallback.Kind),
	)

	scope := tally.NewTestScope("", nil)

	runner, err := simulation.New(cfg, scope, logger)
	if err != nil {
		logger.Fatal("Failed to create simulation", zap.Error(err))
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal", zap.String("signal", sig.String()))
		cancel()
	}()

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Warn("Simulation interrupted", zap.Error(err))
	}

	for _, rec := range report.Recommendations {
		logger.Info("Migration",
			zap.Float64("time", rec.SimulationTime),
			zap.String("priority", string(rec.Priority)),
			zap.String("vm_id", rec.VMID),
			zap.String("source_host", rec.SourceHostID),
			zap.String("target_host", rec.TargetHostID),
			zap.Duration("estimated_duration", rec.EstimatedDuration),
			zap.String("reason", rec.Reason),
		)
	}

	for _, hostID := range runner.History().HostIDs() {
		latest, err := runner.History().Latest(hostID)
		if err != nil {
			continue
		}
		logger.Info("Predicted utilization",
			zap.String("host_id", hostID),
			zap.Int("decisions", runner.History().Len(hostID)),
			zap.Float64("time", latest.Time),
			zap.Float64("utilization", latest.Utilization),
			zap.Float64("predicted", latest.Metric),
		)
	}

	logCounters(logger, scope)

	logger.Info("Simulation complete",
		zap.Int("ticks", report.Ticks),
		zap.Int("placed", report.Placed),
		zap.Int("unplaced", report.Unplaced),
		zap.Int("migrations", report.Migrations),
		zap.Int("failed_migrations", report.FailedMigrations),
	)

	if *printJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Fatal("Failed to encode report", zap.Error(err))
		}
	}
}

// logCounters writes every counter of the scope, sorted by key.
func logCounters(logger *zap.Logger, scope tally.TestScope) {
	counters := scope.Snapshot().Counters()
	keys := make([]string, 0, len(counters))
	for key := range counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		c := counters[key]
		logger.Info("Counter",
			zap.String("name", c.Name()),
			zap.Any("tags", c.Tags()),
			zap.Int64("value", c.Value()),
		)
	}
}

// setupLogger configures the zap logger based on configuration.
func setupLogger(cfg config.LoggingConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zapConfig.OutputPaths = []string{cfg.Output}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		panic("Failed to create logger: " + err.Error())
	}

	return logger
}

package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"netauction/internal/domain"
	"netauction/internal/engine"
	"netauction/internal/infra"
	"netauction/internal/infra/csvsink"
	"netauction/internal/infra/progress"
	"netauction/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Metrics *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(cfg *infra.Config) *Bootstrap {
	return &Bootstrap{Config: cfg, Metrics: infra.GlobalMetrics}
}

// LoadConfig reads path and applies environment overrides. A missing file
// at the default location falls back to the built-in reference experiment.
// The result is not validated: flags may still change it, and Initialize
// validates the final config.
func LoadConfig(path string, explicit bool) (*infra.Config, error) {
	cfg, err := infra.ReadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if explicit || !errors.Is(err, domain.ErrConfigNotFound) {
		return nil, err
	}

	cfg = infra.DefaultConfig()
	if err := infra.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Initialize performs core system initialization (logger, DB)
func (b *Bootstrap) Initialize() error {
	if err := b.Config.Validate(); err != nil {
		return err
	}

	// 1. Setup Logger
	slog.SetDefault(infra.NewLogger(b.Config))
	slog.Info("🚀 Bootstrapping netauction...", slog.String("version", b.Config.App.Version))

	// 2. Initialize Storage (DB)
	if b.Config.Output.DBPath != "" {
		store, err := storage.NewStorage(b.Config.Output.DBPath)
		if err != nil {
			return err
		}
		b.Storage = store
		slog.Info("✅ Database initialized", slog.String("path", b.Config.Output.DBPath))
	}
	return nil
}

// Close releases the storage handle
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Error("Failed to close storage", slog.Any("error", err))
		}
	}
}

// RunReport is the outcome of a completed experiment
type RunReport struct {
	Seed    int64
	RunID   uint // 0 when storage is disabled
	Metrics infra.MetricsSnapshot
}

// Run executes the configured sweep, writing every rho to the CSV file and
// the database as soon as its trials finish.
func (b *Bootstrap) Run(ctx context.Context) (*RunReport, error) {
	cfg := b.Config
	exp := cfg.Experiment

	seed := exp.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var sinks []engine.Sink
	if cfg.Output.CSVPath != "" {
		sink, err := csvsink.NewSink(cfg.Output.CSVPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	report := &RunReport{Seed: seed}
	if b.Storage != nil {
		run := &domain.ExperimentRun{
			Seed:          seed,
			NIter:         exp.NIter,
			NDays:         exp.NDays,
			NBuyers:       cfg.Market.NBuyers,
			NSellers:      cfg.Market.NSellers,
			StartingStock: cfg.Market.StartingStock,
			PriceVar:      cfg.Market.PriceVar,
			MaxHunger:     cfg.Market.MaxHunger,
			Sweep:         joinSweep(exp),
		}
		if err := b.Storage.CreateRun(ctx, run); err != nil {
			return nil, err
		}
		report.RunID = run.ID
		sinks = append(sinks, b.Storage.Sink(run.ID))
	}
	sinks = append(sinks, sweepCounter{b.Metrics})

	var observers []engine.Observer
	if cfg.Progress.Addr != "" {
		hubCtx, stopHub := context.WithCancel(ctx)
		defer stopHub()

		hub := progress.NewHub()
		go func() {
			if err := hub.Serve(hubCtx, cfg.Progress.Addr); err != nil {
				slog.Warn("Progress feed unavailable", slog.Any("error", err))
			}
		}()
		observers = append(observers, hub)
	}

	driver := engine.NewDriver(cfg.Market,
		engine.WithSeed(seed),
		engine.WithWorkers(exp.Workers),
		engine.WithDumpDir(cfg.Output.DumpDir),
		engine.WithSinks(sinks...),
		engine.WithObservers(observers...),
		engine.WithRecorder(b.Metrics),
	)
	if err := driver.Run(ctx, exp.RhoValues, exp.NIter, exp.NDays); err != nil {
		return nil, err
	}

	if b.Storage != nil {
		if err := b.Storage.FinishRun(ctx, report.RunID); err != nil {
			return nil, err
		}
	}

	report.Metrics = b.Metrics.Snapshot()
	slog.InfoContext(ctx, "✨ Experiment finished",
		slog.Int64("seed", seed),
		slog.Uint64("trials", report.Metrics.TrialsCompleted),
		slog.Uint64("days", report.Metrics.DaysSimulated),
		slog.Uint64("trades", report.Metrics.Trades),
		slog.Uint64("seller_exits", report.Metrics.SellerExits),
		slog.Duration("avg_trial", time.Duration(report.Metrics.AvgTrialNs)))
	return report, nil
}

func joinSweep(exp infra.ExperimentConfig) string {
	parts := make([]string, len(exp.RhoValues))
	for i, rho := range exp.RhoValues {
		parts[i] = rho.String()
	}
	return strings.Join(parts, ",")
}

// sweepCounter counts rho values that reached every other sink
type sweepCounter struct {
	m *infra.Metrics
}

func (c sweepCounter) WriteSweep(ctx context.Context, r *domain.SweepResult) error {
	c.m.RecordSweep()
	return nil
}

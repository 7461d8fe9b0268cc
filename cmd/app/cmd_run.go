package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"netauction/internal/app"
	"netauction/internal/engine"
	"netauction/internal/infra"

	"github.com/spf13/cobra"

	_ "net/http/pprof" // For pprof profiling
)

const defaultConfigPath = "configs/config.yaml"

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the rho sweep experiment",
		Long: `Run the configured experiment. Flags override values from the config file.

Examples:
  netauction run                               # reference sweep from configs/config.yaml
  netauction run --rho 0.5,0.01 --iter 10      # quick sweep over two rho values
  netauction run --seed 42 --db runs.db        # reproducible run, also stored in SQLite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := app.LoadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}

			if addr, _ := cmd.Flags().GetString("pprof"); addr != "" {
				go func() {
					slog.Info("🕵️ Pprof server started", slog.String("addr", addr))
					if err := http.ListenAndServe(addr, nil); err != nil {
						slog.Error("Pprof server failed", slog.Any("error", err))
					}
				}()
			}

			bootstrap := app.NewBootstrap(cfg)
			if err := bootstrap.Initialize(); err != nil {
				return fmt.Errorf("bootstrapping failed: %w", err)
			}
			defer bootstrap.Close()

			// Graceful Shutdown Context
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := bootstrap.Run(ctx)
			if err != nil {
				if engine.IsAbort(err) {
					slog.Warn("👋 Experiment interrupted")
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seed: %d\n", report.Seed)
			if cfg.Output.CSVPath != "" {
				fmt.Fprintf(out, "csv: %s\n", cfg.Output.CSVPath)
			}
			if report.RunID != 0 {
				fmt.Fprintf(out, "run: %d (%s)\n", report.RunID, cfg.Output.DBPath)
			}
			fmt.Fprintf(out, "trials: %d, trades: %d\n", report.Metrics.TrialsCompleted, report.Metrics.Trades)
			return nil
		},
	}

	cmd.Flags().String("config", defaultConfigPath, "Config file")
	cmd.Flags().Int64("seed", 0, "Master seed (0 seeds from the clock)")
	cmd.Flags().String("rho", "", "Comma separated rho values")
	cmd.Flags().Int("iter", 0, "Trials per rho")
	cmd.Flags().Int("days", 0, "Days per trial")
	cmd.Flags().Int("workers", 0, "Trials run in parallel (0 = one per CPU)")
	cmd.Flags().String("csv", "", "CSV output path")
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().String("progress-addr", "", "Serve websocket progress at this address")
	cmd.Flags().String("log-dir", "", "Rotating log file directory")
	cmd.Flags().String("pprof", "", "Serve net/http/pprof at this address (e.g. localhost:6060)")

	return cmd
}

// applyRunFlags copies explicitly set flags over the loaded config
func applyRunFlags(cmd *cobra.Command, cfg *infra.Config) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Experiment.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("rho") {
		s, _ := flags.GetString("rho")
		sweep, err := infra.ParseSweep(s)
		if err != nil {
			return err
		}
		cfg.Experiment.RhoValues = sweep
	}
	if flags.Changed("iter") {
		cfg.Experiment.NIter, _ = flags.GetInt("iter")
	}
	if flags.Changed("days") {
		cfg.Experiment.NDays, _ = flags.GetInt("days")
	}
	if flags.Changed("workers") {
		cfg.Experiment.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("csv") {
		cfg.Output.CSVPath, _ = flags.GetString("csv")
	}
	if flags.Changed("db") {
		cfg.Output.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("progress-addr") {
		cfg.Progress.Addr, _ = flags.GetString("progress-addr")
	}
	if flags.Changed("log-dir") {
		cfg.Logging.Dir, _ = flags.GetString("log-dir")
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"netauction/internal/domain"
	"netauction/internal/infra/csvsink"
	"netauction/internal/infra/storage"
	"netauction/internal/service"

	"github.com/spf13/cobra"
)

// sweepSummary is one rho's line of summarize output
type sweepSummary struct {
	Rho            string  `json:"rho"`
	NIter          int     `json:"n_iter"`
	NDays          int     `json:"n_days"`
	FinalSell      float64 `json:"final_sell"`
	FinalBuy       float64 `json:"final_buy"`
	FinalSpread    float64 `json:"final_spread"`
	ConvergenceDay int     `json:"convergence_day"` // -1 if the spread never closed
}

func newSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [data.csv]",
		Short: "Summarize price convergence per rho",
		Long: `Summarize the results of a run, from a CSV file or a stored run.

For every rho it prints the mean sell and buy price on the last day and
the first day on which the mean spread fell below --eps.

Examples:
  netauction summarize data.csv
  netauction summarize --db runs.db --run 3 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			runID, _ := cmd.Flags().GetUint("run")
			eps, _ := cmd.Flags().GetFloat64("eps")
			jsonOut, _ := cmd.Flags().GetBool("json")

			var rows []domain.SeriesRow
			var err error
			switch {
			case len(args) == 1:
				rows, err = csvsink.ReadFile(args[0])
			case dbPath != "" && runID != 0:
				rows, err = loadStoredRows(cmd.Context(), dbPath, runID)
			default:
				return fmt.Errorf("specify a CSV file or --db with --run")
			}
			if err != nil {
				return err
			}

			results, err := service.Pair(rows)
			if err != nil {
				return err
			}

			summaries := make([]sweepSummary, 0, len(results))
			for _, r := range results {
				stats := service.Summarize(r)
				last := stats[len(stats)-1]
				summaries = append(summaries, sweepSummary{
					Rho:            r.Rho.String(),
					NIter:          r.NIter,
					NDays:          r.NDays,
					FinalSell:      last.MeanSell,
					FinalBuy:       last.MeanBuy,
					FinalSpread:    last.Spread,
					ConvergenceDay: service.ConvergenceDay(stats, eps),
				})
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}

			fmt.Fprintf(out, "%-10s %6s %6s %10s %10s %10s %12s\n", "RHO", "ITER", "DAYS", "SELL", "BUY", "SPREAD", "CONVERGED")
			for _, s := range summaries {
				converged := "never"
				if s.ConvergenceDay >= 0 {
					converged = fmt.Sprintf("day %d", s.ConvergenceDay)
				}
				fmt.Fprintf(out, "%-10s %6d %6d %10.4f %10.4f %10.4f %12s\n",
					s.Rho, s.NIter, s.NDays, s.FinalSell, s.FinalBuy, s.FinalSpread, converged)
			}
			return nil
		},
	}

	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().Uint("run", 0, "Stored run ID (with --db)")
	cmd.Flags().Float64("eps", 0.01, "Spread below which prices count as converged")
	cmd.Flags().Bool("json", false, "Output as JSON")

	return cmd
}

func loadStoredRows(ctx context.Context, dbPath string, runID uint) ([]domain.SeriesRow, error) {
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	return store.LoadSeries(ctx, runID)
}

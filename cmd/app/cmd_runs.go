package main

import (
	"encoding/json"
	"fmt"

	"netauction/internal/infra/storage"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored experiment runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			jsonOut, _ := cmd.Flags().GetBool("json")
			deleteID, _ := cmd.Flags().GetUint("delete")

			store, err := storage.NewStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer store.Close()

			if deleteID != 0 {
				if err := store.DeleteRun(cmd.Context(), deleteID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", deleteID)
				return nil
			}

			runs, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored.")
				return nil
			}
			for _, r := range runs {
				status := "aborted"
				if r.Completed {
					status = "completed"
				}
				fmt.Fprintf(out, "#%d  %s  seed=%d  iter=%d  days=%d  %s  rho=[%s]\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Seed, r.NIter, r.NDays, status, r.Sweep)
			}
			return nil
		},
	}

	cmd.Flags().String("db", "netauction.db", "SQLite database path")
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().Uint("delete", 0, "Delete the run with this ID and its series")

	return cmd
}

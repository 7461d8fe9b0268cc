package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netauction",
		Short: "Networked double-auction market simulation",
		Long: `netauction simulates a market of buyers and sellers who only trade
along a random network of connections, and sweeps the connection
probability rho to see how prices converge.

Each rho runs n_iter independent trials of n_days days. The daily mean
sell and buy prices are appended to a CSV file and, optionally, to a
SQLite database.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSummarizeCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "netauction version %s\n", version)
		},
	}
}

// Package cmd holds the kavachctl operator commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kavachctl",
	Short: "Operator tool for the kavach store",
	Long: `kavachctl manages the kavach store database and catalogue.

It runs schema migrations, loads seed fixtures into PostgreSQL, prices
carts offline against a fixture, and drains the pending order queue.
Database settings come from the same environment as the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

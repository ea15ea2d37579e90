package cmd

import (
	"fmt"

	"github.com/safar/kavach-store/internal/seed"
	"github.com/safar/kavach-store/internal/store"
	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a catalogue fixture into PostgreSQL",
	Long: `Loads products, coupons, the delivery rule and addresses from a YAML
fixture into an empty, migrated database. Without --file the built-in
fixture is used. Experts are not stored in PostgreSQL and are skipped.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML fixture to load (default: built-in fixture)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	fixture, err := seed.Load(seedFile)
	if err != nil {
		return err
	}

	_, db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := fixture.Apply(cmd.Context(), store.New(db).Repositories(), nil); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products, %d coupons, %d addresses\n",
		len(fixture.Products), len(fixture.Coupons), len(fixture.Addresses))
	return nil
}

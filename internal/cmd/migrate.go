package cmd

import (
	"database/sql"
	"fmt"

	"github.com/safar/kavach-store/internal/config"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/migrations"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(database.Up), string(database.Down)},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func openDatabase(cmd *cobra.Command) (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.NewConnection(cmd.Context(), &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	direction := database.Direction(args[0])

	_, db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ran, err := database.Migrate(cmd.Context(), db, migrations.FS, direction)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Successfully ran %d migration(s) %s\n", len(ran), direction)
	return nil
}

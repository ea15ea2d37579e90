package cmd

import (
	"errors"
	"fmt"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/store"
	"github.com/spf13/cobra"
)

var confirmLimit int

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Order fulfilment tasks",
}

var confirmPendingCmd = &cobra.Command{
	Use:   "confirm-pending",
	Short: "Confirm the oldest pending orders",
	Long: `Confirms pending orders oldest first. Orders another worker is
already confirming are skipped, so several runs can drain the queue at once.`,
	RunE: runConfirmPending,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(confirmPendingCmd)

	confirmPendingCmd.Flags().IntVar(&confirmLimit, "limit", 50, "maximum number of orders to confirm")
}

func runConfirmPending(cmd *cobra.Command, args []string) error {
	_, db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	s := store.New(db)
	confirmed := 0
	for confirmed < confirmLimit {
		order, err := s.ConfirmNextPending(cmd.Context())
		if errors.Is(err, database.ErrOrderNotFound) {
			break
		}
		if err != nil {
			return err
		}
		confirmed++
		fmt.Fprintf(cmd.OutOrStdout(), "confirmed %s (%s)\n", order.OrderNumber, order.Owner)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Confirmed %d order(s)\n", confirmed)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/safar/kavach-store/internal/cart"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/memstore"
	"github.com/safar/kavach-store/internal/seed"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	quoteFile    string
	quoteCoupon  string
	quoteFixture string
	quoteAt      string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a cart offline against a fixture",
	Long: `Reads a cart file and prints the subtotal, delivery charge, coupon
discount and total the store would charge. The cart file is YAML (or JSON):

  items:
    - product_id: 1
      quantity: 2

Quantities are clamped to the fixture's stock the way the shop does, and
sold-out products are skipped with a note.`,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteFile, "file", "", "cart file to price")
	quoteCmd.Flags().StringVar(&quoteCoupon, "coupon", "", "coupon code to apply")
	quoteCmd.Flags().StringVar(&quoteFixture, "fixture", "", "catalogue fixture (default: built-in fixture)")
	quoteCmd.Flags().StringVar(&quoteAt, "at", "", "price as of this RFC 3339 time (default: now)")
	quoteCmd.MarkFlagRequired("file")
}

type cartFile struct {
	Items []struct {
		ProductID int64 `yaml:"product_id"`
		Quantity  int   `yaml:"quantity"`
	} `yaml:"items"`
}

func readCartFile(r io.Reader) (*cartFile, error) {
	var f cartFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode cart file: %w", err)
	}
	return &f, nil
}

func runQuote(cmd *cobra.Command, args []string) error {
	file, err := os.Open(quoteFile)
	if err != nil {
		return fmt.Errorf("open cart file: %w", err)
	}
	defer file.Close()

	items, err := readCartFile(file)
	if err != nil {
		return err
	}

	now := time.Now()
	if quoteAt != "" {
		if now, err = time.Parse(time.RFC3339, quoteAt); err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}

	return quote(cmd, items, now)
}

func quote(cmd *cobra.Command, items *cartFile, now time.Time) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	fixture, err := seed.Load(quoteFixture)
	if err != nil {
		return err
	}
	commerce := memstore.NewCommerce()
	if err := fixture.Apply(ctx, commerce.Repositories(), nil); err != nil {
		return err
	}

	svc := kavach.NewService(commerce.Repositories(), kavach.WithClock(func() time.Time { return now }))
	shopper := kavach.Shopper{ID: "kavachctl"}

	for _, it := range items.Items {
		view, err := svc.AddToCart(ctx, shopper, it.ProductID, it.Quantity)
		if errors.Is(err, cart.ErrOutOfStock) {
			fmt.Fprintf(out, "note: product %d skipped: %v\n", it.ProductID, err)
			continue
		}
		if err != nil {
			return fmt.Errorf("product %d: %w", it.ProductID, err)
		}
		if view.Notice != "" {
			fmt.Fprintf(out, "note: %s\n", view.Notice)
		}
	}

	view, err := svc.Cart(ctx, shopper)
	if err != nil {
		return err
	}
	q, err := svc.Quote(ctx, shopper, quoteCoupon)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, line := range view.Lines {
		fmt.Fprintf(w, "%s\t%d x %s\t%s\n", line.Name, line.Quantity, line.UnitPrice.StringFixed(2), line.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(w, "Subtotal\t\t%s\n", q.Subtotal.StringFixed(2))
	fmt.Fprintf(w, "Delivery\t\t%s\n", q.DeliveryCharge.StringFixed(2))
	if q.CouponCode != "" {
		fmt.Fprintf(w, "Discount (%s)\t\t-%s\n", q.CouponCode, q.Discount.StringFixed(2))
	}
	fmt.Fprintf(w, "Total\t\t%s\n", q.Total.StringFixed(2))
	return w.Flush()
}

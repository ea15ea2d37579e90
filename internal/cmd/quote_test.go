package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func runQuoteFor(t *testing.T, cart, coupon string) (string, error) {
	t.Helper()

	items, err := readCartFile(strings.NewReader(cart))
	if err != nil {
		t.Fatalf("readCartFile: %v", err)
	}

	quoteCoupon = coupon
	quoteFixture = ""
	t.Cleanup(func() { quoteCoupon = "" })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	err = quote(cmd, items, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	return out.String(), err
}

func TestQuoteWithCoupon(t *testing.T) {
	out, err := runQuoteFor(t, `
items:
  - product_id: 1
    quantity: 1
  - product_id: 2
    quantity: 2
`, "WELCOME10")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	for _, want := range []string{"2097.00", "-200.00", "1897.00", "WELCOME10"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestQuoteClampsToStock(t *testing.T) {
	out, err := runQuoteFor(t, `{"items": [{"product_id": 4, "quantity": 5}]}`, "")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if !strings.Contains(out, "note:") {
		t.Errorf("Expected a clamp notice:\n%s", out)
	}
	// Two emeralds at 5499.
	if !strings.Contains(out, "10998.00") {
		t.Errorf("Expected subtotal 10998.00:\n%s", out)
	}
}

func TestQuoteSkipsSoldOutProduct(t *testing.T) {
	out, err := runQuoteFor(t, `
items:
  - product_id: 5
    quantity: 1
  - product_id: 1
    quantity: 1
`, "")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	if !strings.Contains(out, "note: product 5 skipped") {
		t.Errorf("Expected a skip notice for the sold-out product:\n%s", out)
	}
	// One mala at 299 plus delivery 50.
	if !strings.Contains(out, "349.00") {
		t.Errorf("Expected total 349.00:\n%s", out)
	}
}

func TestQuoteUnknownProduct(t *testing.T) {
	if _, err := runQuoteFor(t, "items:\n  - product_id: 99\n    quantity: 1\n", ""); err == nil {
		t.Error("Expected error for unknown product")
	}
}

func TestReadCartFileRejectsUnknownFields(t *testing.T) {
	if _, err := readCartFile(strings.NewReader("items:\n  - sku: X\n")); err == nil {
		t.Error("Expected error for unknown field")
	}
}

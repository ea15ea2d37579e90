package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/safar/kavach-store/internal/models"
	"github.com/shopspring/decimal"
)

func catalog(products ...models.Product) ProductLookup {
	byID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return func(id int64) (models.Product, bool) {
		p, ok := byID[id]
		return p, ok
	}
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func rule(base, threshold int64) *models.DeliveryRule {
	return &models.DeliveryRule{ID: 1, Name: "standard", BaseCharge: dec(base), FreeDeliveryThreshold: dec(threshold), Active: true}
}

var (
	rudraksha = models.Product{ID: 1, Name: "Rudraksha Mala", Category: "malas", Price: dec(299), StockQuantity: 25, Active: true}
	yantra    = models.Product{ID: 2, Name: "Shree Yantra", Category: "yantras", Price: dec(899), StockQuantity: 15, Active: true}
)

func TestSubtotalSkipsMissingProducts(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 99, Quantity: 5},
		{ProductID: 2, Quantity: 1},
	}

	got := Subtotal(items, catalog(rudraksha, yantra))
	want := dec(299*2 + 899)
	if !got.Equal(want) {
		t.Errorf("Expected subtotal %s, got %s", want, got)
	}
}

func TestSubtotalEmpty(t *testing.T) {
	if got := Subtotal(nil, catalog()); !got.IsZero() {
		t.Errorf("Expected zero subtotal, got %s", got)
	}
}

func TestDeliveryChargeThreshold(t *testing.T) {
	r := rule(50, 500)

	tests := []struct {
		subtotal int64
		want     int64
	}{
		{0, 50},
		{499, 50},
		{500, 0},
		{2097, 0},
	}

	for _, tt := range tests {
		got := DeliveryCharge(dec(tt.subtotal), r)
		if !got.Equal(dec(tt.want)) {
			t.Errorf("DeliveryCharge(%d) = %s, want %d", tt.subtotal, got, tt.want)
		}
	}
}

func TestDeliveryChargeWithoutActiveRule(t *testing.T) {
	if got := DeliveryCharge(dec(10), nil); !got.IsZero() {
		t.Errorf("Expected no charge without a rule, got %s", got)
	}

	r := rule(50, 500)
	r.Active = false
	if got := DeliveryCharge(dec(10), r); !got.IsZero() {
		t.Errorf("Expected no charge for inactive rule, got %s", got)
	}
}

func TestAmountToFreeDelivery(t *testing.T) {
	r := rule(50, 500)
	if got := AmountToFreeDelivery(dec(420), r); !got.Equal(dec(80)) {
		t.Errorf("Expected 80 remaining, got %s", got)
	}
	if got := AmountToFreeDelivery(dec(600), r); !got.IsZero() {
		t.Errorf("Expected 0 remaining, got %s", got)
	}
}

func TestBuildQuoteScenario(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 2},
	}

	q, err := Build(items, catalog(rudraksha, yantra), rule(50, 500), nil, EvalOptions{})
	if err != nil {
		t.Fatalf("Build quote: %v", err)
	}

	if !q.Subtotal.Equal(dec(2097)) {
		t.Errorf("Expected subtotal 2097, got %s", q.Subtotal)
	}
	if !q.DeliveryCharge.IsZero() {
		t.Errorf("Expected free delivery, got %s", q.DeliveryCharge)
	}
	if !q.Total.Equal(dec(2097)) {
		t.Errorf("Expected total 2097, got %s", q.Total)
	}
	if q.ItemCount != 3 {
		t.Errorf("Expected 3 items, got %d", q.ItemCount)
	}
}

func TestBuildQuoteWithCoupon(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	maxOff := dec(100)
	coupon := &models.Coupon{
		Code:                  "DIWALI10",
		Type:                  models.CouponPercentage,
		Value:                 dec(10),
		MaximumDiscountAmount: &maxOff,
		StartDate:             now.AddDate(0, -1, 0),
		EndDate:               now.AddDate(0, 1, 0),
		Active:                true,
	}

	items := []models.CartItem{{ProductID: 1, Quantity: 1}}
	q, err := Build(items, catalog(rudraksha), rule(50, 500), coupon, EvalOptions{Now: now})
	if err != nil {
		t.Fatalf("Build quote: %v", err)
	}

	// 299 * 10% = 29.9; delivery 50 since 299 < 500.
	if !q.Discount.Equal(decimal.RequireFromString("29.9")) {
		t.Errorf("Expected discount 29.9, got %s", q.Discount)
	}
	if !q.Total.Equal(decimal.RequireFromString("319.1")) {
		t.Errorf("Expected total 319.1, got %s", q.Total)
	}
	if q.CouponCode != "DIWALI10" {
		t.Errorf("Expected coupon code on quote, got %q", q.CouponCode)
	}
}

func TestBuildQuoteTotalMatchesRoundedDiscount(t *testing.T) {
	incense := models.Product{ID: 3, Name: "Incense Stick", Category: "incense", Price: decimal.RequireFromString("1.00"), StockQuantity: 100, Active: true}
	coupon := &models.Coupon{Code: "HALF", Type: models.CouponPercentage, Value: decimal.RequireFromString("12.5"), Active: true}

	items := []models.CartItem{{ProductID: 3, Quantity: 1}}
	q, err := Build(items, catalog(incense), rule(50, 500), coupon, EvalOptions{})
	if err != nil {
		t.Fatalf("Build quote: %v", err)
	}

	// 1.00 * 12.5% = 0.125, rounded half up to 0.13.
	if !q.Discount.Equal(decimal.RequireFromString("0.13")) {
		t.Errorf("Expected discount 0.13, got %s", q.Discount)
	}
	if !q.Total.Equal(decimal.RequireFromString("50.87")) {
		t.Errorf("Expected total 50.87, got %s", q.Total)
	}

	for _, pct := range []string{"2.5", "7.5", "12.5", "33.3", "66.7"} {
		coupon.Value = decimal.RequireFromString(pct)
		for qty := 1; qty <= 9; qty++ {
			items := []models.CartItem{{ProductID: 3, Quantity: qty}}
			q, err := Build(items, catalog(incense), rule(50, 500), coupon, EvalOptions{})
			if err != nil {
				t.Fatalf("Build quote: %v", err)
			}
			want := q.Subtotal.Sub(q.Discount).Add(q.DeliveryCharge)
			if !q.Total.Equal(want) {
				t.Errorf("%s%% of %d: total %s != subtotal %s - discount %s + delivery %s",
					pct, qty, q.Total, q.Subtotal, q.Discount, q.DeliveryCharge)
			}
		}
	}
}

func TestBuildQuoteFreeShippingCoupon(t *testing.T) {
	coupon := &models.Coupon{Code: "SHIPFREE", Type: models.CouponFreeShipping, Active: true}

	items := []models.CartItem{{ProductID: 1, Quantity: 1}}
	q, err := Build(items, catalog(rudraksha), rule(50, 500), coupon, EvalOptions{})
	if err != nil {
		t.Fatalf("Build quote: %v", err)
	}
	if !q.DeliveryCharge.IsZero() {
		t.Errorf("Expected delivery waived, got %s", q.DeliveryCharge)
	}
	if !q.Total.Equal(dec(299)) {
		t.Errorf("Expected total 299, got %s", q.Total)
	}
}

func TestBuildQuoteRejectsCoupon(t *testing.T) {
	coupon := &models.Coupon{Code: "BIG", Type: models.CouponFixed, Value: dec(100), MinimumOrderAmount: dec(1000), Active: true}

	items := []models.CartItem{{ProductID: 1, Quantity: 1}}
	_, err := Build(items, catalog(rudraksha), rule(50, 500), coupon, EvalOptions{})
	if !errors.Is(err, ErrBelowMinimum) {
		t.Errorf("Expected below minimum error, got %v", err)
	}
}

func TestDiscountPercent(t *testing.T) {
	orig := dec(400)
	if got := DiscountPercent(dec(299), &orig); got != 25 {
		t.Errorf("Expected 25%% off, got %d", got)
	}
	if got := DiscountPercent(dec(299), nil); got != 0 {
		t.Errorf("Expected 0%% without list price, got %d", got)
	}
	low := dec(100)
	if got := DiscountPercent(dec(299), &low); got != 0 {
		t.Errorf("Expected 0%% when list price is lower, got %d", got)
	}
}

func TestStockLevel(t *testing.T) {
	if got := StockLevel(0, 5); got != OutOfStock {
		t.Errorf("Expected out of stock, got %s", got)
	}
	if got := StockLevel(5, 5); got != LowStock {
		t.Errorf("Expected low stock, got %s", got)
	}
	if got := StockLevel(6, 5); got != InStock {
		t.Errorf("Expected in stock, got %s", got)
	}
}

func TestCompletionPercent(t *testing.T) {
	tests := []struct{ done, total, want int }{
		{0, 0, 0},
		{1, 4, 25},
		{2, 3, 66},
		{5, 4, 100},
	}
	for _, tt := range tests {
		if got := CompletionPercent(tt.done, tt.total); got != tt.want {
			t.Errorf("CompletionPercent(%d, %d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}

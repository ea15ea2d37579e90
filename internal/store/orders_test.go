//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
	"github.com/safar/kavach-store/internal/workflow"
	"github.com/shopspring/decimal"
)

func shopper(i int) kavach.Shopper {
	return kavach.Shopper{ID: fmt.Sprintf("buyer-%d", i)}
}

var shipTo = models.Address{
	Name:       "Test Buyer",
	Phone:      "9800000000",
	Line1:      "1 Test Road",
	City:       "Pune",
	State:      "MH",
	PostalCode: "411001",
}

func checkout(ctx context.Context, svc *kavach.Service, sh kavach.Shopper, coupon string) (*models.Order, error) {
	addr := shipTo
	return svc.Checkout(ctx, sh, kavach.CheckoutRequest{Address: &addr, CouponCode: coupon})
}

func TestCheckoutWithCoupon(t *testing.T) {
	s, svc, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()
	buyer := shopper(1)

	if _, err := svc.AddToCart(ctx, buyer, mala, 1); err != nil {
		t.Fatalf("Add mala: %v", err)
	}
	if _, err := svc.AddToCart(ctx, buyer, pyramid, 2); err != nil {
		t.Fatalf("Add pyramid: %v", err)
	}

	order, err := checkout(ctx, svc, buyer, "welcome10")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	// 2097 less 10% capped at 200, free delivery.
	if !order.Total.Equal(decimal.NewFromInt(1897)) {
		t.Errorf("Expected total 1897, got %s", order.Total)
	}
	if order.CouponCode != "WELCOME10" {
		t.Errorf("Expected coupon WELCOME10, got %q", order.CouponCode)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Expected pending order, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("Expected 2 order items, got %d", len(order.Items))
	}

	product, err := s.GetProduct(ctx, pyramid)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if product.StockQuantity != 8 {
		t.Errorf("Expected pyramid stock 8, got %d", product.StockQuantity)
	}

	coupon, err := s.GetCouponByCode(ctx, "WELCOME10")
	if err != nil {
		t.Fatalf("Get coupon: %v", err)
	}
	if coupon.UsageCount != 1 {
		t.Errorf("Expected coupon usage 1, got %d", coupon.UsageCount)
	}

	stored, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if stored.ShippingAddress.City != "Pune" {
		t.Errorf("Expected shipping snapshot, got %+v", stored.ShippingAddress)
	}
	if stored.OrderNumber != order.OrderNumber {
		t.Errorf("Order number mismatch: %s vs %s", stored.OrderNumber, order.OrderNumber)
	}

	if _, err := svc.AddToCart(ctx, buyer, mala, 1); err != nil {
		t.Fatalf("Add mala again: %v", err)
	}
	_, err = checkout(ctx, svc, buyer, "WELCOME10")
	if !errors.Is(err, pricing.ErrCouponUserLimit) {
		t.Errorf("Expected per-user limit error, got: %v", err)
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	s, svc, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()
	first, second := shopper(1), shopper(2)

	for _, sh := range []kavach.Shopper{first, second} {
		if _, err := svc.AddToCart(ctx, sh, yantra, 3); err != nil {
			t.Fatalf("Add yantra for %s: %v", sh.ID, err)
		}
	}

	if _, err := checkout(ctx, svc, first, ""); err != nil {
		t.Fatalf("First checkout: %v", err)
	}

	_, err := checkout(ctx, svc, second, "")
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock error, got: %v", err)
	}

	product, err := s.GetProduct(ctx, yantra)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if product.StockQuantity != 1 {
		t.Errorf("Stock should be 1 after one order, got %d", product.StockQuantity)
	}
}

func TestConcurrentCheckout(t *testing.T) {
	s, svc, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()

	// Pyramid has 10 in stock; 10 buyers want 2 each.
	concurrency := 10
	for i := 0; i < concurrency; i++ {
		if _, err := svc.AddToCart(ctx, shopper(i), pyramid, 2); err != nil {
			t.Fatalf("Add to cart: %v", err)
		}
	}

	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := checkout(ctx, svc, shopper(i), "")
			results <- err
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock):
		default:
			t.Logf("Unexpected error: %v", err)
		}
	}

	// Serialization failures past the retry budget may turn away a buyer
	// who could have been served, but never oversell.
	if successCount == 0 || successCount > 5 {
		t.Errorf("Expected between 1 and 5 successful orders, got %d", successCount)
	}

	product, err := s.GetProduct(ctx, pyramid)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if expected := 10 - successCount*2; product.StockQuantity != expected {
		t.Errorf("Expected final stock %d, got %d", expected, product.StockQuantity)
	}
	if product.StockQuantity < 0 {
		t.Errorf("Stock went negative: %d", product.StockQuantity)
	}
}

func TestTransitionOrder(t *testing.T) {
	s, svc, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()
	buyer := shopper(1)

	if _, err := svc.AddToCart(ctx, buyer, mala, 4); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}
	order, err := checkout(ctx, svc, buyer, "")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	confirmed, err := s.TransitionOrder(ctx, order.ID, workflow.OrderConfirm)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != models.OrderStatusConfirmed || confirmed.Version != order.Version+1 {
		t.Errorf("Expected confirmed v%d, got %s v%d", order.Version+1, confirmed.Status, confirmed.Version)
	}

	if _, err := s.TransitionOrder(ctx, order.ID, workflow.OrderDeliver); !errors.Is(err, workflow.ErrIllegalTransition) {
		t.Errorf("Expected illegal transition, got: %v", err)
	}

	if _, err := s.TransitionOrder(ctx, order.ID, workflow.OrderCancel); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	product, err := s.GetProduct(ctx, mala)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if product.StockQuantity != 25 {
		t.Errorf("Expected stock restored to 25, got %d", product.StockQuantity)
	}

	if _, err := s.TransitionOrder(ctx, 9999, workflow.OrderConfirm); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected order not found, got: %v", err)
	}
}

func TestConfirmNextPending(t *testing.T) {
	s, svc, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()

	var placed []int64
	for i := 0; i < 3; i++ {
		if _, err := svc.AddToCart(ctx, shopper(i), mala, 1); err != nil {
			t.Fatalf("Add to cart: %v", err)
		}
		order, err := checkout(ctx, svc, shopper(i), "")
		if err != nil {
			t.Fatalf("Checkout: %v", err)
		}
		placed = append(placed, order.ID)
	}

	for _, want := range placed {
		order, err := s.ConfirmNextPending(ctx)
		if err != nil {
			t.Fatalf("Confirm next: %v", err)
		}
		if order.ID != want {
			t.Errorf("Expected oldest pending order %d, got %d", want, order.ID)
		}
		if order.Status != models.OrderStatusConfirmed {
			t.Errorf("Expected confirmed, got %s", order.Status)
		}
	}

	if _, err := s.ConfirmNextPending(ctx); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Expected empty queue, got: %v", err)
	}
}

func TestListOrdersCursor(t *testing.T) {
	s, svc, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()
	buyer := shopper(1)

	for i := 0; i < 15; i++ {
		if _, err := svc.AddToCart(ctx, buyer, mala, 1); err != nil {
			t.Fatalf("Add to cart: %v", err)
		}
		if _, err := checkout(ctx, svc, buyer, ""); err != nil {
			t.Fatalf("Checkout %d: %v", i, err)
		}
	}

	filter := models.OrderFilter{Owner: buyer.ID, Limit: 10}
	page1, err := s.ListOrders(ctx, filter)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}

	if len(page1.Items) != 10 {
		t.Errorf("Expected 10 items on page 1, got %d", len(page1.Items))
	}
	if !page1.HasMore {
		t.Error("Expected more pages")
	}

	filter.Cursor = page1.NextCursor
	page2, err := s.ListOrders(ctx, filter)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}

	if len(page2.Items) != 5 {
		t.Errorf("Expected 5 items on page 2, got %d", len(page2.Items))
	}
	if page2.HasMore {
		t.Error("Expected no more pages")
	}

	seen := make(map[int64]bool)
	for _, o := range append(page1.Items, page2.Items...) {
		if seen[o.ID] {
			t.Errorf("Order %d listed twice", o.ID)
		}
		seen[o.ID] = true
	}

	other, err := s.ListOrders(ctx, models.OrderFilter{Owner: "nobody", Limit: 10})
	if err != nil {
		t.Fatalf("List orders for other owner: %v", err)
	}
	if len(other.Items) != 0 {
		t.Errorf("Expected no orders for other owner, got %d", len(other.Items))
	}

	redemptions, err := s.CouponRedemptions(ctx, "WELCOME10", buyer.ID)
	if err != nil {
		t.Fatalf("Coupon redemptions: %v", err)
	}
	if redemptions != 0 {
		t.Errorf("Expected no redemptions, got %d", redemptions)
	}
}

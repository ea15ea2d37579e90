//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/models"
	"github.com/shopspring/decimal"
)

func TestCouponsRoundTrip(t *testing.T) {
	s, _, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()

	coupon, err := s.GetCouponByCode(ctx, "gems15")
	if err != nil {
		t.Fatalf("Get coupon: %v", err)
	}
	if len(coupon.Categories) != 1 || coupon.Categories[0] != "gemstones" {
		t.Errorf("Expected gemstones category, got %v", coupon.Categories)
	}
	if coupon.MaximumDiscountAmount == nil || !coupon.MaximumDiscountAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected max discount 1000, got %v", coupon.MaximumDiscountAmount)
	}

	stale := *coupon
	coupon.Active = false
	if _, err := s.UpdateCoupon(ctx, coupon); err != nil {
		t.Fatalf("Update coupon: %v", err)
	}
	if _, err := s.UpdateCoupon(ctx, &stale); !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Expected optimistic lock failure, got: %v", err)
	}

	if _, err := s.CreateCoupon(ctx, &stale); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("Expected duplicate coupon, got: %v", err)
	}
	if _, err := s.GetCouponByCode(ctx, "NOPE"); !errors.Is(err, database.ErrCouponNotFound) {
		t.Errorf("Expected coupon not found, got: %v", err)
	}

	coupons, err := s.ListCoupons(ctx)
	if err != nil {
		t.Fatalf("List coupons: %v", err)
	}
	if len(coupons) != 4 {
		t.Errorf("Expected 4 coupons, got %d", len(coupons))
	}
}

func TestDeliveryRuleReplacement(t *testing.T) {
	s, _, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()

	rule, err := s.ActiveDeliveryRule(ctx)
	if err != nil {
		t.Fatalf("Active rule: %v", err)
	}
	if !rule.BaseCharge.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected base charge 50, got %s", rule.BaseCharge)
	}

	next, err := s.SetDeliveryRule(ctx, &models.DeliveryRule{
		Name:                  "festive",
		BaseCharge:            decimal.NewFromInt(40),
		FreeDeliveryThreshold: decimal.NewFromInt(300),
	})
	if err != nil {
		t.Fatalf("Set rule: %v", err)
	}

	active, err := s.ActiveDeliveryRule(ctx)
	if err != nil {
		t.Fatalf("Active rule after replace: %v", err)
	}
	if active.ID != next.ID || active.Name != "festive" {
		t.Errorf("Expected festive rule active, got %+v", active)
	}
}

func TestAddressDefaults(t *testing.T) {
	s, _, cleanup := setupSeeded(t)
	defer cleanup()

	ctx := context.Background()

	first := shipTo
	first.Owner = "addr-owner"
	a1, err := s.CreateAddress(ctx, &first)
	if err != nil {
		t.Fatalf("Create first address: %v", err)
	}
	if !a1.IsDefault {
		t.Error("First address should become the default")
	}

	second := first
	second.Line1 = "2 Other Road"
	second.IsDefault = true
	a2, err := s.CreateAddress(ctx, &second)
	if err != nil {
		t.Fatalf("Create second address: %v", err)
	}

	list, err := s.ListAddresses(ctx, "addr-owner")
	if err != nil {
		t.Fatalf("List addresses: %v", err)
	}
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			if a.ID != a2.ID {
				t.Errorf("Expected address %d to be default, got %d", a2.ID, a.ID)
			}
		}
	}
	if len(list) != 2 || defaults != 1 {
		t.Errorf("Expected 2 addresses with 1 default, got %d with %d", len(list), defaults)
	}

	if err := s.DeleteAddress(ctx, a1.ID); err != nil {
		t.Fatalf("Delete address: %v", err)
	}
	if _, err := s.GetAddress(ctx, a1.ID); !errors.Is(err, database.ErrAddressNotFound) {
		t.Errorf("Expected address not found, got: %v", err)
	}
}

package kavach

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/events"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
)

type CheckoutRequest struct {
	// AddressID picks a saved address. Address, when set, is used instead.
	AddressID  int64
	Address    *models.Address
	CouponCode string
}

func (s *Service) cartItems(ctx context.Context, sh Shopper) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cartFor(ctx, sh)
	if err != nil {
		return nil, err
	}
	return c.Lines(), nil
}

func (s *Service) couponUsage(ctx context.Context, sh Shopper, code string) (int, error) {
	if code == "" || sh.Guest {
		return 0, nil
	}
	return s.orders.CouponRedemptions(ctx, code, sh.ID)
}

// Quote prices the shopper's cart with the active delivery rule and, if
// couponCode is not empty, the coupon. Coupon failures are returned as
// *pricing.CouponError.
func (s *Service) Quote(ctx context.Context, sh Shopper, couponCode string) (*pricing.Quote, error) {
	items, err := s.cartItems(ctx, sh)
	if err != nil {
		return nil, err
	}

	products, err := s.products.GetProducts(ctx, cartProductIDs(items))
	if err != nil {
		return nil, err
	}

	rule, err := s.activeRule(ctx)
	if err != nil {
		return nil, err
	}

	var coupon *models.Coupon
	code := models.NormalizeCode(couponCode)
	if code != "" {
		coupon, err = s.coupons.GetCouponByCode(ctx, code)
		if err != nil {
			return nil, err
		}
	}

	usage, err := s.couponUsage(ctx, sh, code)
	if err != nil {
		return nil, err
	}

	return pricing.Build(items, productLookup(products), rule, coupon, pricing.EvalOptions{
		Now:       s.now(),
		UserUsage: usage,
	})
}

// Checkout turns the shopper's cart into an order. Stock is checked and
// decremented, the per-user coupon limit checked and the coupon redeemed,
// in one repository operation; the cart lines are then removed from the
// cart.
func (s *Service) Checkout(ctx context.Context, sh Shopper, req CheckoutRequest) (*models.Order, error) {
	if sh.Guest || sh.ID == "" {
		return nil, ErrLoginRequired
	}

	address, err := s.resolveAddress(ctx, sh, req)
	if err != nil {
		return nil, err
	}

	items, err := s.cartItems(ctx, sh)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	rule, err := s.activeRule(ctx)
	if err != nil {
		return nil, err
	}

	code := models.NormalizeCode(req.CouponCode)
	now := s.now()

	// Lines whose product was deleted or deactivated are left out, as the
	// quote leaves them out. Only a stock shortfall fails the checkout.
	var dropped int
	price := func(products map[int64]models.Product, coupon *models.Coupon, usage int) (*pricing.Quote, error) {
		dropped = 0
		available := make([]models.CartItem, 0, len(items))
		for _, it := range items {
			p, ok := products[it.ProductID]
			if !ok || !p.Active {
				dropped++
				continue
			}
			if p.StockQuantity < it.Quantity {
				return nil, fmt.Errorf("%w: %s has %d left", database.ErrInsufficientStock, p.Name, p.StockQuantity)
			}
			available = append(available, it)
		}
		if len(available) == 0 {
			return nil, fmt.Errorf("%w: no item in the cart is available", ErrEmptyCart)
		}
		return pricing.Build(available, productLookup(products), rule, coupon, pricing.EvalOptions{
			Now:       now,
			UserUsage: usage,
		})
	}

	order, err := s.orders.PlaceOrder(ctx, PlaceOrderRequest{
		Owner:      sh.ID,
		Items:      items,
		CouponCode: code,
		Address:    *address,
	}, price)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		order.Notice = fmt.Sprintf("%d unavailable item(s) left out of the order", dropped)
	}

	s.mu.Lock()
	if c, err := s.cartFor(ctx, sh); err == nil {
		for _, it := range items {
			_ = c.Remove(it.ProductID)
		}
	}
	s.mu.Unlock()

	s.publish(ctx, events.OrderCreated, order, "")
	return order, nil
}

func (s *Service) resolveAddress(ctx context.Context, sh Shopper, req CheckoutRequest) (*models.Address, error) {
	if req.Address != nil {
		a := *req.Address
		a.Owner = sh.ID
		if err := ValidateAddress(&a); err != nil {
			return nil, err
		}
		return &a, nil
	}

	a, err := s.addresses.GetAddress(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	if a.Owner != sh.ID {
		return nil, ErrForbidden
	}
	return a, nil
}

func ValidateAddress(a *models.Address) error {
	missing := []string{}
	for field, v := range map[string]string{
		"name":        a.Name,
		"phone":       a.Phone,
		"line1":       a.Line1,
		"city":        a.City,
		"state":       a.State,
		"postal_code": a.PostalCode,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: address missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

package kavach

import (
	"context"
	"fmt"
	"strings"

	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
)

func ValidateProduct(p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	if p.OriginalPrice != nil && p.Price.GreaterThan(*p.OriginalPrice) {
		return fmt.Errorf("%w: price %s exceeds original price %s", ErrInvalidInput, p.Price, p.OriginalPrice)
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	if err := ValidateProduct(&p); err != nil {
		return nil, err
	}
	return s.products.CreateProduct(ctx, &p)
}

// UpdateProduct saves an edited product. p.Version must be the version the
// editor loaded; a stale version fails with database.ErrOptimisticLockFailed.
func (s *Service) UpdateProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	if err := ValidateProduct(&p); err != nil {
		return nil, err
	}
	return s.products.UpdateProduct(ctx, &p)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.products.DeleteProduct(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.products.GetProduct(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.OffsetPage[models.Product], error) {
	filter.Normalize()
	return s.products.ListProducts(ctx, filter)
}

func (s *Service) CreateCoupon(ctx context.Context, c models.Coupon) (*models.Coupon, error) {
	c.Code = models.NormalizeCode(c.Code)
	if err := pricing.ValidateCoupon(&c); err != nil {
		return nil, err
	}
	c.UsageCount = 0
	return s.coupons.CreateCoupon(ctx, &c)
}

func (s *Service) UpdateCoupon(ctx context.Context, c models.Coupon) (*models.Coupon, error) {
	c.Code = models.NormalizeCode(c.Code)
	if err := pricing.ValidateCoupon(&c); err != nil {
		return nil, err
	}
	return s.coupons.UpdateCoupon(ctx, &c)
}

type CouponListing struct {
	models.Coupon
	State pricing.CouponState `json:"state"`
}

func (s *Service) ListCoupons(ctx context.Context) ([]CouponListing, error) {
	coupons, err := s.coupons.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]CouponListing, 0, len(coupons))
	for i := range coupons {
		out = append(out, CouponListing{
			Coupon: coupons[i],
			State:  pricing.ClassifyCoupon(&coupons[i], now),
		})
	}
	return out, nil
}

func (s *Service) DeliveryRule(ctx context.Context) (*models.DeliveryRule, error) {
	return s.rules.ActiveDeliveryRule(ctx)
}

func (s *Service) SetDeliveryRule(ctx context.Context, rule models.DeliveryRule) (*models.DeliveryRule, error) {
	if rule.BaseCharge.IsNegative() || rule.FreeDeliveryThreshold.IsNegative() {
		return nil, fmt.Errorf("%w: delivery amounts must not be negative", ErrInvalidInput)
	}
	rule.Active = true
	return s.rules.SetDeliveryRule(ctx, &rule)
}

func (s *Service) AddAddress(ctx context.Context, owner string, a models.Address) (*models.Address, error) {
	a.Owner = owner
	if err := ValidateAddress(&a); err != nil {
		return nil, err
	}
	return s.addresses.CreateAddress(ctx, &a)
}

func (s *Service) ListAddresses(ctx context.Context, owner string) ([]models.Address, error) {
	return s.addresses.ListAddresses(ctx, owner)
}

func (s *Service) DeleteAddress(ctx context.Context, owner string, id int64) error {
	a, err := s.addresses.GetAddress(ctx, id)
	if err != nil {
		return err
	}
	if a.Owner != owner {
		return ErrForbidden
	}
	return s.addresses.DeleteAddress(ctx, id)
}

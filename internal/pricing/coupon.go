package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/safar/kavach-store/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrCouponInactive   = errors.New("coupon is not active")
	ErrCouponNotStarted = errors.New("coupon is not yet valid")
	ErrCouponExpired    = errors.New("coupon has expired")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrCouponUserLimit  = errors.New("coupon already used the maximum number of times by this customer")
	ErrBelowMinimum     = errors.New("order is below the coupon minimum")
	ErrCategoryMismatch = errors.New("coupon does not apply to these products")
	ErrInvalidCoupon    = errors.New("invalid coupon")
)

// CouponError reports why a coupon could not be applied.
type CouponError struct {
	Code   string
	Reason error
	Detail string
}

func (e *CouponError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("coupon %s: %v (%s)", e.Code, e.Reason, e.Detail)
	}
	return fmt.Sprintf("coupon %s: %v", e.Code, e.Reason)
}

func (e *CouponError) Unwrap() error { return e.Reason }

type EvalOptions struct {
	Now        time.Time
	Categories []string
	// UserUsage is how many times the current customer already redeemed the
	// coupon. Only checked when the coupon has a per-user limit.
	UserUsage int
}

type CouponResult struct {
	Discount     decimal.Decimal
	FreeShipping bool
}

// EvaluateCoupon checks applicability and computes the discount for subtotal.
// Checks run in a fixed order so the first failing reason is reported.
func EvaluateCoupon(c *models.Coupon, subtotal decimal.Decimal, opts EvalOptions) (CouponResult, error) {
	fail := func(reason error, detail string) (CouponResult, error) {
		return CouponResult{}, &CouponError{Code: c.Code, Reason: reason, Detail: detail}
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	if !c.Type.Valid() {
		return fail(ErrInvalidCoupon, fmt.Sprintf("unknown type %q", c.Type))
	}
	if !c.Active {
		return fail(ErrCouponInactive, "")
	}
	if !c.StartDate.IsZero() && now.Before(c.StartDate) {
		return fail(ErrCouponNotStarted, "starts "+c.StartDate.Format(time.RFC3339))
	}
	if !c.EndDate.IsZero() && now.After(c.EndDate) {
		return fail(ErrCouponExpired, "ended "+c.EndDate.Format(time.RFC3339))
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return fail(ErrCouponExhausted, "")
	}
	if c.PerUserLimit > 0 && opts.UserUsage >= c.PerUserLimit {
		return fail(ErrCouponUserLimit, "")
	}
	if subtotal.LessThan(c.MinimumOrderAmount) {
		return fail(ErrBelowMinimum, "minimum "+c.MinimumOrderAmount.StringFixed(2))
	}
	if len(c.Categories) > 0 && !anyCategory(c.Categories, opts.Categories) {
		return fail(ErrCategoryMismatch, "")
	}

	switch c.Type {
	case models.CouponPercentage:
		discount := subtotal.Mul(c.Value).Div(hundred)
		if c.MaximumDiscountAmount != nil && discount.GreaterThan(*c.MaximumDiscountAmount) {
			discount = *c.MaximumDiscountAmount
		}
		return CouponResult{Discount: discount}, nil
	case models.CouponFixed:
		return CouponResult{Discount: decimal.Min(c.Value, subtotal)}, nil
	default:
		return CouponResult{Discount: decimal.Zero, FreeShipping: true}, nil
	}
}

func anyCategory(allowed, have []string) bool {
	for _, a := range allowed {
		for _, h := range have {
			if a == h {
				return true
			}
		}
	}
	return false
}

type CouponState string

const (
	CouponStateActive    CouponState = "active"
	CouponStateScheduled CouponState = "scheduled"
	CouponStateExpired   CouponState = "expired"
	CouponStateExhausted CouponState = "exhausted"
	CouponStateDisabled  CouponState = "disabled"
)

// ClassifyCoupon labels a coupon for admin listings.
func ClassifyCoupon(c *models.Coupon, now time.Time) CouponState {
	switch {
	case !c.Active:
		return CouponStateDisabled
	case !c.EndDate.IsZero() && now.After(c.EndDate):
		return CouponStateExpired
	case c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit:
		return CouponStateExhausted
	case !c.StartDate.IsZero() && now.Before(c.StartDate):
		return CouponStateScheduled
	}
	return CouponStateActive
}

// ValidateCoupon checks a coupon definition at the admin mutation boundary.
func ValidateCoupon(c *models.Coupon) error {
	if models.NormalizeCode(c.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidCoupon)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCoupon, c.Type)
	}
	if c.Value.IsNegative() {
		return fmt.Errorf("%w: value must not be negative", ErrInvalidCoupon)
	}
	if c.Type == models.CouponPercentage && c.Value.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage above 100", ErrInvalidCoupon)
	}
	if c.MinimumOrderAmount.IsNegative() {
		return fmt.Errorf("%w: minimum order amount must not be negative", ErrInvalidCoupon)
	}
	if c.MaximumDiscountAmount != nil && c.MaximumDiscountAmount.IsNegative() {
		return fmt.Errorf("%w: maximum discount must not be negative", ErrInvalidCoupon)
	}
	if c.UsageLimit != nil && *c.UsageLimit < 0 {
		return fmt.Errorf("%w: usage limit must not be negative", ErrInvalidCoupon)
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidCoupon)
	}
	return nil
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage   CouponType = "percentage"
	CouponFixed        CouponType = "fixed"
	CouponFreeShipping CouponType = "free_shipping"
)

func (t CouponType) Valid() bool {
	switch t {
	case CouponPercentage, CouponFixed, CouponFreeShipping:
		return true
	}
	return false
}

type Coupon struct {
	ID                    int64            `json:"id" yaml:"id"`
	Code                  string           `json:"code" yaml:"code"`
	Description           string           `json:"description,omitempty" yaml:"description"`
	Type                  CouponType       `json:"type" yaml:"type"`
	Value                 decimal.Decimal  `json:"value" yaml:"value"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimum_order_amount" yaml:"minimum_order_amount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty" yaml:"maximum_discount_amount"`
	UsageLimit            *int             `json:"usage_limit,omitempty" yaml:"usage_limit"`
	UsageCount            int              `json:"usage_count" yaml:"usage_count"`
	PerUserLimit          int              `json:"per_user_limit,omitempty" yaml:"per_user_limit"`
	StartDate             time.Time        `json:"start_date" yaml:"start_date"`
	EndDate               time.Time        `json:"end_date" yaml:"end_date"`
	Active                bool             `json:"active" yaml:"active"`
	Categories            []string         `json:"categories,omitempty" yaml:"categories"`
	Version               int              `json:"version" yaml:"-"`
}

// NormalizeCode upper-cases and trims a coupon code the way customers type it.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

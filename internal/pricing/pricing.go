package pricing

import (
	"github.com/safar/kavach-store/internal/models"
	"github.com/shopspring/decimal"
)

// ProductLookup resolves a product by id. ok is false when the product no
// longer exists.
type ProductLookup func(productID int64) (product models.Product, ok bool)

// Line is a priced cart line.
type Line struct {
	ProductID int64
	Name      string
	Category  string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

type Quote struct {
	Lines          []Line          `json:"-"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"delivery_charge"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	ItemCount      int             `json:"item_count"`
}

var hundred = decimal.NewFromInt(100)

// PriceLines resolves cart items against the catalogue. Items whose product
// is gone, or whose quantity is not positive, are dropped.
func PriceLines(items []models.CartItem, lookup ProductLookup) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		product, ok := lookup(item.ProductID)
		if !ok {
			continue
		}
		lines = append(lines, Line{
			ProductID: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return lines
}

// Subtotal is the sum of price x quantity over items whose product exists.
func Subtotal(items []models.CartItem, lookup ProductLookup) decimal.Decimal {
	return sumLines(PriceLines(items, lookup))
}

func sumLines(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// DeliveryCharge returns zero when subtotal reaches the rule's free delivery
// threshold and the flat base charge otherwise. A nil or inactive rule
// charges nothing.
func DeliveryCharge(subtotal decimal.Decimal, rule *models.DeliveryRule) decimal.Decimal {
	if rule == nil || !rule.Active {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(rule.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return rule.BaseCharge
}

// AmountToFreeDelivery is how much more the customer must add to qualify for
// free delivery. Zero when already qualified or when no rule applies.
func AmountToFreeDelivery(subtotal decimal.Decimal, rule *models.DeliveryRule) decimal.Decimal {
	if rule == nil || !rule.Active || subtotal.GreaterThanOrEqual(rule.FreeDeliveryThreshold) {
		return decimal.Zero
	}
	return rule.FreeDeliveryThreshold.Sub(subtotal)
}

// Categories returns the distinct product categories of the priced lines.
func Categories(lines []Line) []string {
	seen := make(map[string]bool, len(lines))
	var out []string
	for _, l := range lines {
		if l.Category == "" || seen[l.Category] {
			continue
		}
		seen[l.Category] = true
		out = append(out, l.Category)
	}
	return out
}

// Build prices the lines, applies the delivery rule and, when coupon is not
// nil, the coupon. Coupon failures are returned and no quote is produced.
func Build(lines []models.CartItem, lookup ProductLookup, rule *models.DeliveryRule, coupon *models.Coupon, opts EvalOptions) (*Quote, error) {
	priced := PriceLines(lines, lookup)
	q := &Quote{
		Lines:    priced,
		Subtotal: sumLines(priced),
	}
	for _, l := range priced {
		q.ItemCount += l.Quantity
	}
	q.DeliveryCharge = DeliveryCharge(q.Subtotal, rule)
	q.Discount = decimal.Zero

	if coupon != nil {
		opts.Categories = Categories(priced)
		result, err := EvaluateCoupon(coupon, q.Subtotal, opts)
		if err != nil {
			return nil, err
		}
		q.CouponCode = coupon.Code
		q.Discount = result.Discount
		if result.FreeShipping {
			q.DeliveryCharge = decimal.Zero
		}
	}

	// Total is derived from the rounded discount so that
	// Total = Subtotal - Discount + DeliveryCharge holds to the paisa.
	q.Discount = q.Discount.Round(2)
	total := q.Subtotal.Sub(q.Discount).Add(q.DeliveryCharge)
	if total.IsNegative() {
		total = decimal.Zero
	}
	q.Total = total
	return q, nil
}

// DiscountPercent is the whole-number percentage off the list price. Zero
// when there is no list price or it does not exceed the selling price.
func DiscountPercent(price decimal.Decimal, original *decimal.Decimal) int {
	if original == nil || !original.GreaterThan(price) || original.IsZero() {
		return 0
	}
	off := original.Sub(price).Div(*original).Mul(hundred)
	return int(off.Round(0).IntPart())
}

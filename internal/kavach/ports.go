package kavach

import (
	"context"

	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
	"github.com/safar/kavach-store/internal/workflow"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// GetProducts returns the products that exist among ids. Missing ids are
	// simply absent from the map.
	GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	// UpdateProduct saves p if its Version matches the stored one.
	UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, filter models.ProductFilter) (*models.OffsetPage[models.Product], error)
}

type CouponRepository interface {
	CreateCoupon(ctx context.Context, c *models.Coupon) (*models.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	UpdateCoupon(ctx context.Context, c *models.Coupon) (*models.Coupon, error)
	ListCoupons(ctx context.Context) ([]models.Coupon, error)
}

type DeliveryRuleRepository interface {
	// ActiveDeliveryRule returns the single active rule or
	// database.ErrNoDeliveryRule.
	ActiveDeliveryRule(ctx context.Context) (*models.DeliveryRule, error)
	// SetDeliveryRule stores rule as the only active rule.
	SetDeliveryRule(ctx context.Context, rule *models.DeliveryRule) (*models.DeliveryRule, error)
}

type AddressRepository interface {
	CreateAddress(ctx context.Context, a *models.Address) (*models.Address, error)
	GetAddress(ctx context.Context, id int64) (*models.Address, error)
	ListAddresses(ctx context.Context, owner string) ([]models.Address, error)
	DeleteAddress(ctx context.Context, id int64) error
}

// Pricer prices an order from product and coupon rows locked by the
// repository. A nil coupon means no coupon was requested. userUsage is the
// owner's redemption count of the coupon, counted while the coupon is
// locked; it is zero without a coupon.
type Pricer func(products map[int64]models.Product, coupon *models.Coupon, userUsage int) (*pricing.Quote, error)

type PlaceOrderRequest struct {
	Owner      string
	Items      []models.CartItem
	CouponCode string
	Address    models.Address
}

type OrderRepository interface {
	// PlaceOrder atomically locks the products and coupon, prices the order
	// with price, decrements stock, bumps coupon usage and stores the order.
	PlaceOrder(ctx context.Context, req PlaceOrderRequest, price Pricer) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) (*models.CursorPage[models.Order], error)
	// TransitionOrder applies event through the order workflow. Cancelling
	// returns the items to stock.
	TransitionOrder(ctx context.Context, id int64, event workflow.OrderEvent) (*models.Order, error)
	// CouponRedemptions counts the non-cancelled orders of owner that used
	// the coupon.
	CouponRedemptions(ctx context.Context, code, owner string) (int, error)
}

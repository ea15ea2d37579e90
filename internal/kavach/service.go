// Package kavach is the merchandise shop: catalogue, carts, wishlists,
// coupons, delivery charges, checkout and order status changes.
package kavach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/safar/kavach-store/internal/cart"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/events"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
	"github.com/safar/kavach-store/internal/workflow"
)

var (
	ErrEmptyCart     = errors.New("cart is empty")
	ErrLoginRequired = errors.New("sign in to place an order")
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("record belongs to another customer")
)

// Shopper identifies whose cart is being touched. Guest carts are mirrored
// to the configured cart.Mirror; signed-in carts live in memory only.
type Shopper struct {
	ID    string
	Guest bool
}

type Service struct {
	products  ProductRepository
	orders    OrderRepository
	coupons   CouponRepository
	rules     DeliveryRuleRepository
	addresses AddressRepository

	mirror    cart.Mirror
	publisher events.Publisher
	now       func() time.Time
	lowStock  int

	mu        sync.Mutex
	carts     map[string]*cart.Cart
	wishlists map[string]*cart.Wishlist
}

type Option func(*Service)

func WithMirror(m cart.Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLowStockThreshold(n int) Option {
	return func(s *Service) { s.lowStock = n }
}

type Repositories struct {
	Products  ProductRepository
	Orders    OrderRepository
	Coupons   CouponRepository
	Rules     DeliveryRuleRepository
	Addresses AddressRepository
}

func NewService(repos Repositories, opts ...Option) *Service {
	s := &Service{
		products:  repos.Products,
		orders:    repos.Orders,
		coupons:   repos.Coupons,
		rules:     repos.Rules,
		addresses: repos.Addresses,
		mirror:    cart.NopMirror{},
		publisher: events.NopPublisher{},
		now:       time.Now,
		lowStock:  5,
		carts:     make(map[string]*cart.Cart),
		wishlists: make(map[string]*cart.Wishlist),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func cartKey(sh Shopper) string {
	if sh.Guest {
		return "guest:" + sh.ID
	}
	return "user:" + sh.ID
}

// cartFor returns the live cart of sh, loading a guest cart from the mirror
// on first use. Callers must hold s.mu.
func (s *Service) cartFor(ctx context.Context, sh Shopper) (*cart.Cart, error) {
	key := cartKey(sh)
	if c, ok := s.carts[key]; ok {
		return c, nil
	}

	var c *cart.Cart
	if sh.Guest {
		loaded, ok, err := s.mirror.LoadCart(ctx, sh.ID)
		if err != nil {
			return nil, fmt.Errorf("load guest cart: %w", err)
		}
		if ok {
			c = loaded
		}
	}
	if c == nil {
		c = cart.New(sh.ID, sh.Guest)
	}
	s.carts[key] = c
	return c, nil
}

func (s *Service) wishlistFor(ctx context.Context, sh Shopper) (*cart.Wishlist, error) {
	key := cartKey(sh)
	if w, ok := s.wishlists[key]; ok {
		return w, nil
	}

	var w *cart.Wishlist
	if sh.Guest {
		loaded, ok, err := s.mirror.LoadWishlist(ctx, sh.ID)
		if err != nil {
			return nil, fmt.Errorf("load guest wishlist: %w", err)
		}
		if ok {
			w = loaded
		}
	}
	if w == nil {
		w = cart.NewWishlist(sh.ID)
	}
	s.wishlists[key] = w
	return w, nil
}

func (s *Service) persist(ctx context.Context, sh Shopper, c *cart.Cart) error {
	if !sh.Guest {
		return nil
	}
	if err := s.mirror.SaveCart(ctx, c); err != nil {
		return fmt.Errorf("save guest cart: %w", err)
	}
	return nil
}

func (s *Service) persistWishlist(ctx context.Context, sh Shopper, w *cart.Wishlist) error {
	if !sh.Guest {
		return nil
	}
	if err := s.mirror.SaveWishlist(ctx, w); err != nil {
		return fmt.Errorf("save guest wishlist: %w", err)
	}
	return nil
}

// stockLookup answers from a prefetched product snapshot. Inactive products
// are treated as unavailable.
func stockLookup(products map[int64]models.Product) cart.StockLookup {
	return func(id int64) (int, bool) {
		p, ok := products[id]
		if !ok || !p.Active {
			return 0, false
		}
		return p.StockQuantity, true
	}
}

func productLookup(products map[int64]models.Product) pricing.ProductLookup {
	return func(id int64) (models.Product, bool) {
		p, ok := products[id]
		if !ok || !p.Active {
			return models.Product{}, false
		}
		return p, true
	}
}

func cartProductIDs(items []models.CartItem, extra ...int64) []int64 {
	ids := make([]int64, 0, len(items)+len(extra))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return append(ids, extra...)
}

func (s *Service) activeRule(ctx context.Context) (*models.DeliveryRule, error) {
	rule, err := s.rules.ActiveDeliveryRule(ctx)
	if errors.Is(err, database.ErrNoDeliveryRule) {
		return nil, nil
	}
	return rule, err
}

func (s *Service) publish(ctx context.Context, kind string, o *models.Order, previous models.OrderStatus) {
	evt := events.NewOrderEvent(kind, o, previous, s.now())
	if err := s.publisher.Publish(ctx, evt); err != nil {
		log.Printf("Publish %s for order %s: %v", kind, o.OrderNumber, err)
	}
}

// StockStatus classifies p using the configured low stock threshold.
func (s *Service) StockStatus(p *models.Product) pricing.StockStatus {
	return pricing.StockLevel(p.StockQuantity, s.lowStock)
}

// UpdateOrderStatus moves an order through its workflow. Illegal moves
// return a *workflow.TransitionError.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, event workflow.OrderEvent) (*models.Order, error) {
	before, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Order.Fire(before.Status, event); err != nil {
		return nil, err
	}

	order, err := s.orders.TransitionOrder(ctx, id, event)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderStatusChanged, order, before.Status)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, filter models.OrderFilter) (*models.CursorPage[models.Order], error) {
	filter.Normalize()
	return s.orders.ListOrders(ctx, filter)
}

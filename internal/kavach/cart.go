package kavach

import (
	"context"
	"errors"

	"github.com/safar/kavach-store/internal/cart"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
	"github.com/shopspring/decimal"
)

type CartLine struct {
	ProductID   int64               `json:"product_id"`
	Name        string              `json:"name"`
	Quantity    int                 `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Stock       int                 `json:"stock"`
	StockStatus pricing.StockStatus `json:"stock_status"`
}

type CartView struct {
	Owner                string          `json:"owner"`
	Guest                bool            `json:"guest"`
	Lines                []CartLine      `json:"lines"`
	Quote                *pricing.Quote  `json:"quote"`
	AmountToFreeDelivery decimal.Decimal `json:"amount_to_free_delivery"`
	// Notice is set when a request was only partly honoured, e.g. a
	// quantity clamped to the available stock.
	Notice string `json:"notice,omitempty"`
}

// mutate runs fn against the live cart with a fresh product snapshot and
// returns the resulting view. fn errors listed in soft are reported as a
// notice instead of failing the call.
func (s *Service) mutate(ctx context.Context, sh Shopper, extra []int64, fn func(c *cart.Cart, stock cart.StockLookup) error, soft ...error) (*CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.cartFor(ctx, sh)
	if err != nil {
		return nil, err
	}

	products, err := s.products.GetProducts(ctx, cartProductIDs(c.Items, extra...))
	if err != nil {
		return nil, err
	}
	stock := stockLookup(products)

	var notice string
	if err := fn(c, stock); err != nil {
		if !isOneOf(err, soft) {
			return nil, err
		}
		notice = err.Error()
	}

	if err := s.persist(ctx, sh, c); err != nil {
		return nil, err
	}

	view, err := s.view(ctx, c, products)
	if err != nil {
		return nil, err
	}
	view.Notice = notice
	return view, nil
}

func isOneOf(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func (s *Service) view(ctx context.Context, c *cart.Cart, products map[int64]models.Product) (*CartView, error) {
	rule, err := s.activeRule(ctx)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.Build(c.Lines(), productLookup(products), rule, nil, pricing.EvalOptions{Now: s.now()})
	if err != nil {
		return nil, err
	}

	view := &CartView{
		Owner:                c.Owner,
		Guest:                c.Guest,
		Lines:                make([]CartLine, 0, len(quote.Lines)),
		Quote:                quote,
		AmountToFreeDelivery: pricing.AmountToFreeDelivery(quote.Subtotal, rule),
	}
	for _, l := range quote.Lines {
		p := products[l.ProductID]
		view.Lines = append(view.Lines, CartLine{
			ProductID:   l.ProductID,
			Name:        l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
			Stock:       p.StockQuantity,
			StockStatus: s.StockStatus(&p),
		})
	}
	return view, nil
}

// Cart returns the shopper's cart re-checked against current stock.
func (s *Service) Cart(ctx context.Context, sh Shopper) (*CartView, error) {
	return s.mutate(ctx, sh, nil, func(c *cart.Cart, stock cart.StockLookup) error {
		c.Reconcile(stock)
		return nil
	})
}

func (s *Service) AddToCart(ctx context.Context, sh Shopper, productID int64, qty int) (*CartView, error) {
	return s.mutate(ctx, sh, []int64{productID}, func(c *cart.Cart, stock cart.StockLookup) error {
		return c.Add(productID, qty, stock)
	}, cart.ErrStockLimit)
}

// UpdateQuantity sets a line's quantity; zero or below removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, sh Shopper, productID int64, qty int) (*CartView, error) {
	return s.mutate(ctx, sh, nil, func(c *cart.Cart, stock cart.StockLookup) error {
		return c.SetQuantity(productID, qty, stock)
	}, cart.ErrStockLimit, cart.ErrOutOfStock, cart.ErrUnknownProduct)
}

// Increment adds one unit; at the stock ceiling it fails with
// cart.ErrStockLimit. A sold-out line is dropped with cart.ErrOutOfStock.
func (s *Service) Increment(ctx context.Context, sh Shopper, productID int64) (*CartView, error) {
	return s.mutate(ctx, sh, nil, func(c *cart.Cart, stock cart.StockLookup) error {
		return c.Increment(productID, stock)
	})
}

func (s *Service) Decrement(ctx context.Context, sh Shopper, productID int64) (*CartView, error) {
	return s.mutate(ctx, sh, nil, func(c *cart.Cart, _ cart.StockLookup) error {
		return c.Decrement(productID)
	})
}

func (s *Service) RemoveFromCart(ctx context.Context, sh Shopper, productID int64) (*CartView, error) {
	return s.mutate(ctx, sh, nil, func(c *cart.Cart, _ cart.StockLookup) error {
		return c.Remove(productID)
	})
}

func (s *Service) ClearCart(ctx context.Context, sh Shopper) (*CartView, error) {
	return s.mutate(ctx, sh, nil, func(c *cart.Cart, _ cart.StockLookup) error {
		c.Clear()
		return nil
	})
}

func (s *Service) Wishlist(ctx context.Context, sh Shopper) (*cart.Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.wishlistFor(ctx, sh)
	if err != nil {
		return nil, err
	}
	out := *w
	out.Items = append([]models.WishlistItem(nil), w.Items...)
	return &out, nil
}

// ToggleWishlist adds or removes a product and reports whether it is now in
// the wishlist.
func (s *Service) ToggleWishlist(ctx context.Context, sh Shopper, productID int64) (bool, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.wishlistFor(ctx, sh)
	if err != nil {
		return false, err
	}
	in := w.Toggle(productID, s.now())
	if err := s.persistWishlist(ctx, sh, w); err != nil {
		return false, err
	}
	return in, nil
}

func (s *Service) MoveToCart(ctx context.Context, sh Shopper, productID int64) (*CartView, error) {
	s.mu.Lock()
	w, err := s.wishlistFor(ctx, sh)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	view, err := s.mutate(ctx, sh, []int64{productID}, func(c *cart.Cart, stock cart.StockLookup) error {
		return w.MoveToCart(productID, c, stock)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistWishlist(ctx, sh, w); err != nil {
		return nil, err
	}
	return view, nil
}

// MergeGuestCart folds a guest's cart and wishlist into a signed-in
// customer's and forgets the guest state.
func (s *Service) MergeGuestCart(ctx context.Context, guestID, userID string) (*CartView, error) {
	guestItems, err := s.takeGuestState(ctx, Shopper{ID: guestID, Guest: true}, Shopper{ID: userID})
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, Shopper{ID: userID}, cartProductIDs(guestItems), func(c *cart.Cart, stock cart.StockLookup) error {
		c.Merge(&cart.Cart{Items: guestItems}, stock)
		return nil
	})
}

func (s *Service) takeGuestState(ctx context.Context, guest, user Shopper) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gc, err := s.cartFor(ctx, guest)
	if err != nil {
		return nil, err
	}
	gw, err := s.wishlistFor(ctx, guest)
	if err != nil {
		return nil, err
	}
	uw, err := s.wishlistFor(ctx, user)
	if err != nil {
		return nil, err
	}
	uw.Merge(gw)

	delete(s.carts, cartKey(guest))
	delete(s.wishlists, cartKey(guest))
	if err := s.mirror.Delete(ctx, guest.ID); err != nil {
		return nil, err
	}
	return gc.Lines(), nil
}

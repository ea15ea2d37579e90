// Package cart implements the stock-aware cart and the wishlist. A cart line
// always holds a quantity in [1, stock]; a line that would drop to zero is
// removed instead.
package cart

import (
	"errors"
	"time"

	"github.com/safar/kavach-store/internal/models"
)

var (
	ErrUnknownProduct = errors.New("product not found")
	ErrOutOfStock     = errors.New("product is out of stock")
	ErrStockLimit     = errors.New("quantity limited by available stock")
	ErrNotInCart      = errors.New("product not in cart")
	ErrInvalidQty     = errors.New("quantity must be positive")
	ErrNotInWishlist  = errors.New("product not in wishlist")
)

// StockLookup returns the available stock of a product. ok is false when
// the product does not exist or is not for sale.
type StockLookup func(productID int64) (stock int, ok bool)

type Cart struct {
	Owner string            `json:"owner"`
	Guest bool              `json:"guest"`
	Items []models.CartItem `json:"items"`

	now func() time.Time
}

func New(owner string, guest bool) *Cart {
	return &Cart{Owner: owner, Guest: guest, now: time.Now}
}

func (c *Cart) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func (c *Cart) index(productID int64) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts qty units of a product in the cart, merging with an existing line.
// The resulting quantity is clamped to stock; ErrStockLimit is returned
// alongside the clamped line when clamping happened.
func (c *Cart) Add(productID int64, qty int, stock StockLookup) error {
	if qty <= 0 {
		return ErrInvalidQty
	}
	available, ok := stock(productID)
	if !ok {
		return ErrUnknownProduct
	}
	if available <= 0 {
		return ErrOutOfStock
	}

	i := c.index(productID)
	current := 0
	if i >= 0 {
		current = c.Items[i].Quantity
	}

	want := current + qty
	var err error
	if want > available {
		want = available
		err = ErrStockLimit
	}

	if i >= 0 {
		c.Items[i].Quantity = want
	} else {
		c.Items = append(c.Items, models.CartItem{ProductID: productID, Quantity: want, AddedAt: c.clock()})
	}
	return err
}

// SetQuantity replaces a line's quantity. Zero or below removes the line.
func (c *Cart) SetQuantity(productID int64, qty int, stock StockLookup) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	if qty <= 0 {
		c.removeAt(i)
		return nil
	}

	available, ok := stock(productID)
	if !ok {
		c.removeAt(i)
		return ErrUnknownProduct
	}
	if available <= 0 {
		c.removeAt(i)
		return ErrOutOfStock
	}
	if qty > available {
		c.Items[i].Quantity = available
		return ErrStockLimit
	}
	c.Items[i].Quantity = qty
	return nil
}

// Increment adds one unit. At the stock ceiling the quantity is clamped to
// stock and ErrStockLimit is returned. A line whose product is gone or sold
// out is removed, as SetQuantity does.
func (c *Cart) Increment(productID int64, stock StockLookup) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	available, ok := stock(productID)
	if !ok {
		c.removeAt(i)
		return ErrUnknownProduct
	}
	if available <= 0 {
		c.removeAt(i)
		return ErrOutOfStock
	}
	if c.Items[i].Quantity >= available {
		c.Items[i].Quantity = available
		return ErrStockLimit
	}
	c.Items[i].Quantity++
	return nil
}

// Decrement removes one unit; a line at quantity 1 is removed entirely.
func (c *Cart) Decrement(productID int64) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	if c.Items[i].Quantity <= 1 {
		c.removeAt(i)
		return nil
	}
	c.Items[i].Quantity--
	return nil
}

func (c *Cart) Remove(productID int64) error {
	i := c.index(productID)
	if i < 0 {
		return ErrNotInCart
	}
	c.removeAt(i)
	return nil
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

func (c *Cart) Clear() { c.Items = nil }

func (c *Cart) Quantity(productID int64) int {
	if i := c.index(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []models.CartItem {
	out := make([]models.CartItem, len(c.Items))
	copy(out, c.Items)
	return out
}

// Count is the total number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Reconcile re-clamps every line against current stock, dropping lines for
// products that are gone or sold out. It reports whether anything changed.
func (c *Cart) Reconcile(stock StockLookup) bool {
	changed := false
	kept := c.Items[:0]
	for _, it := range c.Items {
		available, ok := stock(it.ProductID)
		if !ok || available <= 0 || it.Quantity <= 0 {
			changed = true
			continue
		}
		if it.Quantity > available {
			it.Quantity = available
			changed = true
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return changed
}

// Merge folds other into c, clamping merged quantities to stock. Lines for
// products that no longer exist or are sold out are dropped.
func (c *Cart) Merge(other *Cart, stock StockLookup) {
	if other == nil {
		return
	}
	for _, it := range other.Items {
		_ = c.Add(it.ProductID, it.Quantity, stock)
	}
}

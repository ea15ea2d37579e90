package cart

import (
	"time"

	"github.com/safar/kavach-store/internal/models"
)

type Wishlist struct {
	Owner string                `json:"owner"`
	Items []models.WishlistItem `json:"items"`
}

func NewWishlist(owner string) *Wishlist {
	return &Wishlist{Owner: owner}
}

func (w *Wishlist) Contains(productID int64) bool {
	for _, it := range w.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

// Add is idempotent; it reports whether the product was newly added.
func (w *Wishlist) Add(productID int64, at time.Time) bool {
	if w.Contains(productID) {
		return false
	}
	w.Items = append(w.Items, models.WishlistItem{ProductID: productID, AddedAt: at})
	return true
}

func (w *Wishlist) Remove(productID int64) bool {
	for i, it := range w.Items {
		if it.ProductID == productID {
			w.Items = append(w.Items[:i], w.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle adds the product if absent and removes it otherwise. It returns
// whether the product is in the wishlist afterwards.
func (w *Wishlist) Toggle(productID int64, at time.Time) bool {
	if w.Remove(productID) {
		return false
	}
	w.Add(productID, at)
	return true
}

// MoveToCart moves a wishlist product into c with quantity 1. The product
// stays in the wishlist if the cart rejects it.
func (w *Wishlist) MoveToCart(productID int64, c *Cart, stock StockLookup) error {
	if !w.Contains(productID) {
		return ErrNotInWishlist
	}
	if err := c.Add(productID, 1, stock); err != nil && err != ErrStockLimit {
		return err
	}
	w.Remove(productID)
	return nil
}

func (w *Wishlist) Merge(other *Wishlist) {
	if other == nil {
		return
	}
	for _, it := range other.Items {
		w.Add(it.ProductID, it.AddedAt)
	}
}

// Package memstore keeps every record type in process memory. It is the
// default backend and mirrors what the Postgres store does, minus
// durability.
package memstore

// Collection is an insertion-ordered map. It does no locking of its own;
// the owning store serialises access.
type Collection[K comparable, T any] struct {
	order []K
	items map[K]T
}

func NewCollection[K comparable, T any]() *Collection[K, T] {
	return &Collection[K, T]{items: make(map[K]T)}
}

// Put inserts or replaces. New keys go to the end of the order.
func (c *Collection[K, T]) Put(k K, v T) {
	if _, ok := c.items[k]; !ok {
		c.order = append(c.order, k)
	}
	c.items[k] = v
}

func (c *Collection[K, T]) Get(k K) (T, bool) {
	v, ok := c.items[k]
	return v, ok
}

func (c *Collection[K, T]) Delete(k K) bool {
	if _, ok := c.items[k]; !ok {
		return false
	}
	delete(c.items, k)
	for i, key := range c.order {
		if key == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Collection[K, T]) Len() int { return len(c.items) }

// Filter returns the values matching keep, in insertion order. A nil keep
// matches everything.
func (c *Collection[K, T]) Filter(keep func(T) bool) []T {
	out := make([]T, 0, len(c.order))
	for _, k := range c.order {
		v := c.items[k]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (c *Collection[K, T]) List() []T { return c.Filter(nil) }

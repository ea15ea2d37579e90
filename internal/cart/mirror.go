package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultGuestTTL = 30 * 24 * time.Hour
	DefaultPrefix   = "kavach:guest:"
)

// Mirror persists guest carts and wishlists outside process memory.
// Authenticated carts are never mirrored.
type Mirror interface {
	LoadCart(ctx context.Context, guestID string) (*Cart, bool, error)
	SaveCart(ctx context.Context, c *Cart) error
	LoadWishlist(ctx context.Context, guestID string) (*Wishlist, bool, error)
	SaveWishlist(ctx context.Context, w *Wishlist) error
	Delete(ctx context.Context, guestID string) error
}

// RedisMirror stores guest state as JSON under fixed keys:
// <prefix><guest>:cart and <prefix><guest>:wishlist.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type MirrorOption func(*RedisMirror)

func WithTTL(ttl time.Duration) MirrorOption {
	return func(m *RedisMirror) {
		m.ttl = ttl
	}
}

func WithPrefix(prefix string) MirrorOption {
	return func(m *RedisMirror) {
		m.prefix = prefix
	}
}

func NewRedisMirror(client *redis.Client, opts ...MirrorOption) *RedisMirror {
	m := &RedisMirror{
		client: client,
		ttl:    DefaultGuestTTL,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RedisMirror) CartKey(guestID string) string {
	return m.prefix + guestID + ":cart"
}

func (m *RedisMirror) WishlistKey(guestID string) string {
	return m.prefix + guestID + ":wishlist"
}

func (m *RedisMirror) LoadCart(ctx context.Context, guestID string) (*Cart, bool, error) {
	c := New(guestID, true)
	ok, err := m.load(ctx, m.CartKey(guestID), c)
	if err != nil || !ok {
		return nil, false, err
	}
	c.Owner = guestID
	c.Guest = true
	return c, true, nil
}

func (m *RedisMirror) SaveCart(ctx context.Context, c *Cart) error {
	if !c.Guest {
		return nil
	}
	return m.save(ctx, m.CartKey(c.Owner), c)
}

func (m *RedisMirror) LoadWishlist(ctx context.Context, guestID string) (*Wishlist, bool, error) {
	w := NewWishlist(guestID)
	ok, err := m.load(ctx, m.WishlistKey(guestID), w)
	if err != nil || !ok {
		return nil, false, err
	}
	w.Owner = guestID
	return w, true, nil
}

func (m *RedisMirror) SaveWishlist(ctx context.Context, w *Wishlist) error {
	return m.save(ctx, m.WishlistKey(w.Owner), w)
}

func (m *RedisMirror) Delete(ctx context.Context, guestID string) error {
	if err := m.client.Del(ctx, m.CartKey(guestID), m.WishlistKey(guestID)).Err(); err != nil {
		return fmt.Errorf("delete guest state: %w", err)
	}
	return nil
}

func (m *RedisMirror) load(ctx context.Context, key string, into interface{}) (bool, error) {
	val, err := m.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), into); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *RedisMirror) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := m.client.Set(ctx, key, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// NopMirror keeps nothing; used when no Redis is configured.
type NopMirror struct{}

func (NopMirror) LoadCart(context.Context, string) (*Cart, bool, error)         { return nil, false, nil }
func (NopMirror) SaveCart(context.Context, *Cart) error                         { return nil }
func (NopMirror) LoadWishlist(context.Context, string) (*Wishlist, bool, error) { return nil, false, nil }
func (NopMirror) SaveWishlist(context.Context, *Wishlist) error                 { return nil }
func (NopMirror) Delete(context.Context, string) error                          { return nil }

// Package store implements the kavach repositories on PostgreSQL. Checkout
// and status changes run in serializable transactions that lock the rows
// they touch and are retried on serialization failures.
package store

import (
	"database/sql"

	"github.com/safar/kavach-store/internal/kavach"
	"github.com/shopspring/decimal"
)

type Store struct {
	db     *sql.DB
	noWait bool
}

type Option func(*Store)

// WithNoWait makes checkout fail fast on locked product rows and retry,
// instead of queueing behind the lock holder.
func WithNoWait() Option {
	return func(s *Store) { s.noWait = true }
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Repositories() kavach.Repositories {
	return kavach.Repositories{
		Products:  s,
		Orders:    s,
		Coupons:   s,
		Rules:     s,
		Addresses: s,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

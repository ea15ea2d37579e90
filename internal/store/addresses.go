package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/models"
)

const addressColumns = `id, owner, name, phone, line1, line2, city, state, postal_code, is_default`

func scanAddress(row scanner) (*models.Address, error) {
	a := &models.Address{}
	err := row.Scan(&a.ID, &a.Owner, &a.Name, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.IsDefault)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateAddress saves a. An owner's first address becomes the default, and
// a new default clears the old one.
func (s *Store) CreateAddress(ctx context.Context, a *models.Address) (*models.Address, error) {
	var created *models.Address

	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses WHERE owner = $1`, a.Owner).Scan(&count); err != nil {
			return fmt.Errorf("count addresses: %w", err)
		}

		isDefault := a.IsDefault || count == 0
		if isDefault && count > 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = FALSE WHERE owner = $1`, a.Owner); err != nil {
				return fmt.Errorf("clear default address: %w", err)
			}
		}

		var err error
		created, err = scanAddress(tx.QueryRowContext(ctx,
			`INSERT INTO addresses (owner, name, phone, line1, line2, city, state, postal_code, is_default)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+addressColumns,
			a.Owner, a.Name, a.Phone, a.Line1, a.Line2, a.City, a.State, a.PostalCode, isDefault))
		if err != nil {
			return fmt.Errorf("create address: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Store) GetAddress(ctx context.Context, id int64) (*models.Address, error) {
	a, err := scanAddress(s.db.QueryRowContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrAddressNotFound
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (s *Store) ListAddresses(ctx context.Context, owner string) ([]models.Address, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE owner = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return addresses, nil
}

func (s *Store) DeleteAddress(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrAddressNotFound
	}

	return nil
}

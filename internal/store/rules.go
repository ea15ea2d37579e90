package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/models"
)

func (s *Store) ActiveDeliveryRule(ctx context.Context) (*models.DeliveryRule, error) {
	rule := &models.DeliveryRule{}

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, base_charge, free_delivery_threshold, active
		 FROM delivery_rules
		 WHERE active`).Scan(
		&rule.ID,
		&rule.Name,
		&rule.BaseCharge,
		&rule.FreeDeliveryThreshold,
		&rule.Active,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrNoDeliveryRule
		}
		return nil, fmt.Errorf("get delivery rule: %w", err)
	}

	return rule, nil
}

// SetDeliveryRule retires the current rule and activates rule in its place.
func (s *Store) SetDeliveryRule(ctx context.Context, rule *models.DeliveryRule) (*models.DeliveryRule, error) {
	saved := *rule
	saved.Active = true

	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE delivery_rules SET active = FALSE WHERE active`); err != nil {
			return fmt.Errorf("retire delivery rule: %w", err)
		}

		err := tx.QueryRowContext(ctx,
			`INSERT INTO delivery_rules (name, base_charge, free_delivery_threshold, active, created_at)
			 VALUES ($1, $2, $3, TRUE, NOW())
			 RETURNING id`,
			rule.Name, rule.BaseCharge, rule.FreeDeliveryThreshold).Scan(&saved.ID)
		if err != nil {
			return fmt.Errorf("insert delivery rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &saved, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/models"
	"github.com/shopspring/decimal"
)

const couponColumns = `id, code, description, type, value, minimum_order_amount, maximum_discount_amount,
	usage_limit, usage_count, per_user_limit, start_date, end_date, active, categories, version`

func scanCoupon(row scanner) (*models.Coupon, error) {
	c := &models.Coupon{}
	var maxDiscount decimal.NullDecimal
	var usageLimit sql.NullInt64
	var categories pq.StringArray
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&c.Type,
		&c.Value,
		&c.MinimumOrderAmount,
		&maxDiscount,
		&usageLimit,
		&c.UsageCount,
		&c.PerUserLimit,
		&c.StartDate,
		&c.EndDate,
		&c.Active,
		&categories,
		&c.Version,
	)
	if err != nil {
		return nil, err
	}
	c.MaximumDiscountAmount = decimalPtr(maxDiscount)
	c.UsageLimit = intPtr(usageLimit)
	if len(categories) > 0 {
		c.Categories = []string(categories)
	}
	return c, nil
}

// categoryArray keeps a nil slice from being written as NULL.
func categoryArray(categories []string) pq.StringArray {
	if categories == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(categories)
}

func (s *Store) CreateCoupon(ctx context.Context, c *models.Coupon) (*models.Coupon, error) {
	query := `
		INSERT INTO coupons (code, description, type, value, minimum_order_amount, maximum_discount_amount,
		                     usage_limit, usage_count, per_user_limit, start_date, end_date, active, categories, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $12, 1)
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(s.db.QueryRowContext(ctx, query,
		models.NormalizeCode(c.Code), c.Description, c.Type, c.Value, c.MinimumOrderAmount,
		nullDecimal(c.MaximumDiscountAmount), nullInt(c.UsageLimit), c.PerUserLimit,
		c.StartDate, c.EndDate, c.Active, categoryArray(c.Categories)))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: coupon %s", database.ErrDuplicate, c.Code)
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	return coupon, nil
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	coupon, err := scanCoupon(s.db.QueryRowContext(ctx, query, models.NormalizeCode(code)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return coupon, nil
}

// UpdateCoupon edits a coupon definition. usage_count is never written here;
// only checkout moves it.
func (s *Store) UpdateCoupon(ctx context.Context, c *models.Coupon) (*models.Coupon, error) {
	query := `
		UPDATE coupons
		SET description = $1, type = $2, value = $3, minimum_order_amount = $4, maximum_discount_amount = $5,
		    usage_limit = $6, per_user_limit = $7, start_date = $8, end_date = $9, active = $10,
		    categories = $11, version = version + 1
		WHERE code = $12 AND version = $13
		RETURNING ` + couponColumns

	coupon, err := scanCoupon(s.db.QueryRowContext(ctx, query,
		c.Description, c.Type, c.Value, c.MinimumOrderAmount, nullDecimal(c.MaximumDiscountAmount),
		nullInt(c.UsageLimit), c.PerUserLimit, c.StartDate, c.EndDate, c.Active,
		categoryArray(c.Categories), models.NormalizeCode(c.Code), c.Version))
	if err == sql.ErrNoRows {
		if _, getErr := s.GetCouponByCode(ctx, c.Code); getErr != nil {
			return nil, getErr
		}
		return nil, database.ErrOptimisticLockFailed
	}
	if err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}

	return coupon, nil
}

func (s *Store) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return coupons, nil
}

func lockCoupon(ctx context.Context, tx *sql.Tx, code string) (*models.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 FOR UPDATE`

	coupon, err := scanCoupon(tx.QueryRowContext(ctx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("lock coupon: %w", err)
	}

	return coupon, nil
}

func redeemCoupon(ctx context.Context, tx *sql.Tx, couponID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1, version = version + 1 WHERE id = $1`,
		couponID)
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}
	return nil
}

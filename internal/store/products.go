package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, sku, name, category, description, price, original_price,
	stock_quantity, active, created_at, updated_at, version`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.Product, error) {
	product := &models.Product{}
	var original decimal.NullDecimal
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Category,
		&product.Description,
		&product.Price,
		&original,
		&product.StockQuantity,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, err
	}
	product.OriginalPrice = decimalPtr(original)
	return product, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (sku, name, category, description, price, original_price, stock_quantity, active, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(s.db.QueryRowContext(ctx, query,
		p.SKU, p.Name, p.Category, p.Description, p.Price, nullDecimal(p.OriginalPrice), p.StockQuantity, p.Active))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku %s", database.ErrDuplicate, p.SKU)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (s *Store) GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[product.ID] = *product
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// UpdateProduct writes p only if nobody changed the row since p.Version was
// read.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `
		UPDATE products
		SET sku = $1, name = $2, category = $3, description = $4, price = $5, original_price = $6,
		    stock_quantity = $7, active = $8, version = version + 1, updated_at = NOW()
		WHERE id = $9 AND version = $10
		RETURNING ` + productColumns

	product, err := scanProduct(s.db.QueryRowContext(ctx, query,
		p.SKU, p.Name, p.Category, p.Description, p.Price, nullDecimal(p.OriginalPrice),
		p.StockQuantity, p.Active, p.ID, p.Version))
	if err == sql.ErrNoRows {
		if _, getErr := s.GetProduct(ctx, p.ID); getErr != nil {
			return nil, getErr
		}
		return nil, database.ErrOptimisticLockFailed
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku %s", database.ErrDuplicate, p.SKU)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func (s *Store) ListProducts(ctx context.Context, f models.ProductFilter) (*models.OffsetPage[models.Product], error) {
	var where []string
	var args []any
	if f.ActiveOnly {
		where = append(where, "active")
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("LOWER(category) = LOWER($%d)", len(args)))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	args = append(args, f.PageSize, offset)
	query := `SELECT ` + productColumns + ` FROM products` + clause +
		fmt.Sprintf(` ORDER BY id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewOffsetPage(products, total, f.Page, f.PageSize), nil
}

// lockProducts row-locks ids in id order so concurrent checkouts over the
// same products cannot deadlock. With NOWAIT a held lock fails fast with
// database.ErrLockTimeout, which WithRetry retries.
func (s *Store) lockProducts(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	if s.noWait {
		query += ` NOWAIT`
	}

	rows, err := tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]models.Product, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		locked[product.ID] = *product
	}

	if err := rows.Err(); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return locked, nil
}

func decrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func restock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("restock product %d: %w", productID, err)
	}
	return nil
}

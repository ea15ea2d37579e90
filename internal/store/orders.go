package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/workflow"
)

const orderColumns = `id, owner, order_number, status, subtotal, delivery_charge, discount, total, coupon_code,
	ship_name, ship_phone, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code,
	created_at, updated_at, version`

func scanOrder(row scanner) (*models.Order, error) {
	o := &models.Order{}
	addr := &o.ShippingAddress
	err := row.Scan(
		&o.ID,
		&o.Owner,
		&o.OrderNumber,
		&o.Status,
		&o.Subtotal,
		&o.DeliveryCharge,
		&o.Discount,
		&o.Total,
		&o.CouponCode,
		&addr.Name,
		&addr.Phone,
		&addr.Line1,
		&addr.Line2,
		&addr.City,
		&addr.State,
		&addr.PostalCode,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Version,
	)
	if err != nil {
		return nil, err
	}
	addr.Owner = o.Owner
	return o, nil
}

func generateOrderNumber(at time.Time, id int64) string {
	return fmt.Sprintf("KV-%s-%06d", at.Format("20060102"), id)
}

// PlaceOrder prices and stores an order in one serializable transaction.
// Product rows are locked in id order and the coupon row after them, so two
// checkouts over overlapping carts serialize instead of overselling.
func (s *Store) PlaceOrder(ctx context.Context, req kavach.PlaceOrderRequest, price kavach.Pricer) (*models.Order, error) {
	ids := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}

	var order *models.Order

	err := database.WithRetry(ctx, s.db, database.CheckoutTxOptions(), func(tx *sql.Tx) error {
		products, err := s.lockProducts(ctx, tx, ids)
		if err != nil {
			return err
		}

		var coupon *models.Coupon
		usage := 0
		if req.CouponCode != "" {
			coupon, err = lockCoupon(ctx, tx, models.NormalizeCode(req.CouponCode))
			if err != nil {
				return err
			}
			// Counted under the coupon row lock, so two checkouts by the
			// same owner cannot both see the limit unreached.
			usage, err = couponRedemptions(ctx, tx, coupon.Code, req.Owner)
			if err != nil {
				return err
			}
		}

		quote, err := price(products, coupon, usage)
		if err != nil {
			return err
		}

		for _, line := range quote.Lines {
			if err := decrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if coupon != nil {
			if err := redeemCoupon(ctx, tx, coupon.ID); err != nil {
				return err
			}
		}

		var orderID int64
		var now time.Time
		err = tx.QueryRowContext(ctx,
			`SELECT nextval(pg_get_serial_sequence('orders', 'id')), NOW()`).Scan(&orderID, &now)
		if err != nil {
			return fmt.Errorf("allocate order id: %w", err)
		}

		addr := req.Address
		order, err = scanOrder(tx.QueryRowContext(ctx,
			`INSERT INTO orders (id, owner, order_number, status, subtotal, delivery_charge, discount, total, coupon_code,
			                     ship_name, ship_phone, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code,
			                     created_at, updated_at, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17, 1)
			 RETURNING `+orderColumns,
			orderID, req.Owner, generateOrderNumber(now, orderID), workflow.Order.Initial(),
			quote.Subtotal, quote.DeliveryCharge, quote.Discount, quote.Total, quote.CouponCode,
			addr.Name, addr.Phone, addr.Line1, addr.Line2, addr.City, addr.State, addr.PostalCode, now))
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		order.Items = make([]models.OrderItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			item := models.OrderItem{
				OrderID:   orderID,
				ProductID: line.ProductID,
				Name:      line.Name,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal,
			}
			err = tx.QueryRowContext(ctx,
				`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price, subtotal, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id, created_at`,
				orderID, line.ProductID, line.Name, line.Quantity, line.UnitPrice, line.Subtotal, now).
				Scan(&item.ID, &item.CreatedAt)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, item)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := orderItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func orderItems(ctx context.Context, q queryer, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, order_id, product_id, name, quantity, unit_price, subtotal, created_at
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		// product_id is NULL once the product has been deleted.
		var productID sql.NullInt64
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&productID,
			&item.Name,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.ProductID = productID.Int64
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// ListOrders pages through orders newest first with a keyset cursor on
// (created_at, id). Items are not loaded.
func (s *Store) ListOrders(ctx context.Context, f models.OrderFilter) (*models.CursorPage[models.Order], error) {
	cursorData, err := models.DecodeCursor(f.Cursor)
	if err != nil {
		return nil, err
	}

	args := []any{cursorData.CreatedAt, cursorData.ID}
	where := []string{"(created_at, id) < ($1, $2)"}
	if f.Owner != "" {
		args = append(args, f.Owner)
		where = append(where, fmt.Sprintf("owner = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, f.Limit+1)

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(where, " AND ") +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > f.Limit
	if hasMore {
		orders = orders[:f.Limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = models.EncodeCursor(models.OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &models.CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (s *Store) TransitionOrder(ctx context.Context, id int64, event workflow.OrderEvent) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, s.db, database.CheckoutTxOptions(), func(tx *sql.Tx) error {
		current, err := scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		order, err = transition(ctx, tx, current, event)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// transition moves a locked order to its next status, putting the items
// back on the shelf when the order is cancelled.
func transition(ctx context.Context, tx *sql.Tx, current *models.Order, event workflow.OrderEvent) (*models.Order, error) {
	next, err := workflow.Order.Fire(current.Status, event)
	if err != nil {
		return nil, err
	}

	items, err := orderItems(ctx, tx, current.ID)
	if err != nil {
		return nil, err
	}

	if next == models.OrderStatusCancelled {
		for _, item := range items {
			if item.ProductID == 0 {
				continue
			}
			if err := restock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return nil, err
			}
		}
	}

	order, err := scanOrder(tx.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3
		 RETURNING `+orderColumns,
		next, current.ID, current.Version))
	if err == sql.ErrNoRows {
		return nil, database.ErrOptimisticLockFailed
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order.Items = items

	return order, nil
}

// ConfirmNextPending confirms the oldest pending order. Rows other workers
// hold are skipped, so several fulfilment workers can drain the queue
// concurrently. It returns database.ErrOrderNotFound when nothing is left.
func (s *Store) ConfirmNextPending(ctx context.Context) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current, err := scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+`
			 FROM orders
			 WHERE status = $1
			 ORDER BY created_at, id
			 FOR UPDATE SKIP LOCKED
			 LIMIT 1`,
			models.OrderStatusPending))
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("get next pending order: %w", err)
		}

		order, err = transition(ctx, tx, current, workflow.OrderConfirm)
		return err
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (s *Store) CouponRedemptions(ctx context.Context, code, owner string) (int, error) {
	return couponRedemptions(ctx, s.db, models.NormalizeCode(code), owner)
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func couponRedemptions(ctx context.Context, q rowQueryer, code, owner string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE coupon_code = $1 AND owner = $2 AND status <> $3`,
		code, owner, models.OrderStatusCancelled).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coupon redemptions: %w", err)
	}
	return n, nil
}

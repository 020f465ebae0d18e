package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// CreateOrderParams carries the order header totals.
type CreateOrderParams struct {
	UserID        pgtype.UUID
	Status        string
	Currency      string
	Subtotal      int64
	DiscountTotal int64
	Total         int64
}

// CreateOrder inserts an order header.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO orders (user_id, status, currency, subtotal, discount_total, total)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, status, currency, subtotal, discount_total, total, created_at`,
		arg.UserID, arg.Status, arg.Currency, arg.Subtotal, arg.DiscountTotal, arg.Total)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Currency, &o.Subtotal, &o.DiscountTotal, &o.Total, &o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// CreateOrderItemParams carries one priced order line.
type CreateOrderItemParams struct {
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Qty            int32
	UnitPrice      int64
	FinalUnitPrice int64
	LineTotal      int64
	DiscountTotal  int64
	IsAutoship     bool
}

// CreateOrderItem inserts one order line.
func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO order_items (order_id, product_id, qty, unit_price, final_unit_price, line_total, discount_total, is_autoship)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		arg.OrderID, arg.ProductID, arg.Qty, arg.UnitPrice, arg.FinalUnitPrice, arg.LineTotal, arg.DiscountTotal, arg.IsAutoship)
	return err
}

// GetOrder returns one order header.
func (q *Queries) GetOrder(ctx context.Context, id pgtype.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT id, user_id, status, currency, subtotal, discount_total, total, created_at FROM orders WHERE id = $1`, id)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Currency, &o.Subtotal, &o.DiscountTotal, &o.Total, &o.CreatedAt)
	if err != nil {
		return Order{}, mapRowErr(err)
	}
	return o, nil
}

// ListOrdersByUser returns a user's orders, newest first.
func (q *Queries) ListOrdersByUser(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, user_id, status, currency, subtotal, discount_total, total, created_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Currency, &o.Subtotal, &o.DiscountTotal, &o.Total, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOrderItems returns the lines of one order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, product_id, qty, unit_price, final_unit_price, line_total, discount_total, is_autoship
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.UnitPrice, &it.FinalUnitPrice, &it.LineTotal, &it.DiscountTotal, &it.IsAutoship); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CountOrdersByUser returns the number of orders a user has placed.
func (q *Queries) CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

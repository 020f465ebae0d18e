package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// GetProductStockForUpdate locks the stock row for the duration of the
// enclosing transaction.
func (q *Queries) GetProductStockForUpdate(ctx context.Context, productID pgtype.UUID) (int64, error) {
	var stock int64
	err := q.db.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&stock)
	if err != nil {
		return 0, mapRowErr(err)
	}
	return stock, nil
}

// SetProductStock writes the post-adjustment stock level.
func (q *Queries) SetProductStock(ctx context.Context, productID pgtype.UUID, stock int64) error {
	tag, err := q.db.Exec(ctx, `UPDATE products SET stock = $2, updated_at = now() WHERE id = $1`, productID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertInventoryAdjustmentParams is one ledger entry.
type InsertInventoryAdjustmentParams struct {
	ProductID     pgtype.UUID
	Mode          string
	Direction     string
	Amount        int64
	PreviousStock int64
	NewStock      int64
	Reason        string
	Note          pgtype.Text
}

// InsertInventoryAdjustment appends to the stock mutation ledger.
func (q *Queries) InsertInventoryAdjustment(ctx context.Context, arg InsertInventoryAdjustmentParams) (InventoryAdjustment, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO inventory_adjustments (product_id, mode, direction, amount, previous_stock, new_stock, reason, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, product_id, mode, direction, amount, previous_stock, new_stock, reason, note, created_at`,
		arg.ProductID, arg.Mode, arg.Direction, arg.Amount, arg.PreviousStock, arg.NewStock, arg.Reason, arg.Note)
	var a InventoryAdjustment
	err := row.Scan(&a.ID, &a.ProductID, &a.Mode, &a.Direction, &a.Amount, &a.PreviousStock, &a.NewStock, &a.Reason, &a.Note, &a.CreatedAt)
	if err != nil {
		return InventoryAdjustment{}, err
	}
	return a, nil
}

// ListInventoryAdjustmentsParams bounds the ledger listing.
type ListInventoryAdjustmentsParams struct {
	ProductID pgtype.UUID
	Limit     int32
	Offset    int32
}

// ListInventoryAdjustments returns ledger entries for a product, newest first.
func (q *Queries) ListInventoryAdjustments(ctx context.Context, arg ListInventoryAdjustmentsParams) ([]InventoryAdjustment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, product_id, mode, direction, amount, previous_stock, new_stock, reason, note, created_at
		 FROM inventory_adjustments WHERE product_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		arg.ProductID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InventoryAdjustment
	for rows.Next() {
		var a InventoryAdjustment
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Mode, &a.Direction, &a.Amount, &a.PreviousStock, &a.NewStock, &a.Reason, &a.Note, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

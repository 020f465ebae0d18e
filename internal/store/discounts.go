package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const discountColumns = `d.id, d.name, d.kind, d.discount_type, d.value, d.active,
	d.starts_at, d.ends_at, d.min_order_subtotal, d.stack_policy, d.usage_limit,
	d.applies_to_all_products,
	coalesce(array_agg(t.product_id) FILTER (WHERE t.product_id IS NOT NULL), '{}') AS product_ids,
	d.created_at, d.updated_at`

const discountFrom = ` FROM discounts d LEFT JOIN discount_targets t ON t.discount_id = d.id`

const discountGroup = ` GROUP BY d.id`

func scanDiscount(row interface{ Scan(dest ...any) error }) (Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.Name, &d.Kind, &d.DiscountType, &d.Value, &d.Active,
		&d.StartsAt, &d.EndsAt, &d.MinOrderSubtotal, &d.StackPolicy, &d.UsageLimit,
		&d.AppliesToAllProducts, &d.ProductIds, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// CreateDiscountParams carries a new discount rule.
type CreateDiscountParams struct {
	Name                 string
	Kind                 string
	DiscountType         string
	Value                int64
	Active               bool
	StartsAt             pgtype.Timestamptz
	EndsAt               pgtype.Timestamptz
	MinOrderSubtotal     pgtype.Int8
	StackPolicy          string
	UsageLimit           pgtype.Int4
	AppliesToAllProducts bool
}

// CreateDiscount inserts a discount rule. Targets are attached separately so
// the whole write can run inside one transaction.
func (q *Queries) CreateDiscount(ctx context.Context, arg CreateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO discounts (name, kind, discount_type, value, active, starts_at, ends_at,
			min_order_subtotal, stack_policy, usage_limit, applies_to_all_products)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, name, kind, discount_type, value, active, starts_at, ends_at,
			min_order_subtotal, stack_policy, usage_limit, applies_to_all_products,
			'{}'::uuid[], created_at, updated_at`,
		arg.Name, arg.Kind, arg.DiscountType, arg.Value, arg.Active, arg.StartsAt, arg.EndsAt,
		arg.MinOrderSubtotal, arg.StackPolicy, arg.UsageLimit, arg.AppliesToAllProducts)
	d, err := scanDiscount(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return Discount{}, ErrConflict
		}
		return Discount{}, err
	}
	return d, nil
}

// UpdateDiscountParams mutates an existing discount rule.
type UpdateDiscountParams struct {
	ID                   pgtype.UUID
	Name                 string
	Kind                 string
	DiscountType         string
	Value                int64
	Active               bool
	StartsAt             pgtype.Timestamptz
	EndsAt               pgtype.Timestamptz
	MinOrderSubtotal     pgtype.Int8
	StackPolicy          string
	UsageLimit           pgtype.Int4
	AppliesToAllProducts bool
}

// UpdateDiscount rewrites a discount rule in place.
func (q *Queries) UpdateDiscount(ctx context.Context, arg UpdateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE discounts SET name = $2, kind = $3, discount_type = $4, value = $5, active = $6,
			starts_at = $7, ends_at = $8, min_order_subtotal = $9, stack_policy = $10,
			usage_limit = $11, applies_to_all_products = $12, updated_at = now()
		 WHERE id = $1
		 RETURNING id, name, kind, discount_type, value, active, starts_at, ends_at,
			min_order_subtotal, stack_policy, usage_limit, applies_to_all_products,
			'{}'::uuid[], created_at, updated_at`,
		arg.ID, arg.Name, arg.Kind, arg.DiscountType, arg.Value, arg.Active, arg.StartsAt,
		arg.EndsAt, arg.MinOrderSubtotal, arg.StackPolicy, arg.UsageLimit, arg.AppliesToAllProducts)
	d, err := scanDiscount(row)
	if err != nil {
		return Discount{}, mapRowErr(err)
	}
	return d, nil
}

// GetDiscount returns one discount with its targets.
func (q *Queries) GetDiscount(ctx context.Context, id pgtype.UUID) (Discount, error) {
	row := q.db.QueryRow(ctx, `SELECT `+discountColumns+discountFrom+` WHERE d.id = $1`+discountGroup, id)
	d, err := scanDiscount(row)
	if err != nil {
		return Discount{}, mapRowErr(err)
	}
	return d, nil
}

// ListDiscountsParams bounds a discount listing query.
type ListDiscountsParams struct {
	Limit  int32
	Offset int32
}

// ListDiscounts returns discounts newest first.
func (q *Queries) ListDiscounts(ctx context.Context, arg ListDiscountsParams) ([]Discount, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+discountColumns+discountFrom+discountGroup+` ORDER BY d.created_at DESC LIMIT $1 OFFSET $2`,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ActiveDiscountsForProduct returns the active rules targeting the product,
// either globally or through an explicit target row. Window, subtotal, and
// usage checks stay in the eligibility filter so the snapshot carries every
// candidate the resolver may need to explain.
func (q *Queries) ActiveDiscountsForProduct(ctx context.Context, productID pgtype.UUID) ([]Discount, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+discountColumns+discountFrom+`
		 WHERE d.active AND (d.applies_to_all_products OR EXISTS (
			SELECT 1 FROM discount_targets dt WHERE dt.discount_id = d.id AND dt.product_id = $1))`+
			discountGroup+` ORDER BY d.created_at, d.id`,
		productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ReplaceDiscountTargets rewrites the explicit product target set.
func (q *Queries) ReplaceDiscountTargets(ctx context.Context, discountID pgtype.UUID, productIDs []pgtype.UUID) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM discount_targets WHERE discount_id = $1`, discountID); err != nil {
		return err
	}
	for _, pid := range productIDs {
		if _, err := q.db.Exec(ctx,
			`INSERT INTO discount_targets (discount_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			discountID, pid); err != nil {
			return err
		}
	}
	return nil
}

// CountDiscountUsage tallies settled usages for one discount.
func (q *Queries) CountDiscountUsage(ctx context.Context, discountID pgtype.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM discount_usage WHERE discount_id = $1`, discountID).Scan(&total)
	return total, err
}

// InsertDiscountUsageParams records one settled application.
type InsertDiscountUsageParams struct {
	DiscountID pgtype.UUID
	OrderID    pgtype.UUID
	UserID     pgtype.UUID
	Amount     int64
}

// InsertDiscountUsage writes a usage record, idempotent per (discount, order).
func (q *Queries) InsertDiscountUsage(ctx context.Context, arg InsertDiscountUsageParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO discount_usage (discount_id, order_id, user_id, amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (discount_id, order_id) DO NOTHING`,
		arg.DiscountID, arg.OrderID, arg.UserID, arg.Amount)
	return err
}

// CountActiveGlobalAutoship counts active all-product autoship discounts,
// optionally excluding one id. Backs the write-time uniqueness precondition.
func (q *Queries) CountActiveGlobalAutoship(ctx context.Context, excludeID pgtype.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM discounts
		 WHERE active AND applies_to_all_products AND kind = 'autoship'
		   AND ($1::uuid IS NULL OR id <> $1)`,
		excludeID).Scan(&total)
	return total, err
}

// NullableTime converts an optional time into its pg representation.
func NullableTime(v *time.Time) pgtype.Timestamptz {
	if v == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *v, Valid: true}
}

// NullableInt8 converts an optional int64.
func NullableInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

// NullableInt4 converts an optional int32.
func NullableInt4(v *int32) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *v, Valid: true}
}

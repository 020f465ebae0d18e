package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/feedspring/backend-store/internal/discount"
	"github.com/feedspring/backend-store/internal/pricing"
	"github.com/feedspring/backend-store/internal/store"
)

// SnapshotQuerier is the subset of store queries a pricing snapshot reads.
type SnapshotQuerier interface {
	GetProduct(ctx context.Context, id pgtype.UUID) (store.Product, error)
	ActiveDiscountsForProduct(ctx context.Context, productID pgtype.UUID) ([]store.Discount, error)
	CountDiscountUsage(ctx context.Context, discountID pgtype.UUID) (int64, error)
}

// Snapshot adapts the store to the pricing engine's read-only catalog view.
// Binding it to transaction-scoped queries gives checkout a consistent
// snapshot for its re-quote.
type Snapshot struct {
	Q SnapshotQuerier
}

// Product returns the minimal product data pricing needs.
func (s Snapshot) Product(ctx context.Context, id uuid.UUID) (pricing.Product, error) {
	p, err := s.Q.GetProduct(ctx, store.FromUUID(id))
	if err != nil {
		return pricing.Product{}, err
	}
	return pricing.Product{
		ID:               store.UUIDValue(p.ID),
		BasePrice:        p.BasePrice,
		AutoshipEligible: p.AutoshipEligible,
	}, nil
}

// ActiveDiscounts returns every active rule targeting the product. Window,
// subtotal and usage checks are left to the eligibility filter.
func (s Snapshot) ActiveDiscounts(ctx context.Context, productID uuid.UUID, _ time.Time) ([]pricing.Discount, error) {
	rows, err := s.Q.ActiveDiscountsForProduct(ctx, store.FromUUID(productID))
	if err != nil {
		return nil, err
	}
	out := make([]pricing.Discount, 0, len(rows))
	for _, row := range rows {
		out = append(out, discount.ToPricing(row))
	}
	return out, nil
}

// UsageCount tallies settled usages for a discount.
func (s Snapshot) UsageCount(ctx context.Context, discountID uuid.UUID) (int64, error) {
	return s.Q.CountDiscountUsage(ctx, store.FromUUID(discountID))
}

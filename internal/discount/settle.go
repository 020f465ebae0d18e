package discount

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/feedspring/backend-store/internal/pricing"
	"github.com/feedspring/backend-store/internal/store"
)

// UsageRecorder is the single store method settlement needs, so checkout can
// pass its transaction-bound queries.
type UsageRecorder interface {
	InsertDiscountUsage(ctx context.Context, arg store.InsertDiscountUsageParams) error
}

// Settle records one usage row per discount that contributed to the order.
// The write is idempotent per (discount, order), so a retried checkout never
// double-counts. Quotes and previews must not call this; usage settles only
// when an order is placed.
func Settle(ctx context.Context, q UsageRecorder, orderID, userID pgtype.UUID, cart pricing.CartPricing) error {
	totals := make(map[uuid.UUID]int64)
	order := make([]uuid.UUID, 0)
	for _, line := range cart.Lines {
		for _, applied := range line.Applied {
			if _, seen := totals[applied.ID]; !seen {
				order = append(order, applied.ID)
			}
			totals[applied.ID] += applied.Amount * int64(line.Quantity)
		}
	}
	for _, id := range order {
		err := q.InsertDiscountUsage(ctx, store.InsertDiscountUsageParams{
			DiscountID: store.FromUUID(id),
			OrderID:    orderID,
			UserID:     userID,
			Amount:     totals[id],
		})
		if err != nil {
			return err
		}
	}
	return nil
}

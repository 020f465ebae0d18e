package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feedspring/backend-store/internal/catalog"
	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/obs"
	"github.com/feedspring/backend-store/internal/pricing"
	"github.com/feedspring/backend-store/internal/store"
)

// Service computes cart quotes against the live catalog snapshot. Quotes are
// advisory: nothing is reserved or settled until checkout.
type Service struct {
	Queries catalog.SnapshotQuerier
	Now     func() time.Time
}

// LineInput is one requested cart line.
type LineInput struct {
	ProductID  string `json:"productId" validate:"required,uuid4|uuid"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
	IsAutoship bool   `json:"isAutoship"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote validates the requested lines and prices them.
func (s *Service) Quote(ctx context.Context, inputs []LineInput) (pricing.CartPricing, error) {
	start := time.Now()
	result, err := s.quote(ctx, inputs)
	if obs.CartQuoteTotal != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if common.IsAppError(err) {
				outcome = "invalid"
			}
		}
		obs.CartQuoteTotal.WithLabelValues(outcome).Inc()
		obs.CartQuoteDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	return result, err
}

func (s *Service) quote(ctx context.Context, inputs []LineInput) (pricing.CartPricing, error) {
	lines, err := ResolveLines(ctx, s.Queries, inputs)
	if err != nil {
		return pricing.CartPricing{}, err
	}
	result, err := pricing.Quote(ctx, lines, catalog.Snapshot{Q: s.Queries}, s.now())
	if err != nil {
		return pricing.CartPricing{}, MapQuoteError(err)
	}
	for _, line := range result.Lines {
		for _, applied := range line.Applied {
			if obs.DiscountAppliedTotal != nil {
				obs.DiscountAppliedTotal.WithLabelValues(string(applied.Kind), string(applied.Type)).Inc()
			}
		}
	}
	return result, nil
}

// ResolveLines parses ids and enforces per-line constraints the pricing
// engine assumes are already settled: products exist and autoship lines
// carry an autoship-eligible product. Checkout runs it against
// transaction-scoped queries so validation and pricing share one snapshot.
func ResolveLines(ctx context.Context, q catalog.SnapshotQuerier, inputs []LineInput) ([]pricing.Line, error) {
	if len(inputs) == 0 {
		return nil, common.ErrBadRequest("cart has no lines")
	}
	snapshot := catalog.Snapshot{Q: q}
	lines := make([]pricing.Line, 0, len(inputs))
	for i, in := range inputs {
		id, err := uuid.Parse(in.ProductID)
		if err != nil {
			return nil, common.ErrBadRequest(fmt.Sprintf("line %d: invalid product id", i))
		}
		if in.Quantity <= 0 {
			return nil, common.ErrBadRequest(fmt.Sprintf("line %d: quantity must be positive", i))
		}
		product, err := snapshot.Product(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, common.ErrNotFound(fmt.Sprintf("product %s not found", id))
			}
			return nil, err
		}
		if in.IsAutoship && !product.AutoshipEligible {
			return nil, common.ErrBadRequest(fmt.Sprintf("product %s is not autoship eligible", id))
		}
		lines = append(lines, pricing.Line{ProductID: id, Quantity: in.Quantity, IsAutoship: in.IsAutoship})
	}
	return lines, nil
}

// MapQuoteError translates pricing engine failures into API errors.
func MapQuoteError(err error) error {
	var verr *pricing.ValidationError
	if errors.As(err, &verr) {
		if obs.DiscountRejectedTotal != nil {
			obs.DiscountRejectedTotal.WithLabelValues("validation").Inc()
		}
		return common.NewAppError("DISCOUNT_DATA_INVALID",
			fmt.Sprintf("discount %s has invalid %s", verr.DiscountID, verr.Field), 422, err)
	}
	if errors.Is(err, pricing.ErrEmptyCart) {
		return common.ErrBadRequest("cart has no lines")
	}
	return err
}

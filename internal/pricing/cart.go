package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyCart is returned when a quote is requested for zero lines.
var ErrEmptyCart = errors.New("pricing: cart has no lines")

// Catalog supplies the point-in-time snapshot a quote is computed against.
// Implementations fetch from the data store; the aggregator never mutates
// anything through this interface.
type Catalog interface {
	Product(ctx context.Context, id uuid.UUID) (Product, error)
	ActiveDiscounts(ctx context.Context, productID uuid.UUID, asOf time.Time) ([]Discount, error)
	UsageCount(ctx context.Context, discountID uuid.UUID) (int64, error)
}

// Quote prices every line against the catalog snapshot and sums the totals.
// Output preserves input line order. No usage counts are incremented here;
// settlement happens at order placement, never at quote time.
func Quote(ctx context.Context, lines []Line, cat Catalog, asOf time.Time) (CartPricing, error) {
	if len(lines) == 0 {
		return CartPricing{}, ErrEmptyCart
	}

	products := make(map[uuid.UUID]Product, len(lines))
	var subtotal Money
	for _, line := range lines {
		if line.Quantity <= 0 {
			return CartPricing{}, fmt.Errorf("pricing: quantity must be positive for product %s", line.ProductID)
		}
		p, ok := products[line.ProductID]
		if !ok {
			var err error
			p, err = cat.Product(ctx, line.ProductID)
			if err != nil {
				return CartPricing{}, fmt.Errorf("fetch product %s: %w", line.ProductID, err)
			}
			products[line.ProductID] = p
		}
		subtotal += p.BasePrice * Money(line.Quantity)
	}

	usage := map[uuid.UUID]int64{}
	out := CartPricing{Lines: make([]PriceQuote, 0, len(lines))}
	for _, line := range lines {
		product := products[line.ProductID]
		discounts, err := cat.ActiveDiscounts(ctx, line.ProductID, asOf)
		if err != nil {
			return CartPricing{}, fmt.Errorf("fetch discounts for product %s: %w", line.ProductID, err)
		}
		for _, d := range discounts {
			if d.UsageLimit == nil {
				continue
			}
			if _, seen := usage[d.ID]; seen {
				continue
			}
			count, err := cat.UsageCount(ctx, d.ID)
			if err != nil {
				return CartPricing{}, fmt.Errorf("fetch usage for discount %s: %w", d.ID, err)
			}
			usage[d.ID] = count
		}
		eligible := Filter(discounts, Context{
			ProductID:     line.ProductID,
			IsAutoship:    line.IsAutoship,
			OrderSubtotal: subtotal,
			AsOf:          asOf,
			UsageCounts:   usage,
		})
		quote, err := Resolve(line.ProductID, product.BasePrice, eligible, line.Quantity)
		if err != nil {
			return CartPricing{}, err
		}
		out.Lines = append(out.Lines, quote)
		out.Subtotal += quote.BasePrice
		out.DiscountTotal += quote.DiscountTotal
	}
	out.Total = out.Subtotal - out.DiscountTotal
	return out, nil
}

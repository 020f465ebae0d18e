package pricing

import (
	"time"

	"github.com/google/uuid"
)

// Context carries the order-side facts eligibility is judged against.
// UsageCounts holds precomputed usage tallies; counting and incrementing
// usage is the data store's concern, never the filter's.
type Context struct {
	ProductID     uuid.UUID
	IsAutoship    bool
	OrderSubtotal Money
	AsOf          time.Time
	UsageCounts   map[uuid.UUID]int64
}

// Filter narrows the discount snapshot to the rules applicable in ctx.
// A discount failing any rule is silently excluded; an empty result simply
// means the final price equals the base price.
func Filter(discounts []Discount, ctx Context) []Discount {
	eligible := make([]Discount, 0, len(discounts))
	for _, d := range discounts {
		if !d.Active {
			continue
		}
		if !withinWindow(d, ctx.AsOf) {
			continue
		}
		if !kindMatches(d.Kind, ctx.IsAutoship) {
			continue
		}
		if !targetMatches(d, ctx.ProductID) {
			continue
		}
		if d.MinOrderSubtotal != nil && ctx.OrderSubtotal < *d.MinOrderSubtotal {
			continue
		}
		if d.UsageLimit != nil && ctx.UsageCounts[d.ID] >= int64(*d.UsageLimit) {
			continue
		}
		eligible = append(eligible, d)
	}
	return eligible
}

// withinWindow applies the inclusive activity window. No window means always active.
func withinWindow(d Discount, asOf time.Time) bool {
	if d.StartsAt != nil && asOf.Before(*d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && asOf.After(*d.EndsAt) {
		return false
	}
	return true
}

// kindMatches implements the purchase-mode policy: autoship discounts apply
// only to autoship lines, promo discounts apply in either mode. Unknown kinds
// never match.
func kindMatches(kind DiscountKind, isAutoship bool) bool {
	switch kind {
	case KindPromo:
		return true
	case KindAutoship:
		return isAutoship
	}
	return false
}

// targetMatches reports whether the discount targets the given product.
// A discount that is neither global nor lists any product ids matches nothing.
func targetMatches(d Discount, productID uuid.UUID) bool {
	if d.AppliesToAllProducts {
		return true
	}
	for _, id := range d.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

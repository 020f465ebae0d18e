package pricing

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Resolve applies the stacking policy to the eligible set and produces a
// quote for one line. Best-only candidates compete on the amount each would
// save against the original unit price; stack discounts then apply in a fixed
// order against the running price. The final unit price never drops below
// zero.
func Resolve(productID uuid.UUID, unitPrice Money, eligible []Discount, quantity int) (PriceQuote, error) {
	if unitPrice < 0 {
		unitPrice = 0
	}
	if quantity < 0 {
		quantity = 0
	}
	for _, d := range eligible {
		if err := d.Validate(); err != nil {
			return PriceQuote{}, err
		}
	}

	var bestOnly, stacked []Discount
	for _, d := range eligible {
		switch d.StackPolicy {
		case PolicyStack:
			stacked = append(stacked, d)
		default:
			bestOnly = append(bestOnly, d)
		}
	}

	applied := make([]AppliedDiscount, 0, 1+len(stacked))
	remaining := unitPrice

	if winner, amount, ok := pickBest(bestOnly, unitPrice); ok {
		applied = append(applied, AppliedDiscount{ID: winner.ID, Kind: winner.Kind, Type: winner.Type, Amount: amount})
		remaining -= amount
	}

	sort.Slice(stacked, func(i, j int) bool { return discountBefore(stacked[i], stacked[j]) })
	for _, d := range stacked {
		amount := d.amountAgainst(remaining)
		if amount <= 0 {
			continue
		}
		applied = append(applied, AppliedDiscount{ID: d.ID, Kind: d.Kind, Type: d.Type, Amount: amount})
		remaining -= amount
	}
	if remaining < 0 {
		remaining = 0
	}

	qty := Money(quantity)
	return PriceQuote{
		ProductID:      productID,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		FinalUnitPrice: remaining,
		BasePrice:      unitPrice * qty,
		LineTotal:      remaining * qty,
		DiscountTotal:  (unitPrice - remaining) * qty,
		Applied:        applied,
	}, nil
}

// pickBest selects the best-only discount with the largest saving against the
// original unit price. Equal savings break toward the earlier created_at and
// then the lower identifier, so selection is stable across input orderings.
func pickBest(candidates []Discount, unitPrice Money) (Discount, Money, bool) {
	var (
		winner Discount
		best   Money
		found  bool
	)
	for _, d := range candidates {
		amount := d.amountAgainst(unitPrice)
		if amount <= 0 {
			continue
		}
		if !found || amount > best || (amount == best && discountBefore(d, winner)) {
			winner = d
			best = amount
			found = true
		}
	}
	return winner, best, found
}

// discountBefore is the deterministic ordering used for both tie-breaking and
// stack application: earlier created_at first, lower id on identical stamps.
func discountBefore(a, b Discount) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return strings.Compare(a.ID.String(), b.ID.String()) < 0
}

package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Money represents a monetary value in whole currency units.
type Money = int64

// DiscountKind distinguishes promotional discounts from autoship-only ones.
type DiscountKind string

const (
	// KindPromo marks a discount that applies to any purchase mode.
	KindPromo DiscountKind = "promo"
	// KindAutoship marks a discount reserved for recurring autoship lines.
	KindAutoship DiscountKind = "autoship"
)

// DiscountType selects how the discount value is interpreted.
type DiscountType string

const (
	// TypePercentage treats Value as a percentage between 0 and 100.
	TypePercentage DiscountType = "percentage"
	// TypeFixed treats Value as a currency amount.
	TypeFixed DiscountType = "fixed"
)

// StackPolicy controls whether a discount combines with others.
type StackPolicy string

const (
	// PolicyBestOnly makes the discount compete for the single largest saving.
	PolicyBestOnly StackPolicy = "best_only"
	// PolicyStack applies the discount cumulatively after the best-only winner.
	PolicyStack StackPolicy = "stack"
)

// Product is the minimal product snapshot pricing needs.
type Product struct {
	ID               uuid.UUID
	BasePrice        Money
	AutoshipEligible bool
}

// Discount is an immutable snapshot of a discount rule for one quote computation.
type Discount struct {
	ID                   uuid.UUID
	Kind                 DiscountKind
	Type                 DiscountType
	Value                int64
	Active               bool
	StartsAt             *time.Time
	EndsAt               *time.Time
	MinOrderSubtotal     *Money
	StackPolicy          StackPolicy
	UsageLimit           *int32
	AppliesToAllProducts bool
	ProductIDs           []uuid.UUID
	CreatedAt            time.Time
}

// AppliedDiscount records one discount's per-unit contribution to a quote.
type AppliedDiscount struct {
	ID     uuid.UUID    `json:"id"`
	Kind   DiscountKind `json:"kind"`
	Type   DiscountType `json:"type"`
	Amount Money        `json:"amount"`
}

// PriceQuote is the computed result for a single product/quantity pair.
type PriceQuote struct {
	ProductID      uuid.UUID         `json:"productId"`
	Quantity       int               `json:"quantity"`
	UnitPrice      Money             `json:"unitPrice"`
	FinalUnitPrice Money             `json:"finalUnitPrice"`
	BasePrice      Money             `json:"basePrice"`
	LineTotal      Money             `json:"lineTotal"`
	DiscountTotal  Money             `json:"discountTotal"`
	Applied        []AppliedDiscount `json:"discountsApplied"`
}

// Line identifies a cart line item prior to pricing.
type Line struct {
	ProductID  uuid.UUID `json:"productId"`
	Quantity   int       `json:"quantity"`
	IsAutoship bool      `json:"isAutoship"`
}

// CartPricing aggregates per-line quotes into cart totals.
type CartPricing struct {
	Lines         []PriceQuote `json:"lines"`
	Subtotal      Money        `json:"subtotal"`
	DiscountTotal Money        `json:"discountTotal"`
	Total         Money        `json:"total"`
}

// ValidationError reports malformed discount data reaching resolution. It is
// fatal to the single quote computation and carries enough context for an
// operator to locate the offending record.
type ValidationError struct {
	DiscountID uuid.UUID
	Field      string
	Reason     string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("pricing: discount %s invalid %s: %s", e.DiscountID, e.Field, e.Reason)
}

// Validate checks the integrity constraints the resolver relies on. Broken
// data is surfaced rather than clamped so pricing never silently drifts.
func (d Discount) Validate() error {
	if d.Value < 0 {
		return &ValidationError{DiscountID: d.ID, Field: "value", Reason: "must not be negative"}
	}
	if d.Type == TypePercentage && d.Value > 100 {
		return &ValidationError{DiscountID: d.ID, Field: "value", Reason: "percentage exceeds 100"}
	}
	switch d.Type {
	case TypePercentage, TypeFixed:
	default:
		return &ValidationError{DiscountID: d.ID, Field: "discount_type", Reason: fmt.Sprintf("unknown type %q", d.Type)}
	}
	if d.StartsAt != nil && d.EndsAt != nil && !d.StartsAt.Before(*d.EndsAt) {
		return &ValidationError{DiscountID: d.ID, Field: "starts_at", Reason: "window start is not before end"}
	}
	return nil
}

// amountAgainst computes the per-unit discount amount against the given price.
// Percentage amounts floor; fixed amounts never exceed the remaining price.
func (d Discount) amountAgainst(price Money) Money {
	if price <= 0 {
		return 0
	}
	switch d.Type {
	case TypePercentage:
		return price * d.Value / 100
	case TypeFixed:
		if d.Value > price {
			return price
		}
		return d.Value
	}
	return 0
}

package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func baseDiscount() Discount {
	return Discount{
		ID:                   uuid.New(),
		Kind:                 KindPromo,
		Type:                 TypePercentage,
		Value:                10,
		Active:               true,
		StackPolicy:          PolicyBestOnly,
		AppliesToAllProducts: true,
		CreatedAt:            time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func baseContext() Context {
	return Context{
		ProductID:     uuid.New(),
		OrderSubtotal: 100_000,
		AsOf:          time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFilterExcludesInactive(t *testing.T) {
	d := baseDiscount()
	d.Active = false
	if got := Filter([]Discount{d}, baseContext()); len(got) != 0 {
		t.Fatalf("expected inactive discount excluded, got %d", len(got))
	}
}

func TestFilterDateWindowInclusive(t *testing.T) {
	ctx := baseContext()
	d := baseDiscount()
	start := ctx.AsOf
	end := ctx.AsOf
	d.StartsAt = &start
	d.EndsAt = &end
	if got := Filter([]Discount{d}, ctx); len(got) != 1 {
		t.Fatalf("expected boundary instants to remain eligible, got %d", len(got))
	}

	after := ctx.AsOf.Add(time.Second)
	d.StartsAt = &after
	d.EndsAt = nil
	if got := Filter([]Discount{d}, ctx); len(got) != 0 {
		t.Fatalf("expected not-yet-started discount excluded")
	}

	before := ctx.AsOf.Add(-time.Second)
	d.StartsAt = nil
	d.EndsAt = &before
	if got := Filter([]Discount{d}, ctx); len(got) != 0 {
		t.Fatalf("expected ended discount excluded")
	}
}

func TestFilterKindPolicy(t *testing.T) {
	ctx := baseContext()
	autoship := baseDiscount()
	autoship.Kind = KindAutoship
	promo := baseDiscount()
	if got := Filter([]Discount{autoship}, ctx); len(got) != 0 {
		t.Fatalf("autoship discount must not apply to one-time purchase")
	}
	ctx.IsAutoship = true
	if got := Filter([]Discount{autoship, promo}, ctx); len(got) != 2 {
		t.Fatalf("autoship line takes both autoship and promo discounts, got %d", len(got))
	}
	ctx.IsAutoship = false
	if got := Filter([]Discount{promo}, ctx); len(got) != 1 {
		t.Fatalf("promo discount applies regardless of purchase mode")
	}
}

func TestFilterUnknownKindNeverMatches(t *testing.T) {
	d := baseDiscount()
	d.Kind = DiscountKind("loyalty")
	if got := Filter([]Discount{d}, baseContext()); len(got) != 0 {
		t.Fatalf("unknown kind must be excluded")
	}
}

func TestFilterTargeting(t *testing.T) {
	ctx := baseContext()
	scoped := baseDiscount()
	scoped.AppliesToAllProducts = false
	scoped.ProductIDs = []uuid.UUID{uuid.New()}
	if got := Filter([]Discount{scoped}, ctx); len(got) != 0 {
		t.Fatalf("discount scoped to other products must be excluded")
	}

	scoped.ProductIDs = append(scoped.ProductIDs, ctx.ProductID)
	if got := Filter([]Discount{scoped}, ctx); len(got) != 1 {
		t.Fatalf("discount targeting the product must remain")
	}

	// No global flag and no targets matches nothing.
	empty := baseDiscount()
	empty.AppliesToAllProducts = false
	empty.ProductIDs = nil
	if got := Filter([]Discount{empty}, ctx); len(got) != 0 {
		t.Fatalf("target-less discount must match nothing")
	}
}

func TestFilterMinOrderSubtotal(t *testing.T) {
	ctx := baseContext()
	d := baseDiscount()
	minimum := Money(150_000)
	d.MinOrderSubtotal = &minimum
	if got := Filter([]Discount{d}, ctx); len(got) != 0 {
		t.Fatalf("subtotal below minimum must exclude the discount")
	}
	ctx.OrderSubtotal = 150_000
	if got := Filter([]Discount{d}, ctx); len(got) != 1 {
		t.Fatalf("subtotal meeting the minimum must keep the discount")
	}
}

func TestFilterUsageLimit(t *testing.T) {
	ctx := baseContext()
	d := baseDiscount()
	limit := int32(5)
	d.UsageLimit = &limit
	ctx.UsageCounts = map[uuid.UUID]int64{d.ID: 5}
	if got := Filter([]Discount{d}, ctx); len(got) != 0 {
		t.Fatalf("exhausted discount must be excluded")
	}
	ctx.UsageCounts[d.ID] = 4
	if got := Filter([]Discount{d}, ctx); len(got) != 1 {
		t.Fatalf("discount under its limit must remain")
	}
}

package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func discountAt(t *testing.T, id string, created string) (uuid.UUID, time.Time) {
	t.Helper()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse uuid: %v", err)
	}
	stamp, err := time.Parse(time.RFC3339, created)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return parsed, stamp
}

func TestResolveNoDiscounts(t *testing.T) {
	productID := uuid.New()
	quote, err := Resolve(productID, 100_000, nil, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.FinalUnitPrice != 100_000 {
		t.Fatalf("expected final price 100000, got %d", quote.FinalUnitPrice)
	}
	if quote.LineTotal != 200_000 || quote.DiscountTotal != 0 {
		t.Fatalf("unexpected totals: line=%d discount=%d", quote.LineTotal, quote.DiscountTotal)
	}
	if len(quote.Applied) != 0 {
		t.Fatalf("expected no applied discounts, got %d", len(quote.Applied))
	}
}

func TestResolvePercentageBestOnly(t *testing.T) {
	id, created := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	d := Discount{ID: id, Kind: KindPromo, Type: TypePercentage, Value: 10, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: created}
	quote, err := Resolve(uuid.New(), 100_000, []Discount{d}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.FinalUnitPrice != 90_000 {
		t.Fatalf("expected final price 90000, got %d", quote.FinalUnitPrice)
	}
	if quote.DiscountTotal != 10_000 {
		t.Fatalf("expected discount total 10000, got %d", quote.DiscountTotal)
	}
	if len(quote.Applied) != 1 || quote.Applied[0].Amount != 10_000 {
		t.Fatalf("unexpected applied discounts: %+v", quote.Applied)
	}
}

func TestResolveFixedClampsAtZero(t *testing.T) {
	id, created := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	d := Discount{ID: id, Kind: KindPromo, Type: TypeFixed, Value: 60_000, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: created}
	quote, err := Resolve(uuid.New(), 50_000, []Discount{d}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.FinalUnitPrice != 0 {
		t.Fatalf("expected final price 0, got %d", quote.FinalUnitPrice)
	}
	if quote.LineTotal != 0 {
		t.Fatalf("expected line total 0, got %d", quote.LineTotal)
	}
	if quote.DiscountTotal != 150_000 {
		t.Fatalf("expected line discount 150000, got %d", quote.DiscountTotal)
	}
}

func TestResolveBestOnlyThenStack(t *testing.T) {
	bestID, bestCreated := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	stackID, stackCreated := discountAt(t, "22222222-2222-2222-2222-222222222222", "2026-02-01T00:00:00Z")
	discounts := []Discount{
		{ID: bestID, Kind: KindPromo, Type: TypePercentage, Value: 10, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: bestCreated},
		{ID: stackID, Kind: KindPromo, Type: TypeFixed, Value: 5_000, Active: true, StackPolicy: PolicyStack, CreatedAt: stackCreated},
	}
	quote, err := Resolve(uuid.New(), 100_000, discounts, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.FinalUnitPrice != 85_000 {
		t.Fatalf("expected final price 85000, got %d", quote.FinalUnitPrice)
	}
	if len(quote.Applied) != 2 {
		t.Fatalf("expected 2 applied discounts, got %d", len(quote.Applied))
	}
	if quote.Applied[0].ID != bestID || quote.Applied[0].Amount != 10_000 {
		t.Fatalf("unexpected best-only entry: %+v", quote.Applied[0])
	}
	if quote.Applied[1].ID != stackID || quote.Applied[1].Amount != 5_000 {
		t.Fatalf("unexpected stack entry: %+v", quote.Applied[1])
	}
}

func TestResolveBestOnlyPicksLargestSaving(t *testing.T) {
	smallID, smallCreated := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	bigID, bigCreated := discountAt(t, "22222222-2222-2222-2222-222222222222", "2026-02-01T00:00:00Z")
	discounts := []Discount{
		{ID: smallID, Kind: KindPromo, Type: TypeFixed, Value: 5_000, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: smallCreated},
		{ID: bigID, Kind: KindPromo, Type: TypePercentage, Value: 20, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: bigCreated},
	}
	quote, err := Resolve(uuid.New(), 100_000, discounts, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(quote.Applied) != 1 || quote.Applied[0].ID != bigID {
		t.Fatalf("expected %s to win, got %+v", bigID, quote.Applied)
	}
	if quote.FinalUnitPrice != 80_000 {
		t.Fatalf("expected final price 80000, got %d", quote.FinalUnitPrice)
	}
}

func TestResolveBestOnlyTieBreaksOnCreatedAt(t *testing.T) {
	olderID, olderCreated := discountAt(t, "99999999-9999-9999-9999-999999999999", "2026-01-01T00:00:00Z")
	newerID, newerCreated := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-03-01T00:00:00Z")
	discounts := []Discount{
		{ID: newerID, Kind: KindPromo, Type: TypeFixed, Value: 10_000, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: newerCreated},
		{ID: olderID, Kind: KindPromo, Type: TypePercentage, Value: 10, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: olderCreated},
	}
	// Both save 10,000 on a 100,000 unit price; the earlier created_at wins.
	for range 3 {
		quote, err := Resolve(uuid.New(), 100_000, discounts, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(quote.Applied) != 1 || quote.Applied[0].ID != olderID {
			t.Fatalf("expected deterministic winner %s, got %+v", olderID, quote.Applied)
		}
		discounts[0], discounts[1] = discounts[1], discounts[0]
	}
}

func TestResolveStackOrderIsDeterministic(t *testing.T) {
	firstID, firstCreated := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	secondID, secondCreated := discountAt(t, "22222222-2222-2222-2222-222222222222", "2026-02-01T00:00:00Z")
	discounts := []Discount{
		{ID: secondID, Kind: KindPromo, Type: TypePercentage, Value: 50, Active: true, StackPolicy: PolicyStack, CreatedAt: secondCreated},
		{ID: firstID, Kind: KindPromo, Type: TypeFixed, Value: 40_000, Active: true, StackPolicy: PolicyStack, CreatedAt: firstCreated},
	}
	// fixed 40,000 applies first (earlier created_at), then 50% of the 60,000
	// remainder: final 30,000 regardless of input order.
	for range 2 {
		quote, err := Resolve(uuid.New(), 100_000, discounts, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if quote.FinalUnitPrice != 30_000 {
			t.Fatalf("expected final price 30000, got %d", quote.FinalUnitPrice)
		}
		if quote.Applied[0].ID != firstID || quote.Applied[1].ID != secondID {
			t.Fatalf("unexpected application order: %+v", quote.Applied)
		}
		discounts[0], discounts[1] = discounts[1], discounts[0]
	}
}

func TestResolveStackedFixedNeverGoesNegative(t *testing.T) {
	aID, aCreated := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	bID, bCreated := discountAt(t, "22222222-2222-2222-2222-222222222222", "2026-02-01T00:00:00Z")
	discounts := []Discount{
		{ID: aID, Kind: KindPromo, Type: TypeFixed, Value: 8_000, Active: true, StackPolicy: PolicyStack, CreatedAt: aCreated},
		{ID: bID, Kind: KindPromo, Type: TypeFixed, Value: 8_000, Active: true, StackPolicy: PolicyStack, CreatedAt: bCreated},
	}
	quote, err := Resolve(uuid.New(), 10_000, discounts, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.FinalUnitPrice != 0 {
		t.Fatalf("expected final price 0, got %d", quote.FinalUnitPrice)
	}
	if quote.Applied[1].Amount != 2_000 {
		t.Fatalf("expected second fixed discount clamped to 2000, got %d", quote.Applied[1].Amount)
	}
}

func TestResolveRejectsInvalidValue(t *testing.T) {
	id, created := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	cases := []Discount{
		{ID: id, Kind: KindPromo, Type: TypePercentage, Value: 120, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: created},
		{ID: id, Kind: KindPromo, Type: TypeFixed, Value: -1, Active: true, StackPolicy: PolicyBestOnly, CreatedAt: created},
	}
	for _, d := range cases {
		_, err := Resolve(uuid.New(), 100_000, []Discount{d}, 1)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.DiscountID != id || verr.Field != "value" {
			t.Fatalf("unexpected error context: %+v", verr)
		}
	}
}

func TestResolveRejectsInvertedWindow(t *testing.T) {
	id, created := discountAt(t, "11111111-1111-1111-1111-111111111111", "2026-01-01T00:00:00Z")
	start := created.Add(48 * time.Hour)
	end := created
	d := Discount{ID: id, Kind: KindPromo, Type: TypeFixed, Value: 1_000, Active: true, StackPolicy: PolicyBestOnly, StartsAt: &start, EndsAt: &end, CreatedAt: created}
	_, err := Resolve(uuid.New(), 100_000, []Discount{d}, 1)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "starts_at" {
		t.Fatalf("expected starts_at violation, got %+v", verr)
	}
}

package discount

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/pricing"
	"github.com/feedspring/backend-store/internal/store"
)

type fakeQuerier struct {
	rules        map[string]store.Discount
	targets      map[string][]pgtype.UUID
	usage        map[string][]store.InsertDiscountUsageParams
	globalActive int64
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		rules:   map[string]store.Discount{},
		targets: map[string][]pgtype.UUID{},
		usage:   map[string][]store.InsertDiscountUsageParams{},
	}
}

func (f *fakeQuerier) CreateDiscount(_ context.Context, arg store.CreateDiscountParams) (store.Discount, error) {
	d := store.Discount{
		ID:                   store.FromUUID(uuid.New()),
		Name:                 arg.Name,
		Kind:                 arg.Kind,
		DiscountType:         arg.DiscountType,
		Value:                arg.Value,
		Active:               arg.Active,
		StartsAt:             arg.StartsAt,
		EndsAt:               arg.EndsAt,
		MinOrderSubtotal:     arg.MinOrderSubtotal,
		StackPolicy:          arg.StackPolicy,
		UsageLimit:           arg.UsageLimit,
		AppliesToAllProducts: arg.AppliesToAllProducts,
		CreatedAt:            pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.rules[store.UUIDString(d.ID)] = d
	return d, nil
}

func (f *fakeQuerier) UpdateDiscount(_ context.Context, arg store.UpdateDiscountParams) (store.Discount, error) {
	d, ok := f.rules[store.UUIDString(arg.ID)]
	if !ok {
		return store.Discount{}, store.ErrNotFound
	}
	d.Name, d.Kind, d.DiscountType, d.Value = arg.Name, arg.Kind, arg.DiscountType, arg.Value
	d.Active, d.StartsAt, d.EndsAt = arg.Active, arg.StartsAt, arg.EndsAt
	d.MinOrderSubtotal, d.StackPolicy, d.UsageLimit = arg.MinOrderSubtotal, arg.StackPolicy, arg.UsageLimit
	d.AppliesToAllProducts = arg.AppliesToAllProducts
	f.rules[store.UUIDString(arg.ID)] = d
	return d, nil
}

func (f *fakeQuerier) GetDiscount(_ context.Context, id pgtype.UUID) (store.Discount, error) {
	d, ok := f.rules[store.UUIDString(id)]
	if !ok {
		return store.Discount{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeQuerier) ListDiscounts(_ context.Context, _ store.ListDiscountsParams) ([]store.Discount, error) {
	out := make([]store.Discount, 0, len(f.rules))
	for _, d := range f.rules {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeQuerier) ReplaceDiscountTargets(_ context.Context, discountID pgtype.UUID, productIDs []pgtype.UUID) error {
	f.targets[store.UUIDString(discountID)] = productIDs
	return nil
}

func (f *fakeQuerier) CountActiveGlobalAutoship(_ context.Context, _ pgtype.UUID) (int64, error) {
	return f.globalActive, nil
}

func (f *fakeQuerier) CountDiscountUsage(_ context.Context, discountID pgtype.UUID) (int64, error) {
	return int64(len(f.usage[store.UUIDString(discountID)])), nil
}

func (f *fakeQuerier) InsertDiscountUsage(_ context.Context, arg store.InsertDiscountUsageParams) error {
	key := store.UUIDString(arg.DiscountID)
	orderKey := store.UUIDString(arg.OrderID)
	for _, existing := range f.usage[key] {
		if store.UUIDString(existing.OrderID) == orderKey {
			return nil
		}
	}
	f.usage[key] = append(f.usage[key], arg)
	return nil
}

type fakeTx struct {
	q *fakeQuerier
}

func (f fakeTx) Tx(_ context.Context, fn func(Querier) error) error {
	return fn(f.q)
}

func newTestService() (*Service, *fakeQuerier) {
	q := newFakeQuerier()
	return &Service{Runner: fakeTx{q: q}, Reader: q}, q
}

func validInput() Input {
	return Input{
		Name:         "Spring promo",
		Kind:         "promo",
		DiscountType: "percentage",
		Value:        10,
		Active:       true,
		StackPolicy:  "best_only",
		ProductIDs:   []uuid.UUID{uuid.New()},
	}
}

func TestCreateWritesRuleAndTargets(t *testing.T) {
	svc, q := newTestService()
	in := validInput()
	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, q.targets[store.UUIDString(created.ID)], 1)
}

func TestCreateRejectsPercentageOver100(t *testing.T) {
	svc, _ := newTestService()
	in := validInput()
	in.Value = 120
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	svc, _ := newTestService()
	in := validInput()
	start := time.Now()
	end := start.Add(-time.Hour)
	in.StartsAt, in.EndsAt = &start, &end
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
}

func TestCreateRejectsTargetlessRule(t *testing.T) {
	svc, _ := newTestService()
	in := validInput()
	in.ProductIDs = nil
	_, err := svc.Create(context.Background(), in)
	require.Error(t, err)
}

func TestCreateEnforcesSingleGlobalAutoship(t *testing.T) {
	svc, q := newTestService()
	q.globalActive = 1

	in := validInput()
	in.Kind = "autoship"
	in.AppliesToAllProducts = true
	in.ProductIDs = nil
	_, err := svc.Create(context.Background(), in)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "AUTOSHIP_GLOBAL_EXISTS", appErr.Code)

	// An inactive duplicate is allowed.
	in.Active = false
	_, err = svc.Create(context.Background(), in)
	require.NoError(t, err)
}

func TestUpdateMissingRule(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Update(context.Background(), uuid.New(), validInput())
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestSettleAggregatesPerDiscountAndIsIdempotent(t *testing.T) {
	_, q := newTestService()
	promo := uuid.New()
	autoship := uuid.New()
	cart := pricing.CartPricing{
		Lines: []pricing.PriceQuote{
			{
				Quantity: 3,
				Applied: []pricing.AppliedDiscount{
					{ID: promo, Amount: 1_000},
					{ID: autoship, Amount: 500},
				},
			},
			{
				Quantity: 1,
				Applied: []pricing.AppliedDiscount{
					{ID: promo, Amount: 2_000},
				},
			},
		},
	}
	orderID := store.FromUUID(uuid.New())
	userID := store.FromUUID(uuid.New())

	require.NoError(t, Settle(context.Background(), q, orderID, userID, cart))
	require.Len(t, q.usage[promo.String()], 1)
	require.Equal(t, int64(5_000), q.usage[promo.String()][0].Amount)
	require.Equal(t, int64(1_500), q.usage[autoship.String()][0].Amount)

	// Settling the same order again records nothing new.
	require.NoError(t, Settle(context.Background(), q, orderID, userID, cart))
	require.Len(t, q.usage[promo.String()], 1)
}

func TestToPricingCarriesOptionalFields(t *testing.T) {
	start := time.Now()
	min := int64(50_000)
	limit := int32(5)
	d := store.Discount{
		ID:               store.FromUUID(uuid.New()),
		Kind:             "autoship",
		DiscountType:     "fixed",
		Value:            7_500,
		Active:           true,
		StartsAt:         pgtype.Timestamptz{Time: start, Valid: true},
		MinOrderSubtotal: pgtype.Int8{Int64: min, Valid: true},
		StackPolicy:      "stack",
		UsageLimit:       pgtype.Int4{Int32: limit, Valid: true},
		ProductIds:       []pgtype.UUID{store.FromUUID(uuid.New())},
		CreatedAt:        pgtype.Timestamptz{Time: start, Valid: true},
	}
	snapshot := ToPricing(d)
	require.Equal(t, pricing.KindAutoship, snapshot.Kind)
	require.Equal(t, pricing.TypeFixed, snapshot.Type)
	require.NotNil(t, snapshot.StartsAt)
	require.Nil(t, snapshot.EndsAt)
	require.Equal(t, &min, snapshot.MinOrderSubtotal)
	require.Equal(t, &limit, snapshot.UsageLimit)
	require.Len(t, snapshot.ProductIDs, 1)
}

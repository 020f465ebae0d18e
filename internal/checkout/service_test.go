package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedspring/backend-store/internal/cart"
	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/events"
	"github.com/feedspring/backend-store/internal/store"
)

type fakeTx struct {
	products  map[string]store.Product
	discounts map[string][]store.Discount
	usage     map[string]int64

	orders      []store.Order
	items       []store.CreateOrderItemParams
	ledger      []store.InsertInventoryAdjustmentParams
	usageWrites []store.InsertDiscountUsageParams
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		products:  map[string]store.Product{},
		discounts: map[string][]store.Discount{},
		usage:     map[string]int64{},
	}
}

func (f *fakeTx) addProduct(price, stock int64, autoship bool) store.Product {
	p := store.Product{
		ID:               store.FromUUID(uuid.New()),
		Title:            "product",
		Slug:             uuid.NewString(),
		BasePrice:        price,
		Stock:            stock,
		AutoshipEligible: autoship,
		Active:           true,
	}
	f.products[store.UUIDString(p.ID)] = p
	return p
}

func (f *fakeTx) GetProduct(_ context.Context, id pgtype.UUID) (store.Product, error) {
	p, ok := f.products[store.UUIDString(id)]
	if !ok {
		return store.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeTx) ActiveDiscountsForProduct(_ context.Context, productID pgtype.UUID) ([]store.Discount, error) {
	return f.discounts[store.UUIDString(productID)], nil
}

func (f *fakeTx) CountDiscountUsage(_ context.Context, discountID pgtype.UUID) (int64, error) {
	return f.usage[store.UUIDString(discountID)], nil
}

func (f *fakeTx) GetProductStockForUpdate(_ context.Context, productID pgtype.UUID) (int64, error) {
	p, ok := f.products[store.UUIDString(productID)]
	if !ok {
		return 0, store.ErrNotFound
	}
	return p.Stock, nil
}

func (f *fakeTx) SetProductStock(_ context.Context, productID pgtype.UUID, stock int64) error {
	p := f.products[store.UUIDString(productID)]
	p.Stock = stock
	f.products[store.UUIDString(productID)] = p
	return nil
}

func (f *fakeTx) InsertInventoryAdjustment(_ context.Context, arg store.InsertInventoryAdjustmentParams) (store.InventoryAdjustment, error) {
	f.ledger = append(f.ledger, arg)
	return store.InventoryAdjustment{}, nil
}

func (f *fakeTx) CreateOrder(_ context.Context, arg store.CreateOrderParams) (store.Order, error) {
	o := store.Order{
		ID:            store.FromUUID(uuid.New()),
		UserID:        arg.UserID,
		Status:        arg.Status,
		Currency:      arg.Currency,
		Subtotal:      arg.Subtotal,
		DiscountTotal: arg.DiscountTotal,
		Total:         arg.Total,
		CreatedAt:     pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
	f.orders = append(f.orders, o)
	return o, nil
}

func (f *fakeTx) CreateOrderItem(_ context.Context, arg store.CreateOrderItemParams) error {
	f.items = append(f.items, arg)
	return nil
}

func (f *fakeTx) InsertDiscountUsage(_ context.Context, arg store.InsertDiscountUsageParams) error {
	f.usageWrites = append(f.usageWrites, arg)
	return nil
}

type fakeRunner struct {
	tx *fakeTx
}

func (r fakeRunner) Checkout(_ context.Context, fn func(tx Tx) error) error {
	return fn(r.tx)
}

type stubEventStore struct {
	events []store.InsertDomainEventParams
}

func (s *stubEventStore) InsertDomainEvent(_ context.Context, arg store.InsertDomainEventParams) (store.DomainEvent, error) {
	s.events = append(s.events, arg)
	return store.DomainEvent{Topic: arg.Topic, AggregateID: arg.AggregateID, Payload: arg.Payload}, nil
}

func globalPromo(value int64) store.Discount {
	return store.Discount{
		ID:                   store.FromUUID(uuid.New()),
		Kind:                 "promo",
		DiscountType:         "percentage",
		Value:                value,
		Active:               true,
		StackPolicy:          "best_only",
		AppliesToAllProducts: true,
		CreatedAt:            pgtype.Timestamptz{Time: time.Now(), Valid: true},
	}
}

func newService(tx *fakeTx) (*Service, *stubEventStore) {
	es := &stubEventStore{}
	return &Service{
		Runner:   fakeRunner{tx: tx},
		Events:   &events.Bus{Store: es},
		Log:      zerolog.Nop(),
		Currency: "USD",
	}, es
}

func TestPlaceOrderPricesAndPersists(t *testing.T) {
	tx := newFakeTx()
	p := tx.addProduct(100_000, 10, false)
	tx.discounts[store.UUIDString(p.ID)] = []store.Discount{globalPromo(10)}
	svc, es := newService(tx)

	userID := uuid.New()
	placed, err := svc.PlaceOrder(context.Background(), userID, []cart.LineInput{
		{ProductID: store.UUIDString(p.ID), Quantity: 2},
	})
	require.NoError(t, err)

	// Literal on purpose: the stored value must match the schema's status CHECK.
	assert.Equal(t, "placed", placed.Order.Status)
	assert.Equal(t, int64(200_000), placed.Order.Subtotal)
	assert.Equal(t, int64(20_000), placed.Order.DiscountTotal)
	assert.Equal(t, int64(180_000), placed.Order.Total)

	require.Len(t, tx.items, 1)
	assert.Equal(t, int64(90_000), tx.items[0].FinalUnitPrice)
	assert.Equal(t, int32(2), tx.items[0].Qty)

	// Stock decremented and the sale recorded in the ledger.
	assert.Equal(t, int64(8), tx.products[store.UUIDString(p.ID)].Stock)
	require.Len(t, tx.ledger, 1)
	assert.Equal(t, "sale", tx.ledger[0].Reason)
	assert.Equal(t, "remove", tx.ledger[0].Direction)
	assert.Equal(t, int64(10), tx.ledger[0].PreviousStock)
	assert.Equal(t, int64(8), tx.ledger[0].NewStock)

	// Discount usage settled for the applied rule.
	require.Len(t, tx.usageWrites, 1)
	assert.Equal(t, int64(20_000), tx.usageWrites[0].Amount)
	assert.Equal(t, userID, store.UUIDValue(tx.usageWrites[0].UserID))

	// Order placed event emitted after commit.
	require.Len(t, es.events, 1)
	assert.Equal(t, events.TopicOrderPlaced, es.events[0].Topic)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	tx := newFakeTx()
	p := tx.addProduct(10_000, 1, false)
	svc, es := newService(tx)

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), []cart.LineInput{
		{ProductID: store.UUIDString(p.ID), Quantity: 3},
	})
	require.Error(t, err)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
	assert.Equal(t, 409, appErr.HTTPStatus)
	assert.Empty(t, es.events)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	svc, _ := newService(newFakeTx())

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), []cart.LineInput{
		{ProductID: uuid.NewString(), Quantity: 1},
	})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 404, appErr.HTTPStatus)
}

func TestPlaceOrderMalformedDiscountFails(t *testing.T) {
	tx := newFakeTx()
	p := tx.addProduct(10_000, 5, false)
	bad := globalPromo(150)
	tx.discounts[store.UUIDString(p.ID)] = []store.Discount{bad}
	svc, _ := newService(tx)

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), []cart.LineInput{
		{ProductID: store.UUIDString(p.ID), Quantity: 1},
	})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DISCOUNT_DATA_INVALID", appErr.Code)
	assert.Equal(t, 422, appErr.HTTPStatus)
	assert.Empty(t, tx.orders, "no order may exist for an unpriceable cart")
}

func TestPlaceOrderAutoshipRequiresEligibleProduct(t *testing.T) {
	tx := newFakeTx()
	p := tx.addProduct(10_000, 5, false)
	svc, _ := newService(tx)

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), []cart.LineInput{
		{ProductID: store.UUIDString(p.ID), Quantity: 1, IsAutoship: true},
	})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.HTTPStatus)
}

func TestPlaceOrderKeepsPerLineAutoshipFlag(t *testing.T) {
	tx := newFakeTx()
	p := tx.addProduct(10_000, 10, true)
	svc, _ := newService(tx)

	// The same product ordered twice: once one-off, once on autoship.
	placed, err := svc.PlaceOrder(context.Background(), uuid.New(), []cart.LineInput{
		{ProductID: store.UUIDString(p.ID), Quantity: 1},
		{ProductID: store.UUIDString(p.ID), Quantity: 2, IsAutoship: true},
	})
	require.NoError(t, err)

	require.Len(t, tx.items, 2)
	assert.False(t, tx.items[0].IsAutoship)
	assert.True(t, tx.items[1].IsAutoship, "second line was requested as autoship")
	require.Len(t, placed.Items, 2)
	assert.False(t, placed.Items[0].IsAutoship)
	assert.True(t, placed.Items[1].IsAutoship)
}

type fakeReader struct {
	orders map[string]store.Order
	items  map[string][]store.OrderItem
}

func (f *fakeReader) GetOrder(_ context.Context, id pgtype.UUID) (store.Order, error) {
	o, ok := f.orders[store.UUIDString(id)]
	if !ok {
		return store.Order{}, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeReader) ListOrderItems(_ context.Context, orderID pgtype.UUID) ([]store.OrderItem, error) {
	return f.items[store.UUIDString(orderID)], nil
}

func (f *fakeReader) ListOrdersByUser(_ context.Context, userID pgtype.UUID, _, _ int32) ([]store.Order, error) {
	var out []store.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeReader) CountOrdersByUser(_ context.Context, userID pgtype.UUID) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func TestGetOrderOwnership(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	order := store.Order{ID: store.FromUUID(uuid.New()), UserID: store.FromUUID(owner), Status: OrderStatusPlaced}
	reader := &fakeReader{
		orders: map[string]store.Order{store.UUIDString(order.ID): order},
		items:  map[string][]store.OrderItem{},
	}
	svc := &Service{Reader: reader, Log: zerolog.Nop()}

	got, _, err := svc.GetOrder(context.Background(), store.UUIDValue(order.ID), owner, false)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	// Another customer cannot see the order, or even learn it exists.
	_, _, err = svc.GetOrder(context.Background(), store.UUIDValue(order.ID), other, false)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 404, appErr.HTTPStatus)

	// Admins can.
	_, _, err = svc.GetOrder(context.Background(), store.UUIDValue(order.ID), other, true)
	require.NoError(t, err)
}

func TestListOrdersReturnsPage(t *testing.T) {
	owner := uuid.New()
	order := store.Order{ID: store.FromUUID(uuid.New()), UserID: store.FromUUID(owner)}
	reader := &fakeReader{
		orders: map[string]store.Order{store.UUIDString(order.ID): order},
		items:  map[string][]store.OrderItem{},
	}
	svc := &Service{Reader: reader, Log: zerolog.Nop()}

	orders, page, err := svc.ListOrders(context.Background(), owner, 20, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, int32(20), page.Limit)
}

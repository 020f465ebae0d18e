package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/feedspring/backend-store/internal/cart"
	"github.com/feedspring/backend-store/internal/catalog"
	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/discount"
	"github.com/feedspring/backend-store/internal/events"
	"github.com/feedspring/backend-store/internal/inventory"
	"github.com/feedspring/backend-store/internal/obs"
	"github.com/feedspring/backend-store/internal/pricing"
	"github.com/feedspring/backend-store/internal/store"
)

// OrderStatusPlaced is the only status checkout writes; fulfilment flows
// move orders forward from here.
const OrderStatusPlaced = "placed"

// Tx is the transactional query surface order placement needs. Everything
// between the re-quote and the usage settlement happens on one transaction
// so the priced snapshot, the stock decrement and the ledger stay consistent.
type Tx interface {
	catalog.SnapshotQuerier
	GetProductStockForUpdate(ctx context.Context, productID pgtype.UUID) (int64, error)
	SetProductStock(ctx context.Context, productID pgtype.UUID, stock int64) error
	InsertInventoryAdjustment(ctx context.Context, arg store.InsertInventoryAdjustmentParams) (store.InventoryAdjustment, error)
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	CreateOrderItem(ctx context.Context, arg store.CreateOrderItemParams) error
	InsertDiscountUsage(ctx context.Context, arg store.InsertDiscountUsageParams) error
}

// Runner opens a checkout transaction.
type Runner interface {
	Checkout(ctx context.Context, fn func(tx Tx) error) error
}

// StoreRunner runs checkout transactions on the pgx store.
type StoreRunner struct {
	S *store.Store
}

// Checkout implements Runner.
func (r StoreRunner) Checkout(ctx context.Context, fn func(tx Tx) error) error {
	return r.S.InTx(ctx, func(q *store.Queries) error {
		return fn(q)
	})
}

// Reader serves order lookups outside the placement transaction.
type Reader interface {
	GetOrder(ctx context.Context, id pgtype.UUID) (store.Order, error)
	ListOrderItems(ctx context.Context, orderID pgtype.UUID) ([]store.OrderItem, error)
	ListOrdersByUser(ctx context.Context, userID pgtype.UUID, limit, offset int32) ([]store.Order, error)
	CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error)
}

// Service places orders and reads them back.
type Service struct {
	Runner   Runner
	Reader   Reader
	Events   *events.Bus
	Log      zerolog.Logger
	Currency string
	Now      func() time.Time
}

// PlacedOrder is the full result of a successful checkout.
type PlacedOrder struct {
	Order   store.Order
	Items   []store.OrderItem
	Pricing pricing.CartPricing
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// PlaceOrder prices the requested lines, persists the order, decrements
// stock and settles discount usage in one transaction. The quote a client
// saw earlier is advisory; the price written here is the one computed
// against the transaction's snapshot.
func (s *Service) PlaceOrder(ctx context.Context, userID uuid.UUID, inputs []cart.LineInput) (PlacedOrder, error) {
	if s.Runner == nil {
		return PlacedOrder{}, errors.New("checkout: runner not configured")
	}
	uid := store.FromUUID(userID)
	asOf := s.now()

	var placed PlacedOrder
	err := s.Runner.Checkout(ctx, func(tx Tx) error {
		lines, err := cart.ResolveLines(ctx, tx, inputs)
		if err != nil {
			return err
		}
		quote, err := pricing.Quote(ctx, lines, catalog.Snapshot{Q: tx}, asOf)
		if err != nil {
			return cart.MapQuoteError(err)
		}

		order, err := tx.CreateOrder(ctx, store.CreateOrderParams{
			UserID:        uid,
			Status:        OrderStatusPlaced,
			Currency:      s.Currency,
			Subtotal:      quote.Subtotal,
			DiscountTotal: quote.DiscountTotal,
			Total:         quote.Total,
		})
		if err != nil {
			return fmt.Errorf("checkout: create order: %w", err)
		}

		// Quote lines come back in input order, so quote.Lines[i] prices
		// lines[i]. The autoship flag must come from the matching input
		// line: the same product can appear once as autoship and once not.
		items := make([]store.OrderItem, 0, len(quote.Lines))
		for i, line := range quote.Lines {
			pid := store.FromUUID(line.ProductID)
			if err := s.decrementStock(ctx, tx, pid, order.ID, line.Quantity); err != nil {
				return err
			}
			item := store.CreateOrderItemParams{
				OrderID:        order.ID,
				ProductID:      pid,
				Qty:            int32(line.Quantity),
				UnitPrice:      line.UnitPrice,
				FinalUnitPrice: line.FinalUnitPrice,
				LineTotal:      line.LineTotal,
				DiscountTotal:  line.DiscountTotal,
				IsAutoship:     lines[i].IsAutoship,
			}
			if err := tx.CreateOrderItem(ctx, item); err != nil {
				return fmt.Errorf("checkout: create order item: %w", err)
			}
			items = append(items, store.OrderItem{
				OrderID:        item.OrderID,
				ProductID:      item.ProductID,
				Qty:            item.Qty,
				UnitPrice:      item.UnitPrice,
				FinalUnitPrice: item.FinalUnitPrice,
				LineTotal:      item.LineTotal,
				DiscountTotal:  item.DiscountTotal,
				IsAutoship:     item.IsAutoship,
			})
		}

		if err := discount.Settle(ctx, tx, order.ID, uid, quote); err != nil {
			return fmt.Errorf("checkout: settle discount usage: %w", err)
		}

		placed = PlacedOrder{Order: order, Items: items, Pricing: quote}
		return nil
	})
	if err != nil {
		return PlacedOrder{}, err
	}

	if obs.OrdersPlacedTotal != nil {
		obs.OrdersPlacedTotal.Inc()
	}
	s.emitPlaced(ctx, placed)
	return placed, nil
}

// decrementStock locks the product row and writes the sale to the ledger.
func (s *Service) decrementStock(ctx context.Context, tx Tx, productID, orderID pgtype.UUID, qty int) error {
	current, err := tx.GetProductStockForUpdate(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.ErrNotFound(fmt.Sprintf("product %s not found", store.UUIDString(productID)))
		}
		return err
	}
	next, err := inventory.ApplyAdjustment(current, inventory.ModeAdjust, inventory.DirectionRemove, int64(qty))
	if err != nil {
		if errors.Is(err, inventory.ErrInvalidAdjustment) {
			if obs.InventoryAdjustmentTotal != nil {
				obs.InventoryAdjustmentTotal.WithLabelValues(string(inventory.ModeAdjust), "rejected").Inc()
			}
			return common.NewAppError("INSUFFICIENT_STOCK",
				fmt.Sprintf("product %s has %d in stock, %d requested", store.UUIDString(productID), current, qty),
				409, err)
		}
		return err
	}
	if err := tx.SetProductStock(ctx, productID, next); err != nil {
		return fmt.Errorf("checkout: set stock: %w", err)
	}
	_, err = tx.InsertInventoryAdjustment(ctx, store.InsertInventoryAdjustmentParams{
		ProductID:     productID,
		Mode:          string(inventory.ModeAdjust),
		Direction:     string(inventory.DirectionRemove),
		Amount:        int64(qty),
		PreviousStock: current,
		NewStock:      next,
		Reason:        string(inventory.ReasonSale),
		Note:          pgtype.Text{String: "order " + store.UUIDString(orderID), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("checkout: record sale adjustment: %w", err)
	}
	if obs.InventoryAdjustmentTotal != nil {
		obs.InventoryAdjustmentTotal.WithLabelValues(string(inventory.ModeAdjust), "ok").Inc()
	}
	return nil
}

// emitPlaced publishes the order event after commit. A failed emit does not
// fail the already-committed order.
func (s *Service) emitPlaced(ctx context.Context, placed PlacedOrder) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"order_id":       store.UUIDString(placed.Order.ID),
		"user_id":        store.UUIDString(placed.Order.UserID),
		"currency":       placed.Order.Currency,
		"subtotal":       placed.Order.Subtotal,
		"discount_total": placed.Order.DiscountTotal,
		"total":          placed.Order.Total,
		"line_count":     len(placed.Items),
	}
	if _, err := s.Events.Emit(ctx, events.TopicOrderPlaced, placed.Order.ID, payload); err != nil {
		s.Log.Warn().Err(err).
			Str("order_id", store.UUIDString(placed.Order.ID)).
			Msg("order placed event fan-out failed")
	}
}

// GetOrder returns one order with its lines. Customers only see their own
// orders; admins see everything.
func (s *Service) GetOrder(ctx context.Context, orderID, userID uuid.UUID, isAdmin bool) (store.Order, []store.OrderItem, error) {
	order, err := s.Reader.GetOrder(ctx, store.FromUUID(orderID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Order{}, nil, common.ErrNotFound("order not found")
		}
		return store.Order{}, nil, err
	}
	if !isAdmin && store.UUIDValue(order.UserID) != userID {
		// Hide the order's existence from other customers.
		return store.Order{}, nil, common.ErrNotFound("order not found")
	}
	items, err := s.Reader.ListOrderItems(ctx, order.ID)
	if err != nil {
		return store.Order{}, nil, err
	}
	return order, items, nil
}

// ListOrders returns the user's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]store.Order, common.Page, error) {
	uid := store.FromUUID(userID)
	orders, err := s.Reader.ListOrdersByUser(ctx, uid, limit, offset)
	if err != nil {
		return nil, common.Page{}, err
	}
	total, err := s.Reader.CountOrdersByUser(ctx, uid)
	if err != nil {
		return nil, common.Page{}, err
	}
	return orders, common.Page{Limit: limit, Offset: offset, Total: total}, nil
}

package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/feedspring/backend-store/internal/events"
	"github.com/feedspring/backend-store/internal/obs"
	"github.com/feedspring/backend-store/internal/store"
)

// Ledger is the subset of store queries the inventory service needs.
type Ledger interface {
	GetProductStockForUpdate(ctx context.Context, productID pgtype.UUID) (int64, error)
	SetProductStock(ctx context.Context, productID pgtype.UUID, stock int64) error
	InsertInventoryAdjustment(ctx context.Context, arg store.InsertInventoryAdjustmentParams) (store.InventoryAdjustment, error)
	ListInventoryAdjustments(ctx context.Context, arg store.ListInventoryAdjustmentsParams) ([]store.InventoryAdjustment, error)
}

// Runner executes fn against a transactional ledger view. Stock reads, the
// stock write and the ledger insert must share one transaction so the row
// lock taken by GetProductStockForUpdate covers the whole adjustment.
type Runner interface {
	Ledger(ctx context.Context, fn func(Ledger) error) error
}

// StoreRunner adapts store.Store transactions to the Runner interface.
type StoreRunner struct {
	S *store.Store
}

func (r StoreRunner) Ledger(ctx context.Context, fn func(Ledger) error) error {
	return r.S.InTx(ctx, func(q *store.Queries) error {
		return fn(q)
	})
}

// Service applies stock adjustments and exposes the mutation ledger.
type Service struct {
	Runner Runner
	Reader Ledger
	Events *events.Bus
}

// AdjustRequest describes one requested stock mutation.
type AdjustRequest struct {
	ProductID uuid.UUID
	Mode      AdjustmentMode
	Direction AdjustmentDirection
	Amount    int64
	Reason    AdjustmentReason
	Note      string
}

// Adjust locks the product row, computes the new stock level and records a
// ledger entry, all in one transaction. Invalid requests leave stock
// untouched and return ErrInvalidAdjustment.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (store.InventoryAdjustment, error) {
	if !req.Reason.Valid() {
		return store.InventoryAdjustment{}, fmt.Errorf("unknown reason %q: %w", req.Reason, ErrInvalidAdjustment)
	}
	if req.Mode == ModeAdjust && req.Direction != DirectionAdd && req.Direction != DirectionRemove {
		return store.InventoryAdjustment{}, fmt.Errorf("unknown direction %q: %w", req.Direction, ErrInvalidAdjustment)
	}

	var entry store.InventoryAdjustment
	err := s.Runner.Ledger(ctx, func(q Ledger) error {
		current, err := q.GetProductStockForUpdate(ctx, store.FromUUID(req.ProductID))
		if err != nil {
			return err
		}
		next, err := ApplyAdjustment(current, req.Mode, req.Direction, req.Amount)
		if err != nil {
			return err
		}
		if err := q.SetProductStock(ctx, store.FromUUID(req.ProductID), next); err != nil {
			return err
		}
		direction := req.Direction
		if req.Mode == ModeSet {
			direction = DirectionAdd
			if next < current {
				direction = DirectionRemove
			}
		}
		entry, err = q.InsertInventoryAdjustment(ctx, store.InsertInventoryAdjustmentParams{
			ProductID:     store.FromUUID(req.ProductID),
			Mode:          string(req.Mode),
			Direction:     string(direction),
			Amount:        req.Amount,
			PreviousStock: current,
			NewStock:      next,
			Reason:        string(req.Reason),
			Note:          pgtype.Text{String: req.Note, Valid: req.Note != ""},
		})
		return err
	})
	if obs.InventoryAdjustmentTotal != nil {
		result := "ok"
		if err != nil {
			result = "rejected"
		}
		obs.InventoryAdjustmentTotal.WithLabelValues(string(req.Mode), result).Inc()
	}
	if err != nil {
		return store.InventoryAdjustment{}, err
	}
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicInventoryAdjusted, entry.ProductID, map[string]any{
			"product_id": store.UUIDString(entry.ProductID),
			"mode":       entry.Mode,
			"direction":  entry.Direction,
			"amount":     entry.Amount,
			"new_stock":  entry.NewStock,
			"reason":     entry.Reason,
		})
	}
	return entry, nil
}

// History lists ledger entries for a product, newest first.
func (s *Service) History(ctx context.Context, productID uuid.UUID, limit, offset int32) ([]store.InventoryAdjustment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.Reader.ListInventoryAdjustments(ctx, store.ListInventoryAdjustmentsParams{
		ProductID: store.FromUUID(productID),
		Limit:     limit,
		Offset:    offset,
	})
}

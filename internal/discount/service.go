package discount

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/events"
	"github.com/feedspring/backend-store/internal/pricing"
	"github.com/feedspring/backend-store/internal/store"
)

// Querier is the subset of store queries the discount service needs.
type Querier interface {
	CreateDiscount(ctx context.Context, arg store.CreateDiscountParams) (store.Discount, error)
	UpdateDiscount(ctx context.Context, arg store.UpdateDiscountParams) (store.Discount, error)
	GetDiscount(ctx context.Context, id pgtype.UUID) (store.Discount, error)
	ListDiscounts(ctx context.Context, arg store.ListDiscountsParams) ([]store.Discount, error)
	ReplaceDiscountTargets(ctx context.Context, discountID pgtype.UUID, productIDs []pgtype.UUID) error
	CountActiveGlobalAutoship(ctx context.Context, excludeID pgtype.UUID) (int64, error)
	CountDiscountUsage(ctx context.Context, discountID pgtype.UUID) (int64, error)
}

// Runner executes fn transactionally so rule writes and their uniqueness
// precondition commit or roll back together.
type Runner interface {
	Tx(ctx context.Context, fn func(Querier) error) error
}

// StoreRunner adapts store.Store transactions to the Runner interface.
type StoreRunner struct {
	S *store.Store
}

func (r StoreRunner) Tx(ctx context.Context, fn func(Querier) error) error {
	return r.S.InTx(ctx, func(q *store.Queries) error {
		return fn(q)
	})
}

// Service manages discount rules.
type Service struct {
	Runner Runner
	Reader Querier
	Events *events.Bus
}

// emit publishes a rule change event. Emission failures never fail the
// already-committed write.
func (s *Service) emit(ctx context.Context, topic string, d store.Discount) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, d.ID, map[string]any{
		"discount_id": store.UUIDString(d.ID),
		"kind":        d.Kind,
		"active":      d.Active,
	})
}

// Input is a full discount rule definition supplied by an admin.
type Input struct {
	Name                 string
	Kind                 string
	DiscountType         string
	Value                int64
	Active               bool
	StartsAt             *time.Time
	EndsAt               *time.Time
	MinOrderSubtotal     *int64
	StackPolicy          string
	UsageLimit           *int32
	AppliesToAllProducts bool
	ProductIDs           []uuid.UUID
}

func (in Input) validate(id uuid.UUID) error {
	snapshot := pricing.Discount{
		ID:               id,
		Kind:             pricing.DiscountKind(in.Kind),
		Type:             pricing.DiscountType(in.DiscountType),
		Value:            in.Value,
		StartsAt:         in.StartsAt,
		EndsAt:           in.EndsAt,
		MinOrderSubtotal: in.MinOrderSubtotal,
		StackPolicy:      pricing.StackPolicy(in.StackPolicy),
	}
	if err := snapshot.Validate(); err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			return common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("%s: %s", verr.Field, verr.Reason), http.StatusBadRequest, err)
		}
		return err
	}
	if !in.AppliesToAllProducts && len(in.ProductIDs) == 0 {
		return common.ErrBadRequest("a targeted discount needs at least one product")
	}
	return nil
}

// Create persists a new discount rule with its targets. An active all-product
// autoship rule is refused while another one exists.
func (s *Service) Create(ctx context.Context, in Input) (store.Discount, error) {
	if err := in.validate(uuid.Nil); err != nil {
		return store.Discount{}, err
	}
	var created store.Discount
	err := s.Runner.Tx(ctx, func(q Querier) error {
		if err := s.checkGlobalAutoship(ctx, q, in, pgtype.UUID{}); err != nil {
			return err
		}
		var err error
		created, err = q.CreateDiscount(ctx, storeParams(in))
		if err != nil {
			return err
		}
		return s.writeTargets(ctx, q, created.ID, in)
	})
	if err != nil {
		return store.Discount{}, err
	}
	created.ProductIds = toPgUUIDs(in.ProductIDs)
	s.emit(ctx, events.TopicDiscountCreated, created)
	return created, nil
}

// Update rewrites an existing rule and its targets.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (store.Discount, error) {
	if err := in.validate(id); err != nil {
		return store.Discount{}, err
	}
	var updated store.Discount
	err := s.Runner.Tx(ctx, func(q Querier) error {
		if err := s.checkGlobalAutoship(ctx, q, in, store.FromUUID(id)); err != nil {
			return err
		}
		arg := store.UpdateDiscountParams{ID: store.FromUUID(id)}
		p := storeParams(in)
		arg.Name, arg.Kind, arg.DiscountType, arg.Value = p.Name, p.Kind, p.DiscountType, p.Value
		arg.Active, arg.StartsAt, arg.EndsAt = p.Active, p.StartsAt, p.EndsAt
		arg.MinOrderSubtotal, arg.StackPolicy, arg.UsageLimit = p.MinOrderSubtotal, p.StackPolicy, p.UsageLimit
		arg.AppliesToAllProducts = p.AppliesToAllProducts
		var err error
		updated, err = q.UpdateDiscount(ctx, arg)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return common.ErrNotFound("discount not found")
			}
			return err
		}
		return s.writeTargets(ctx, q, updated.ID, in)
	})
	if err != nil {
		return store.Discount{}, err
	}
	updated.ProductIds = toPgUUIDs(in.ProductIDs)
	s.emit(ctx, events.TopicDiscountUpdated, updated)
	return updated, nil
}

// Get returns one rule with its usage count.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (store.Discount, int64, error) {
	d, err := s.Reader.GetDiscount(ctx, store.FromUUID(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Discount{}, 0, common.ErrNotFound("discount not found")
		}
		return store.Discount{}, 0, err
	}
	used, err := s.Reader.CountDiscountUsage(ctx, d.ID)
	if err != nil {
		return store.Discount{}, 0, err
	}
	return d, used, nil
}

// List returns rules newest first.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]store.Discount, error) {
	return s.Reader.ListDiscounts(ctx, store.ListDiscountsParams{Limit: limit, Offset: offset})
}

func (s *Service) checkGlobalAutoship(ctx context.Context, q Querier, in Input, excludeID pgtype.UUID) error {
	if !in.Active || !in.AppliesToAllProducts || in.Kind != string(pricing.KindAutoship) {
		return nil
	}
	count, err := q.CountActiveGlobalAutoship(ctx, excludeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return common.NewAppError("AUTOSHIP_GLOBAL_EXISTS",
			"an active all-product autoship discount already exists", http.StatusConflict, nil)
	}
	return nil
}

func (s *Service) writeTargets(ctx context.Context, q Querier, id pgtype.UUID, in Input) error {
	if in.AppliesToAllProducts {
		return q.ReplaceDiscountTargets(ctx, id, nil)
	}
	return q.ReplaceDiscountTargets(ctx, id, toPgUUIDs(in.ProductIDs))
}

func storeParams(in Input) store.CreateDiscountParams {
	return store.CreateDiscountParams{
		Name:                 in.Name,
		Kind:                 in.Kind,
		DiscountType:         in.DiscountType,
		Value:                in.Value,
		Active:               in.Active,
		StartsAt:             store.NullableTime(in.StartsAt),
		EndsAt:               store.NullableTime(in.EndsAt),
		MinOrderSubtotal:     store.NullableInt8(in.MinOrderSubtotal),
		StackPolicy:          in.StackPolicy,
		UsageLimit:           store.NullableInt4(in.UsageLimit),
		AppliesToAllProducts: in.AppliesToAllProducts,
	}
}

func toPgUUIDs(ids []uuid.UUID) []pgtype.UUID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		out = append(out, store.FromUUID(id))
	}
	return out
}

// ToPricing converts a stored discount row into the snapshot form the pricing
// engine consumes.
func ToPricing(d store.Discount) pricing.Discount {
	snapshot := pricing.Discount{
		ID:                   store.UUIDValue(d.ID),
		Kind:                 pricing.DiscountKind(d.Kind),
		Type:                 pricing.DiscountType(d.DiscountType),
		Value:                d.Value,
		Active:               d.Active,
		StackPolicy:          pricing.StackPolicy(d.StackPolicy),
		AppliesToAllProducts: d.AppliesToAllProducts,
		CreatedAt:            d.CreatedAt.Time,
	}
	if d.StartsAt.Valid {
		t := d.StartsAt.Time
		snapshot.StartsAt = &t
	}
	if d.EndsAt.Valid {
		t := d.EndsAt.Time
		snapshot.EndsAt = &t
	}
	if d.MinOrderSubtotal.Valid {
		v := d.MinOrderSubtotal.Int64
		snapshot.MinOrderSubtotal = &v
	}
	if d.UsageLimit.Valid {
		v := d.UsageLimit.Int32
		snapshot.UsageLimit = &v
	}
	for _, pid := range d.ProductIds {
		if pid.Valid {
			snapshot.ProductIDs = append(snapshot.ProductIDs, store.UUIDValue(pid))
		}
	}
	return snapshot
}

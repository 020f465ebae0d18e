package store

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Product is a catalog product row.
type Product struct {
	ID               pgtype.UUID
	Title            string
	Slug             string
	BasePrice        int64
	AutoshipEligible bool
	Stock            int64
	Active           bool
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

// Discount is a discount rule row joined with its product targets.
type Discount struct {
	ID                   pgtype.UUID
	Name                 string
	Kind                 string
	DiscountType         string
	Value                int64
	Active               bool
	StartsAt             pgtype.Timestamptz
	EndsAt               pgtype.Timestamptz
	MinOrderSubtotal     pgtype.Int8
	StackPolicy          string
	UsageLimit           pgtype.Int4
	AppliesToAllProducts bool
	ProductIds           []pgtype.UUID
	CreatedAt            pgtype.Timestamptz
	UpdatedAt            pgtype.Timestamptz
}

// DiscountUsage records a settled discount application against an order.
type DiscountUsage struct {
	ID         pgtype.UUID
	DiscountID pgtype.UUID
	OrderID    pgtype.UUID
	UserID     pgtype.UUID
	Amount     int64
	CreatedAt  pgtype.Timestamptz
}

// InventoryAdjustment is one entry in the stock mutation ledger.
type InventoryAdjustment struct {
	ID            pgtype.UUID
	ProductID     pgtype.UUID
	Mode          string
	Direction     string
	Amount        int64
	PreviousStock int64
	NewStock      int64
	Reason        string
	Note          pgtype.Text
	CreatedAt     pgtype.Timestamptz
}

// Order is a placed order header.
type Order struct {
	ID            pgtype.UUID
	UserID        pgtype.UUID
	Status        string
	Currency      string
	Subtotal      int64
	DiscountTotal int64
	Total         int64
	CreatedAt     pgtype.Timestamptz
}

// OrderItem is one priced line on an order.
type OrderItem struct {
	ID             pgtype.UUID
	OrderID        pgtype.UUID
	ProductID      pgtype.UUID
	Qty            int32
	UnitPrice      int64
	FinalUnitPrice int64
	LineTotal      int64
	DiscountTotal  int64
	IsAutoship     bool
}

// User is an account row.
type User struct {
	ID           pgtype.UUID
	Name         string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// DomainEvent is a persisted domain event for fan-out.
type DomainEvent struct {
	ID          pgtype.UUID
	Topic       string
	AggregateID pgtype.UUID
	Payload     []byte
	OccurredAt  pgtype.Timestamptz
}

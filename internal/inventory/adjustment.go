package inventory

import (
	"errors"
	"fmt"
)

// ErrInvalidAdjustment indicates the requested change would produce an
// impossible stock level. Nothing is mutated when it is returned.
var ErrInvalidAdjustment = errors.New("inventory: invalid adjustment")

// AdjustmentMode selects between delta and absolute stock changes.
type AdjustmentMode string

const (
	// ModeAdjust applies a signed delta to the current stock.
	ModeAdjust AdjustmentMode = "adjust"
	// ModeSet replaces the stock with an exact non-negative target.
	ModeSet AdjustmentMode = "set"
)

// AdjustmentDirection orients a delta in adjust mode.
type AdjustmentDirection string

const (
	// DirectionAdd increases stock.
	DirectionAdd AdjustmentDirection = "add"
	// DirectionRemove decreases stock.
	DirectionRemove AdjustmentDirection = "remove"
)

// AdjustmentReason is the audit tag attached to every stock mutation.
type AdjustmentReason string

const (
	ReasonRestock          AdjustmentReason = "restock"
	ReasonDamaged          AdjustmentReason = "damaged"
	ReasonLost             AdjustmentReason = "lost"
	ReasonAuditCorrection  AdjustmentReason = "audit_correction"
	ReasonReturn           AdjustmentReason = "return"
	ReasonManualAdjustment AdjustmentReason = "manual_adjustment"
	// ReasonSale is written by order placement, not by the admin API.
	ReasonSale AdjustmentReason = "sale"
)

// Valid reports whether the reason belongs to the fixed enumeration.
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonRestock, ReasonDamaged, ReasonLost, ReasonAuditCorrection, ReasonReturn, ReasonManualAdjustment, ReasonSale:
		return true
	}
	return false
}

// ApplyAdjustment computes the stock level after an adjustment. It is a pure,
// total function: in adjust mode the amount must be positive and removing more
// than is available fails with ErrInvalidAdjustment; in set mode any
// non-negative target is accepted and the direction is ignored.
func ApplyAdjustment(currentStock int64, mode AdjustmentMode, direction AdjustmentDirection, amount int64) (int64, error) {
	switch mode {
	case ModeSet:
		if amount < 0 {
			return 0, fmt.Errorf("set target %d is negative: %w", amount, ErrInvalidAdjustment)
		}
		return amount, nil
	case ModeAdjust:
		if amount <= 0 {
			return 0, fmt.Errorf("adjust amount %d must be positive: %w", amount, ErrInvalidAdjustment)
		}
		switch direction {
		case DirectionAdd:
			return currentStock + amount, nil
		case DirectionRemove:
			next := currentStock - amount
			if next < 0 {
				return 0, fmt.Errorf("remove %d exceeds stock %d: %w", amount, currentStock, ErrInvalidAdjustment)
			}
			return next, nil
		}
		return 0, fmt.Errorf("unknown direction %q: %w", direction, ErrInvalidAdjustment)
	}
	return 0, fmt.Errorf("unknown mode %q: %w", mode, ErrInvalidAdjustment)
}

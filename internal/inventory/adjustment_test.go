package inventory

import (
	"errors"
	"testing"
)

func TestApplyAdjustmentAdd(t *testing.T) {
	got, err := ApplyAdjustment(7, ModeAdjust, DirectionAdd, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestApplyAdjustmentRemove(t *testing.T) {
	got, err := ApplyAdjustment(7, ModeAdjust, DirectionRemove, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestApplyAdjustmentRemoveBelowZero(t *testing.T) {
	_, err := ApplyAdjustment(3, ModeAdjust, DirectionRemove, 4)
	if !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("expected ErrInvalidAdjustment, got %v", err)
	}
}

func TestApplyAdjustmentNonPositiveAmount(t *testing.T) {
	for _, amount := range []int64{0, -5} {
		if _, err := ApplyAdjustment(10, ModeAdjust, DirectionAdd, amount); !errors.Is(err, ErrInvalidAdjustment) {
			t.Fatalf("amount %d: expected ErrInvalidAdjustment, got %v", amount, err)
		}
	}
}

func TestApplyAdjustmentSet(t *testing.T) {
	cases := []struct {
		name    string
		current int64
		target  int64
		want    int64
	}{
		{"raise", 2, 50, 50},
		{"lower", 50, 2, 2},
		{"zero", 9, 0, 0},
		{"unchanged", 9, 9, 9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ApplyAdjustment(tc.current, ModeSet, "", tc.target)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestApplyAdjustmentSetNegative(t *testing.T) {
	_, err := ApplyAdjustment(10, ModeSet, "", -1)
	if !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("expected ErrInvalidAdjustment, got %v", err)
	}
}

func TestApplyAdjustmentUnknownModeOrDirection(t *testing.T) {
	if _, err := ApplyAdjustment(10, "replace", DirectionAdd, 1); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("expected ErrInvalidAdjustment for unknown mode, got %v", err)
	}
	if _, err := ApplyAdjustment(10, ModeAdjust, "sideways", 1); !errors.Is(err, ErrInvalidAdjustment) {
		t.Fatalf("expected ErrInvalidAdjustment for unknown direction, got %v", err)
	}
}

func TestAdjustmentReasonValid(t *testing.T) {
	for _, r := range []AdjustmentReason{ReasonRestock, ReasonDamaged, ReasonLost, ReasonAuditCorrection, ReasonReturn, ReasonManualAdjustment} {
		if !r.Valid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if AdjustmentReason("shrinkage").Valid() {
		t.Fatal("expected unknown reason to be rejected")
	}
}

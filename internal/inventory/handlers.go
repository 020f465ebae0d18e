package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/store"
)

// Handler wires the inventory service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type adjustPayload struct {
	Mode      string `json:"mode" validate:"required,oneof=adjust set"`
	Direction string `json:"direction" validate:"omitempty,oneof=add remove"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason" validate:"required,oneof=restock damaged lost audit_correction return manual_adjustment"`
	Note      string `json:"note" validate:"omitempty,max=500"`
}

// Adjust applies a stock adjustment to a product and returns the ledger entry.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "inventory service not configured", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload adjustPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid adjustment payload", common.ValidationDetails(err))
			return
		}
	}
	if payload.Mode == string(ModeAdjust) && payload.Direction == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "direction is required in adjust mode", nil)
		return
	}
	entry, err := h.Svc.Adjust(r.Context(), AdjustRequest{
		ProductID: productID,
		Mode:      AdjustmentMode(payload.Mode),
		Direction: AdjustmentDirection(payload.Direction),
		Amount:    payload.Amount,
		Reason:    AdjustmentReason(payload.Reason),
		Note:      payload.Note,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": adjustmentResponse(entry)})
}

// History lists the adjustment ledger for a product, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "inventory service not configured", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	limit := queryInt32(r, "limit", 20)
	offset := queryInt32(r, "offset", 0)
	entries, err := h.Svc.History(r.Context(), productID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, adjustmentResponse(e))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAdjustment):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_ADJUSTMENT", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to adjust inventory", nil)
	}
}

func adjustmentResponse(e store.InventoryAdjustment) map[string]any {
	var note *string
	if e.Note.Valid {
		note = &e.Note.String
	}
	return map[string]any{
		"id":            store.UUIDString(e.ID),
		"productId":     store.UUIDString(e.ProductID),
		"mode":          e.Mode,
		"direction":     e.Direction,
		"amount":        e.Amount,
		"previousStock": e.PreviousStock,
		"newStock":      e.NewStock,
		"reason":        e.Reason,
		"note":          note,
		"createdAt":     e.CreatedAt.Time,
	}
}

func queryInt32(r *http.Request, key string, def int32) int32 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return def
	}
	return int32(v)
}

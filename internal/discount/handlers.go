package discount

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/store"
)

// Handler wires discount administration to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type rulePayload struct {
	Name                 string     `json:"name" validate:"required,max=200"`
	Kind                 string     `json:"kind" validate:"required,oneof=promo autoship"`
	DiscountType         string     `json:"discountType" validate:"required,oneof=percentage fixed"`
	Value                int64      `json:"value" validate:"gte=0"`
	Active               bool       `json:"active"`
	StartsAt             *time.Time `json:"startsAt"`
	EndsAt               *time.Time `json:"endsAt"`
	MinOrderSubtotal     *int64     `json:"minOrderSubtotal" validate:"omitempty,gte=0"`
	StackPolicy          string     `json:"stackPolicy" validate:"required,oneof=best_only stack"`
	UsageLimit           *int32     `json:"usageLimit" validate:"omitempty,gte=1"`
	AppliesToAllProducts bool       `json:"appliesToAllProducts"`
	ProductIDs           []string   `json:"productIds" validate:"dive,uuid4|uuid"`
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var payload rulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Input{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid discount payload", common.ValidationDetails(err))
			return Input{}, false
		}
	}
	productIDs := make([]uuid.UUID, 0, len(payload.ProductIDs))
	for _, raw := range payload.ProductIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id in targets", nil)
			return Input{}, false
		}
		productIDs = append(productIDs, id)
	}
	return Input{
		Name:                 payload.Name,
		Kind:                 payload.Kind,
		DiscountType:         payload.DiscountType,
		Value:                payload.Value,
		Active:               payload.Active,
		StartsAt:             payload.StartsAt,
		EndsAt:               payload.EndsAt,
		MinOrderSubtotal:     payload.MinOrderSubtotal,
		StackPolicy:          payload.StackPolicy,
		UsageLimit:           payload.UsageLimit,
		AppliesToAllProducts: payload.AppliesToAllProducts,
		ProductIDs:           productIDs,
	}, true
}

// Create handles POST /api/v1/admin/discounts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	created, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, ruleResponse(created, nil))
}

// Update handles PUT /api/v1/admin/discounts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount id", nil)
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	updated, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, ruleResponse(updated, nil))
}

// Get handles GET /api/v1/admin/discounts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount id", nil)
		return
	}
	d, used, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, ruleResponse(d, &used))
}

// List handles GET /api/v1/admin/discounts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := common.ParseLimitOffset(r, 20, 100)
	rules, err := h.Svc.List(r.Context(), limit, offset)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(rules))
	for _, d := range rules {
		out = append(out, ruleResponse(d, nil))
	}
	common.JSONData(w, http.StatusOK, out)
}

func ruleResponse(d store.Discount, usageCount *int64) map[string]any {
	targets := make([]string, 0, len(d.ProductIds))
	for _, pid := range d.ProductIds {
		if pid.Valid {
			targets = append(targets, store.UUIDString(pid))
		}
	}
	resp := map[string]any{
		"id":                   store.UUIDString(d.ID),
		"name":                 d.Name,
		"kind":                 d.Kind,
		"discountType":         d.DiscountType,
		"value":                d.Value,
		"active":               d.Active,
		"stackPolicy":          d.StackPolicy,
		"appliesToAllProducts": d.AppliesToAllProducts,
		"productIds":           targets,
		"createdAt":            d.CreatedAt.Time,
	}
	if d.StartsAt.Valid {
		resp["startsAt"] = d.StartsAt.Time
	}
	if d.EndsAt.Valid {
		resp["endsAt"] = d.EndsAt.Time
	}
	if d.MinOrderSubtotal.Valid {
		resp["minOrderSubtotal"] = d.MinOrderSubtotal.Int64
	}
	if d.UsageLimit.Valid {
		resp["usageLimit"] = d.UsageLimit.Int32
	}
	if usageCount != nil {
		resp["usageCount"] = *usageCount
	}
	return resp
}

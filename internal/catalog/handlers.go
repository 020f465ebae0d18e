package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/store"
)

// Handler wires the catalog service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// List handles GET /api/v1/products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := common.ParseLimitOffset(r, 20, 100)
	result, err := h.Svc.List(r.Context(), limit, offset)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": result.Items,
		"meta": common.Page{Limit: limit, Offset: offset, Total: result.Total},
	})
}

// Detail handles GET /api/v1/products/{slug}.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Svc.Detail(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, detail)
}

type createProductPayload struct {
	Title            string `json:"title" validate:"required,max=300"`
	Slug             string `json:"slug" validate:"required,max=200"`
	BasePrice        int64  `json:"basePrice" validate:"gte=0"`
	AutoshipEligible bool   `json:"autoshipEligible"`
	Stock            int64  `json:"stock" validate:"gte=0"`
}

// Create handles POST /api/v1/admin/products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product payload", common.ValidationDetails(err))
			return
		}
	}
	created, err := h.Svc.Create(r.Context(), CreateInput{
		Title:            payload.Title,
		Slug:             payload.Slug,
		BasePrice:        payload.BasePrice,
		AutoshipEligible: payload.AutoshipEligible,
		Stock:            payload.Stock,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, map[string]any{
		"id":               store.UUIDString(created.ID),
		"title":            created.Title,
		"slug":             created.Slug,
		"basePrice":        created.BasePrice,
		"autoshipEligible": created.AutoshipEligible,
		"stock":            created.Stock,
	})
}

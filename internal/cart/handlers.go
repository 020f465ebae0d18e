package cart

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/feedspring/backend-store/internal/common"
)

// Handler wires cart quoting to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type quotePayload struct {
	Lines []LineInput `json:"lines" validate:"required,min=1,dive"`
}

// Quote handles POST /api/v1/carts/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var payload quotePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid quote payload", common.ValidationDetails(err))
			return
		}
	}
	result, err := h.Svc.Quote(r.Context(), payload.Lines)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, result)
}

package checkout

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/feedspring/backend-store/internal/cart"
	"github.com/feedspring/backend-store/internal/common"
	"github.com/feedspring/backend-store/internal/store"
)

// Handler wires checkout and order reads to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type placeOrderPayload struct {
	Lines []cart.LineInput `json:"lines" validate:"required,min=1,dive"`
}

type orderItemResponse struct {
	ProductID      string `json:"productId"`
	Qty            int32  `json:"qty"`
	UnitPrice      int64  `json:"unitPrice"`
	FinalUnitPrice int64  `json:"finalUnitPrice"`
	LineTotal      int64  `json:"lineTotal"`
	DiscountTotal  int64  `json:"discountTotal"`
	IsAutoship     bool   `json:"isAutoship"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	Currency      string              `json:"currency"`
	Subtotal      int64               `json:"subtotal"`
	DiscountTotal int64               `json:"discountTotal"`
	Total         int64               `json:"total"`
	CreatedAt     time.Time           `json:"createdAt"`
	Items         []orderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(o store.Order, items []store.OrderItem) orderResponse {
	resp := orderResponse{
		ID:            store.UUIDString(o.ID),
		Status:        o.Status,
		Currency:      o.Currency,
		Subtotal:      o.Subtotal,
		DiscountTotal: o.DiscountTotal,
		Total:         o.Total,
		CreatedAt:     o.CreatedAt.Time,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:      store.UUIDString(it.ProductID),
			Qty:            it.Qty,
			UnitPrice:      it.UnitPrice,
			FinalUnitPrice: it.FinalUnitPrice,
			LineTotal:      it.LineTotal,
			DiscountTotal:  it.DiscountTotal,
			IsAutoship:     it.IsAutoship,
		})
	}
	return resp
}

func authedUser(r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// PlaceOrder handles POST /api/v1/checkout.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload placeOrderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid checkout payload", common.ValidationDetails(err))
			return
		}
	}
	placed, err := h.Svc.PlaceOrder(r.Context(), userID, payload.Lines)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	resp := toOrderResponse(placed.Order, placed.Items)
	common.JSONData(w, http.StatusCreated, map[string]any{
		"order":   resp,
		"pricing": placed.Pricing,
	})
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	order, items, err := h.Svc.GetOrder(r.Context(), orderID, userID, common.HasRole(r.Context(), "admin"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, toOrderResponse(order, items))
}

// ListOrders handles GET /api/v1/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(r)
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	limit, offset := common.ParseLimitOffset(r, 20, 100)
	orders, page, err := h.Svc.ListOrders(r.Context(), userID, limit, offset)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, nil))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": out,
		"meta": page,
	})
}

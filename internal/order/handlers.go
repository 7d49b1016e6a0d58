package order

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/paysim-labs/xpay-sim/internal/common"
	"github.com/paysim-labs/xpay-sim/internal/xpay"
)

// Handler exposes the merchant backend's storefront-facing endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createIntentReq struct {
	Amount   int64          `json:"amount" validate:"required,gt=0"`
	Currency string         `json:"currency"`
	Customer *xpay.Customer `json:"customer"`
	Shipping *xpay.Shipping `json:"shipping"`
	Metadata map[string]any `json:"metadata"`
	OrderID  string         `json:"orderId"`
}

type createOrderReq struct {
	PaymentIntentID string  `json:"paymentIntentId"`
	OrderDetails    Details `json:"orderDetails"`
	PaymentMethod   string  `json:"paymentMethod" validate:"omitempty,oneof=Card COD"`
	OrderID         string  `json:"orderId"`
}

// CreateIntent handles POST /api/create-payment-intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "invalid body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "amount must be a positive integer", nil)
		return
	}
	result, err := h.Svc.CreateIntent(r.Context(), CreateIntentRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Customer: req.Customer,
		Shipping: req.Shipping,
		Metadata: req.Metadata,
		OrderID:  req.OrderID,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// CreateOrder handles POST /api/create-order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "invalid body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "paymentMethod must be Card or COD", nil)
		return
	}
	o, err := h.Svc.Finalize(r.Context(), FinalizeRequest{
		PaymentIntentID: req.PaymentIntentID,
		PaymentMethod:   req.PaymentMethod,
		OrderID:         req.OrderID,
		Details:         req.OrderDetails,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "order": o})
}

// Health handles GET /api/health, reporting liveness and the order count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"backend":     "running",
		"ordersCount": h.Svc.Store.Count(r.Context()),
	})
}

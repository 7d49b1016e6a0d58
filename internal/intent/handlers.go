package intent

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/paysim-labs/xpay-sim/internal/common"
)

// Handler exposes the gateway's payment-intent endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type createReq struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required"`
}

type confirmReq struct {
	ClientSecret      string          `json:"client_secret" validate:"required"`
	PaymentMethodData json.RawMessage `json:"payment_method_data"`
}

type cancelReq struct {
	ClientSecret string `json:"client_secret" validate:"required"`
}

// finalizeResp is the reduced intent view returned by confirm/cancel; it never
// echoes the client secret back.
type finalizeResp struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Create handles POST /api/v1/payment_intents. The route is merchant-facing
// and sits behind the signature middleware.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "invalid body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "missing amount or currency", nil)
		return
	}
	in, err := h.Svc.Create(r.Context(), req.Amount, req.Currency)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	h.Logger.Info().
		Str("intent_id", in.ID).
		Int64("amount", in.Amount).
		Str("currency", in.Currency).
		Msg("payment intent created")
	common.JSON(w, http.StatusCreated, map[string]any{
		"id":            in.ID,
		"amount":        in.Amount,
		"currency":      in.Currency,
		"status":        in.Status,
		"client_secret": in.ClientSecret,
	})
}

// Get handles GET /api/v1/payment_intents/{id}, returning the full record to
// signed merchant callers.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	in, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, in)
}

// Confirm handles POST /api/v1/payment_intents/{id}/confirm. The route is
// public: possession of the intent id and its client secret is the whole
// credential, so the merchant's signing secret never reaches the payer.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "invalid body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "client_secret is required", nil)
		return
	}
	in, err := h.Svc.Confirm(r.Context(), id, req.ClientSecret, req.PaymentMethodData)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	h.Logger.Info().Str("intent_id", in.ID).Msg("payment intent confirmed")
	common.JSON(w, http.StatusOK, finalizeResp{ID: in.ID, Status: in.Status, Amount: in.Amount, Currency: in.Currency})
}

// Cancel handles POST /api/v1/payment_intents/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "invalid body", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "client_secret is required", nil)
		return
	}
	in, err := h.Svc.Cancel(r.Context(), id, req.ClientSecret)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	h.Logger.Info().Str("intent_id", in.ID).Msg("payment intent canceled")
	common.JSON(w, http.StatusOK, finalizeResp{ID: in.ID, Status: in.Status, Amount: in.Amount, Currency: in.Currency})
}

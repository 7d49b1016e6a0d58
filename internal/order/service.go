package order

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paysim-labs/xpay-sim/internal/common"
	"github.com/paysim-labs/xpay-sim/internal/obs"
	"github.com/paysim-labs/xpay-sim/internal/xpay"
)

// GatewayClient is the slice of the XPay client the finalizer needs.
type GatewayClient interface {
	CreateIntent(ctx context.Context, payload xpay.CreateIntentPayload) (xpay.Intent, error)
	GetIntent(ctx context.Context, id string) (xpay.Intent, error)
}

// Service orchestrates intent creation against the gateway and finalizes
// orders once payment is settled.
type Service struct {
	Store             Store
	Gateway           GatewayClient
	GatewayInstanceID string
	DefaultCurrency   string
	Logger            zerolog.Logger
}

// CreateIntentRequest carries the checkout details forwarded to the gateway.
type CreateIntentRequest struct {
	Amount   int64
	Currency string
	Customer *xpay.Customer
	Shipping *xpay.Shipping
	Metadata map[string]any
	OrderID  string
}

// CreateIntentResult is returned to the storefront so its SDK can confirm the
// intent directly with the gateway.
type CreateIntentResult struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
	OrderID      string `json:"orderId"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// LineItem is a single purchased item. Price is in currency minor units and
// may carry a fractional part that is rounded away at finalization.
type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Details is the client-supplied order content.
type Details struct {
	Items    []LineItem      `json:"items"`
	Customer json.RawMessage `json:"customer"`
}

// FinalizeRequest asks for an order to be created for a settled payment.
type FinalizeRequest struct {
	PaymentIntentID string
	PaymentMethod   string
	OrderID         string
	Details         Details
}

// CreateIntent opens a payment intent with the gateway on behalf of the
// storefront and attaches the merchant order reference to it.
func (s *Service) CreateIntent(ctx context.Context, req CreateIntentRequest) (CreateIntentResult, error) {
	if req.Amount <= 0 {
		return CreateIntentResult{}, common.InvalidRequest("amount must be a positive integer")
	}
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = s.DefaultCurrency
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = newOrderRef()
	}

	payload := xpay.CreateIntentPayload{
		Amount:             req.Amount,
		Currency:           currency,
		PaymentMethodTypes: "card",
		GatewayInstanceID:  s.GatewayInstanceID,
		CaptureMethod:      "automatic",
		Metadata:           map[string]any{"order_id": orderID},
	}
	if req.Customer != nil {
		payload.Customer = *req.Customer
	}
	if req.Shipping != nil {
		payload.Shipping = *req.Shipping
	}
	for k, v := range req.Metadata {
		payload.Metadata[k] = v
	}

	in, err := s.Gateway.CreateIntent(ctx, payload)
	if err != nil {
		return CreateIntentResult{}, err
	}
	s.Logger.Info().
		Str("intent_id", in.ID).
		Str("order_id", orderID).
		Int64("amount", in.Amount).
		Msg("payment intent opened")
	return CreateIntentResult{
		ClientSecret: in.ClientSecret,
		ID:           in.ID,
		OrderID:      orderID,
		Amount:       in.Amount,
		Currency:     in.Currency,
	}, nil
}

// Finalize creates an order once payment is settled. Card orders are verified
// against the gateway and priced from the intent; COD orders are priced from
// the line items and settled outside the gateway.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (Order, error) {
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = MethodCard
	}

	var (
		amount   int64
		status   string
		intentID *string
	)
	switch method {
	case MethodCard:
		id := strings.TrimSpace(req.PaymentIntentID)
		if id == "" {
			s.countOrder(method, "invalid")
			return Order{}, common.InvalidRequest("missing payment intent ID")
		}
		in, err := s.Gateway.GetIntent(ctx, id)
		if err != nil {
			s.countOrder(method, "verify_failed")
			return Order{}, err
		}
		if in.Status != "succeeded" {
			s.countOrder(method, "not_confirmed")
			return Order{}, common.NewAppError(common.CodePaymentNotConfirmed,
				fmt.Sprintf("payment has not been confirmed yet, current status: %s", in.Status),
				http.StatusBadRequest, nil)
		}
		amount = in.Amount
		status = StatusPaid
		intentID = &id
	case MethodCOD:
		amount = sumItems(req.Details.Items)
		status = StatusCODPending
	default:
		s.countOrder(method, "invalid")
		return Order{}, common.InvalidRequest("paymentMethod must be Card or COD")
	}

	o := Order{
		OrderID:         orderIDOrDefault(req.OrderID),
		PaymentIntentID: intentID,
		PaymentMethod:   method,
		Amount:          amount,
		Status:          status,
		CreatedAt:       time.Now().UTC(),
		Customer:        customerOrGuest(req.Details.Customer),
	}
	if err := s.Store.Append(ctx, o); err != nil {
		s.countOrder(method, "error")
		return Order{}, fmt.Errorf("append order: %w", err)
	}
	s.countOrder(method, "success")
	s.Logger.Info().
		Str("order_id", o.OrderID).
		Str("method", o.PaymentMethod).
		Int64("amount", o.Amount).
		Msg("order created")
	return o, nil
}

func (s *Service) countOrder(method, result string) {
	if obs.OrderTotal != nil {
		obs.OrderTotal.WithLabelValues(method, result).Inc()
	}
}

// sumItems rounds the item total to the currency's minor unit once, after
// summation, matching how a cash total is settled.
func sumItems(items []LineItem) int64 {
	var sum float64
	for _, item := range items {
		sum += item.Price
	}
	return int64(math.Round(sum))
}

func orderIDOrDefault(id string) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}
	return "ord_" + uuid.NewString()
}

func newOrderRef() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

func customerOrGuest(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`"Guest"`)
	}
	return raw
}

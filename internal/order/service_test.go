package order_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/paysim-labs/xpay-sim/internal/common"
	"github.com/paysim-labs/xpay-sim/internal/order"
	"github.com/paysim-labs/xpay-sim/internal/xpay"
)

// stubGateway replays canned gateway responses and records what was sent.
type stubGateway struct {
	createResp   xpay.Intent
	createErr    error
	getResp      xpay.Intent
	getErr       error
	lastPayload  xpay.CreateIntentPayload
	lastIntentID string
	createCalled bool
	getCalled    bool
}

func (g *stubGateway) CreateIntent(_ context.Context, payload xpay.CreateIntentPayload) (xpay.Intent, error) {
	g.createCalled = true
	g.lastPayload = payload
	return g.createResp, g.createErr
}

func (g *stubGateway) GetIntent(_ context.Context, id string) (xpay.Intent, error) {
	g.getCalled = true
	g.lastIntentID = id
	return g.getResp, g.getErr
}

func newOrderService(gw *stubGateway) (*order.Service, *order.MemoryStore) {
	store := order.NewMemoryStore()
	return &order.Service{
		Store:             store,
		Gateway:           gw,
		GatewayInstanceID: "gw_test",
		DefaultCurrency:   "PKR",
		Logger:            zerolog.Nop(),
	}, store
}

func TestCreateIntentForwardsToGateway(t *testing.T) {
	gw := &stubGateway{createResp: xpay.Intent{
		ID:           "pi_abc",
		Amount:       2500,
		Currency:     "PKR",
		Status:       "requires_payment_method",
		ClientSecret: "seti_secret",
	}}
	svc, _ := newOrderService(gw)

	result, err := svc.CreateIntent(context.Background(), order.CreateIntentRequest{
		Amount:   2500,
		Metadata: map[string]any{"channel": "web"},
	})
	require.NoError(t, err)
	require.Equal(t, "pi_abc", result.ID)
	require.Equal(t, "seti_secret", result.ClientSecret)
	require.Equal(t, int64(2500), result.Amount)
	require.True(t, strings.HasPrefix(result.OrderID, "ORD-"))

	require.Equal(t, "PKR", gw.lastPayload.Currency, "default currency applied")
	require.Equal(t, "card", gw.lastPayload.PaymentMethodTypes)
	require.Equal(t, "automatic", gw.lastPayload.CaptureMethod)
	require.Equal(t, "gw_test", gw.lastPayload.GatewayInstanceID)
	require.Equal(t, result.OrderID, gw.lastPayload.Metadata["order_id"])
	require.Equal(t, "web", gw.lastPayload.Metadata["channel"])
}

func TestCreateIntentRejectsBadAmount(t *testing.T) {
	gw := &stubGateway{}
	svc, _ := newOrderService(gw)

	_, err := svc.CreateIntent(context.Background(), order.CreateIntentRequest{Amount: 0})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeInvalidRequest, app.Code)
	require.False(t, gw.createCalled, "gateway must not be called for invalid input")
}

func TestCreateIntentPropagatesGatewayError(t *testing.T) {
	gw := &stubGateway{createErr: common.UpstreamUnavailable("payment gateway unreachable", nil)}
	svc, _ := newOrderService(gw)

	_, err := svc.CreateIntent(context.Background(), order.CreateIntentRequest{Amount: 100})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeUpstreamUnavailable, app.Code)
}

func TestFinalizeCardUsesVerifiedAmount(t *testing.T) {
	// The intent's amount wins even when the client sends inflated line items.
	gw := &stubGateway{getResp: xpay.Intent{ID: "pi_abc", Amount: 5000, Currency: "PKR", Status: "succeeded"}}
	svc, store := newOrderService(gw)

	o, err := svc.Finalize(context.Background(), order.FinalizeRequest{
		PaymentIntentID: "pi_abc",
		PaymentMethod:   order.MethodCard,
		Details: order.Details{
			Items:    []order.LineItem{{Name: "widget", Price: 1}},
			Customer: json.RawMessage(`{"name":"Ayesha"}`),
		},
	})
	require.NoError(t, err)
	require.Equal(t, "pi_abc", gw.lastIntentID)
	require.Equal(t, int64(5000), o.Amount)
	require.Equal(t, order.StatusPaid, o.Status)
	require.NotNil(t, o.PaymentIntentID)
	require.Equal(t, "pi_abc", *o.PaymentIntentID)
	require.Equal(t, 1, store.Count(context.Background()))
}

func TestFinalizeCardRejectsUnconfirmedIntent(t *testing.T) {
	gw := &stubGateway{getResp: xpay.Intent{ID: "pi_abc", Amount: 5000, Status: "requires_payment_method"}}
	svc, store := newOrderService(gw)

	_, err := svc.Finalize(context.Background(), order.FinalizeRequest{
		PaymentIntentID: "pi_abc",
		PaymentMethod:   order.MethodCard,
	})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodePaymentNotConfirmed, app.Code)
	require.Contains(t, app.Message, "requires_payment_method")
	require.Zero(t, store.Count(context.Background()), "no order may be written")
}

func TestFinalizeCardRequiresIntentID(t *testing.T) {
	gw := &stubGateway{}
	svc, _ := newOrderService(gw)

	_, err := svc.Finalize(context.Background(), order.FinalizeRequest{PaymentMethod: order.MethodCard})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeInvalidRequest, app.Code)
	require.False(t, gw.getCalled)
}

func TestFinalizeCardPropagatesLookupError(t *testing.T) {
	gw := &stubGateway{getErr: common.NotFound("payment intent not found")}
	svc, store := newOrderService(gw)

	_, err := svc.Finalize(context.Background(), order.FinalizeRequest{
		PaymentIntentID: "pi_ghost",
		PaymentMethod:   order.MethodCard,
	})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeNotFound, app.Code)
	require.Zero(t, store.Count(context.Background()))
}

func TestFinalizeDefaultsToCard(t *testing.T) {
	gw := &stubGateway{getResp: xpay.Intent{ID: "pi_abc", Amount: 700, Status: "succeeded"}}
	svc, _ := newOrderService(gw)

	o, err := svc.Finalize(context.Background(), order.FinalizeRequest{PaymentIntentID: "pi_abc"})
	require.NoError(t, err)
	require.Equal(t, order.MethodCard, o.PaymentMethod)
}

func TestFinalizeCODSumsAndRoundsOnce(t *testing.T) {
	gw := &stubGateway{}
	svc, _ := newOrderService(gw)

	// 10.4 + 10.4 = 20.8 rounds to 21; rounding each item first would give 20.
	o, err := svc.Finalize(context.Background(), order.FinalizeRequest{
		PaymentMethod: order.MethodCOD,
		Details: order.Details{Items: []order.LineItem{
			{Name: "chai", Price: 10.4},
			{Name: "samosa", Price: 10.4},
		}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(21), o.Amount)
	require.Equal(t, order.StatusCODPending, o.Status)
	require.Nil(t, o.PaymentIntentID)
	require.False(t, gw.getCalled, "COD never consults the gateway")
}

func TestFinalizeCODEmptyCart(t *testing.T) {
	svc, _ := newOrderService(&stubGateway{})

	o, err := svc.Finalize(context.Background(), order.FinalizeRequest{PaymentMethod: order.MethodCOD})
	require.NoError(t, err)
	require.Zero(t, o.Amount)
	require.JSONEq(t, `"Guest"`, string(o.Customer))
	require.True(t, strings.HasPrefix(o.OrderID, "ord_"))
}

func TestFinalizeRejectsUnknownMethod(t *testing.T) {
	svc, store := newOrderService(&stubGateway{})

	_, err := svc.Finalize(context.Background(), order.FinalizeRequest{PaymentMethod: "Barter"})
	var app *common.AppError
	require.ErrorAs(t, err, &app)
	require.Equal(t, common.CodeInvalidRequest, app.Code)
	require.Zero(t, store.Count(context.Background()))
}

func TestFinalizeKeepsSuppliedOrderID(t *testing.T) {
	svc, _ := newOrderService(&stubGateway{})

	o, err := svc.Finalize(context.Background(), order.FinalizeRequest{
		PaymentMethod: order.MethodCOD,
		OrderID:       "ORD-CUSTOM1",
	})
	require.NoError(t, err)
	require.Equal(t, "ORD-CUSTOM1", o.OrderID)
}

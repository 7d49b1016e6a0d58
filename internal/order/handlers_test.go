package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/paysim-labs/xpay-sim/internal/order"
	"github.com/paysim-labs/xpay-sim/internal/xpay"
)

func newBackendRouter(gw *stubGateway) (*chi.Mux, *order.MemoryStore) {
	svc, store := newOrderService(gw)
	h := &order.Handler{Svc: svc, Validate: validator.New()}

	r := chi.NewRouter()
	r.Post("/api/create-payment-intent", h.CreateIntent)
	r.Post("/api/create-order", h.CreateOrder)
	r.Get("/api/health", h.Health)
	return r, store
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreatePaymentIntentEndpoint(t *testing.T) {
	gw := &stubGateway{createResp: xpay.Intent{
		ID:           "pi_abc",
		Amount:       3000,
		Currency:     "PKR",
		Status:       "requires_payment_method",
		ClientSecret: "seti_secret",
	}}
	r, _ := newBackendRouter(gw)

	rr := postJSON(t, r, "/api/create-payment-intent", map[string]any{"amount": 3000})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		ClientSecret string `json:"clientSecret"`
		ID           string `json:"id"`
		OrderID      string `json:"orderId"`
		Amount       int64  `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "seti_secret", resp.ClientSecret)
	require.Equal(t, "pi_abc", resp.ID)
	require.NotEmpty(t, resp.OrderID)
	require.Equal(t, int64(3000), resp.Amount)
}

func TestCreatePaymentIntentEndpointValidation(t *testing.T) {
	r, _ := newBackendRouter(&stubGateway{})

	rr := postJSON(t, r, "/api/create-payment-intent", map[string]any{"amount": -5})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "INVALID_REQUEST")

	rr = postJSON(t, r, "/api/create-payment-intent", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateOrderEndpointCard(t *testing.T) {
	gw := &stubGateway{getResp: xpay.Intent{ID: "pi_abc", Amount: 3000, Currency: "PKR", Status: "succeeded"}}
	r, _ := newBackendRouter(gw)

	rr := postJSON(t, r, "/api/create-order", map[string]any{
		"paymentIntentId": "pi_abc",
		"paymentMethod":   "Card",
		"orderDetails": map[string]any{
			"items":    []map[string]any{{"name": "widget", "price": 3000}},
			"customer": map[string]any{"name": "Ayesha"},
		},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool        `json:"success"`
		Order   order.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, order.StatusPaid, resp.Order.Status)
	require.Equal(t, int64(3000), resp.Order.Amount)
}

func TestCreateOrderEndpointRejectsUnconfirmed(t *testing.T) {
	gw := &stubGateway{getResp: xpay.Intent{ID: "pi_abc", Status: "requires_payment_method"}}
	r, store := newBackendRouter(gw)

	rr := postJSON(t, r, "/api/create-order", map[string]any{
		"paymentIntentId": "pi_abc",
		"paymentMethod":   "Card",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYMENT_NOT_CONFIRMED")
	require.Zero(t, store.Count(context.Background()))
}

func TestCreateOrderEndpointRejectsBadMethod(t *testing.T) {
	r, _ := newBackendRouter(&stubGateway{})

	rr := postJSON(t, r, "/api/create-order", map[string]any{"paymentMethod": "Barter"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "paymentMethod must be Card or COD")
}

func TestHealthEndpointReportsOrderCount(t *testing.T) {
	r, _ := newBackendRouter(&stubGateway{})

	rr := postJSON(t, r, "/api/create-order", map[string]any{
		"paymentMethod": "COD",
		"orderDetails":  map[string]any{"items": []map[string]any{{"name": "chai", "price": 150}}},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	hr := httptest.NewRecorder()
	r.ServeHTTP(hr, req)
	require.Equal(t, http.StatusOK, hr.Code)

	var resp struct {
		Status      string `json:"status"`
		Backend     string `json:"backend"`
		OrdersCount int    `json:"ordersCount"`
	}
	require.NoError(t, json.Unmarshal(hr.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "running", resp.Backend)
	require.Equal(t, 1, resp.OrdersCount)
}

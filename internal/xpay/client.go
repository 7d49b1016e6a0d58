// Package xpay is the merchant-side client for the XPay gateway API. Every
// request carries the api key, account id and an HMAC signature over the
// exact body bytes sent; bodiless requests are signed over the empty payload.
package xpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/paysim-labs/xpay-sim/internal/common"
	"github.com/paysim-labs/xpay-sim/internal/obs"
	"github.com/paysim-labs/xpay-sim/internal/signature"
)

// Intent mirrors the gateway's payment-intent representation.
type Intent struct {
	ID            string          `json:"id"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	ClientSecret  string          `json:"client_secret"`
	PaymentMethod json.RawMessage `json:"payment_method,omitempty"`
}

// Customer identifies the paying customer on an intent payload.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Shipping carries the delivery address on an intent payload.
type Shipping struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
}

// CreateIntentPayload is the signed request body for opening an intent.
type CreateIntentPayload struct {
	Amount             int64          `json:"amount"`
	Currency           string         `json:"currency"`
	PaymentMethodTypes string         `json:"payment_method_types"`
	Customer           Customer       `json:"customer"`
	Shipping           Shipping       `json:"shipping"`
	GatewayInstanceID  string         `json:"gateway_instance_id"`
	CaptureMethod      string         `json:"capture_method"`
	Metadata           map[string]any `json:"metadata"`
}

// Client talks to the gateway over HTTP with a bounded timeout.
type Client struct {
	BaseURL    string
	APIKey     string
	AccountID  string
	Signer     signature.Signer
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient constructs a client with an OpenTelemetry-instrumented transport.
func NewClient(baseURL, apiKey, accountID string, signer signature.Signer, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:    apiKey,
		AccountID: accountID,
		Signer:    signer,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger: logger,
	}
}

// CreateIntent opens a payment intent with the gateway. The payload is
// marshalled once and those bytes are both signed and sent.
func (c *Client) CreateIntent(ctx context.Context, payload CreateIntentPayload) (Intent, error) {
	digest, body, err := c.Signer.Sign(payload)
	if err != nil {
		return Intent{}, err
	}
	return c.do(ctx, http.MethodPost, "/api/v1/payment_intents", body, digest, http.StatusCreated, "create_intent")
}

// GetIntent fetches the current state of an intent.
func (c *Client) GetIntent(ctx context.Context, id string) (Intent, error) {
	path := "/api/v1/payment_intents/" + url.PathEscape(id)
	return c.do(ctx, http.MethodGet, path, nil, c.Signer.SignBytes(nil), http.StatusOK, "get_intent")
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, digest string, wantStatus int, endpoint string) (Intent, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return Intent{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.HeaderAPIKey, c.APIKey)
	req.Header.Set(signature.HeaderAccountID, c.AccountID)
	req.Header.Set(signature.HeaderSignature, digest)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.count(endpoint, "unreachable")
		c.Logger.Error().Err(err).Str("endpoint", path).Msg("gateway unreachable")
		return Intent{}, common.UpstreamUnavailable("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.count(endpoint, "read_error")
		return Intent{}, common.UpstreamUnavailable("reading gateway response failed", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		c.count(endpoint, "not_found")
		return Intent{}, common.NotFound("payment intent not found")
	}
	if resp.StatusCode != wantStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		c.count(endpoint, "error")
		c.Logger.Error().
			Str("endpoint", path).
			Int("status", resp.StatusCode).
			Str("body", truncate(string(raw), 200)).
			Msg("gateway returned an error")
		return Intent{}, common.UpstreamUnavailable(
			fmt.Sprintf("gateway error: HTTP %d", resp.StatusCode), nil)
	}

	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		c.count(endpoint, "bad_body")
		c.Logger.Error().
			Str("endpoint", path).
			Str("body", truncate(string(raw), 200)).
			Msg("gateway returned a non-JSON body")
		return Intent{}, common.UpstreamUnavailable("invalid JSON from gateway", err)
	}
	c.count(endpoint, "success")
	return in, nil
}

func (c *Client) count(endpoint, result string) {
	if obs.GatewayClientTotal != nil {
		obs.GatewayClientTotal.WithLabelValues(endpoint, result).Inc()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package intent owns the payment-intent records and their lifecycle. It is
// the only component allowed to mutate intents; the merchant backend sees
// them read-only through the gateway API.
package intent

import (
	"encoding/json"
	"time"
)

// Status values an intent moves through. requires_payment_method is the
// initial state; succeeded and canceled are terminal.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
)

// Intent is a server-side record of an attempt to collect payment. Amount and
// Currency are fixed at creation; only Status, PaymentMethod and UpdatedAt
// change afterwards.
type Intent struct {
	ID            string          `json:"id"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	ClientSecret  string          `json:"client_secret"`
	PaymentMethod json.RawMessage `json:"payment_method,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at,omitempty"`
}

// Terminal reports whether the intent has reached a final state.
func (i Intent) Terminal() bool {
	return i.Status == StatusSucceeded || i.Status == StatusCanceled
}

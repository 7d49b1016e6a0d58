// Package order owns the merchant's order records. It references payment
// intents by id only; the gateway remains the sole writer of intent state.
package order

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Payment methods accepted at checkout.
const (
	MethodCard = "Card"
	MethodCOD  = "COD"
)

// Order statuses.
const (
	StatusPending    = "pending"
	StatusPaid       = "paid"
	StatusCODPending = "cod_pending"
)

// Order is a finalized purchase. For card payments Amount comes from the
// verified intent, never from client input.
type Order struct {
	OrderID         string          `json:"orderId"`
	PaymentIntentID *string         `json:"paymentIntentId"`
	PaymentMethod   string          `json:"paymentMethod"`
	Amount          int64           `json:"amount"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	Customer        json.RawMessage `json:"customer"`
}

// Store abstracts order persistence.
type Store interface {
	Append(ctx context.Context, o Order) error
	Count(ctx context.Context) int
	List(ctx context.Context) []Order
}

// MemoryStore keeps orders in an in-process slice.
type MemoryStore struct {
	mu     sync.RWMutex
	orders []Order
}

// NewMemoryStore constructs an empty order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds a finalized order.
func (s *MemoryStore) Append(_ context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

// Count returns the number of stored orders.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// List returns a copy of all stored orders.
func (s *MemoryStore) List(_ context.Context) []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, len(s.orders))
	copy(out, s.orders)
	return out
}

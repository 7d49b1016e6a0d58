package intent

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/paysim-labs/xpay-sim/internal/common"
	"github.com/paysim-labs/xpay-sim/internal/obs"
)

// Service is the intent lifecycle engine. Terminal transitions for a given id
// are serialized through a per-id mutex so two concurrent confirmations can
// never both observe the pre-terminal state.
type Service struct {
	Store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService constructs a Service on top of the given store.
func NewService(store Store) *Service {
	return &Service{Store: store, locks: make(map[string]*sync.Mutex)}
}

// Create validates the request, mints fresh identifiers and inserts the
// intent in its initial state.
func (s *Service) Create(ctx context.Context, amount int64, currency string) (Intent, error) {
	if amount <= 0 {
		return Intent{}, common.InvalidRequest("amount must be a positive integer")
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return Intent{}, common.InvalidRequest("currency is required")
	}

	now := time.Now().UTC()
	in := Intent{
		ID:           newToken("pi_"),
		Amount:       amount,
		Currency:     currency,
		Status:       StatusRequiresPaymentMethod,
		ClientSecret: newToken("seti_"),
		CreatedAt:    now,
	}
	if err := s.Store.Insert(ctx, in); err != nil {
		incOp("create", "error")
		return Intent{}, fmt.Errorf("insert intent: %w", err)
	}
	incOp("create", "success")
	return in, nil
}

// Get looks up an intent by id.
func (s *Service) Get(ctx context.Context, id string) (Intent, error) {
	in, err := s.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Intent{}, common.NotFound("payment intent not found")
	}
	if err != nil {
		return Intent{}, err
	}
	return in, nil
}

// Confirm moves an intent to succeeded and records the tendered payment
// method. Re-confirming a terminal intent is rejected without touching the
// record; the write is atomic with respect to other confirmations of the same
// id.
func (s *Service) Confirm(ctx context.Context, id, clientSecret string, paymentMethod json.RawMessage) (Intent, error) {
	return s.finalize(ctx, "confirm", id, clientSecret, func(in *Intent) {
		in.Status = StatusSucceeded
		in.PaymentMethod = paymentMethod
	})
}

// Cancel moves a pending intent to canceled. Terminal intents are rejected
// the same way as re-confirmation.
func (s *Service) Cancel(ctx context.Context, id, clientSecret string) (Intent, error) {
	return s.finalize(ctx, "cancel", id, clientSecret, func(in *Intent) {
		in.Status = StatusCanceled
	})
}

func (s *Service) finalize(ctx context.Context, op, id, clientSecret string, apply func(*Intent)) (Intent, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	in, err := s.Get(ctx, id)
	if err != nil {
		incOp(op, "not_found")
		return Intent{}, err
	}
	if subtle.ConstantTimeCompare([]byte(in.ClientSecret), []byte(clientSecret)) != 1 {
		incOp(op, "auth_failed")
		return Intent{}, common.AuthFailed("client secret mismatch")
	}
	if in.Terminal() {
		incOp(op, "already_finalized")
		return Intent{}, common.NewAppError(common.CodeAlreadyFinalized,
			fmt.Sprintf("payment intent already %s", in.Status), http.StatusBadRequest, nil)
	}

	apply(&in)
	in.UpdatedAt = time.Now().UTC()
	if err := s.Store.Update(ctx, in); err != nil {
		incOp(op, "error")
		return Intent{}, fmt.Errorf("update intent: %w", err)
	}
	incOp(op, "success")
	return in, nil
}

// lockFor returns the mutex guarding one intent id. Locks are never reclaimed;
// the store is process-lifetime bounded anyway.
func (s *Service) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[id] = l
	return l
}

func newToken(prefix string) string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("read random bytes: %w", err))
	}
	return prefix + hex.EncodeToString(buf)
}

// incOp records an intent operation outcome when domain metrics are registered.
func incOp(op, result string) {
	if obs.IntentOpsTotal != nil {
		obs.IntentOpsTotal.WithLabelValues(op, result).Inc()
	}
}

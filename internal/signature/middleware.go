package signature

import (
	"bytes"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paysim-labs/xpay-sim/internal/common"
)

// Header names carried on signed merchant-to-gateway requests.
const (
	HeaderAPIKey    = "x-api-key"
	HeaderAccountID = "x-account-id"
	HeaderSignature = "x-signature"
)

// Middleware authenticates merchant requests before any handler runs. The
// signature is verified against the raw received bytes, never a re-serialized
// object. Requests without a body (GETs) are signed over the empty payload.
type Middleware struct {
	Signer    Signer
	APIKey    string
	AccountID string
	Logger    zerolog.Logger
}

// Handler implements chi middleware rejecting unauthenticated requests with 401.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(r.Header.Get(HeaderAPIKey))
		accountID := strings.TrimSpace(r.Header.Get(HeaderAccountID))
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.APIKey)) != 1 ||
			subtle.ConstantTimeCompare([]byte(accountID), []byte(m.AccountID)) != 1 {
			m.reject(w, r, "unknown api key or account")
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeInvalidRequest, "unable to read payload", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if !m.Signer.Verify(body, r.Header.Get(HeaderSignature)) {
			m.reject(w, r, "signature verification failed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	m.Logger.Warn().
		Str("path", r.URL.Path).
		Str("remote_addr", common.ClientIP(r)).
		Str("reason", reason).
		Msg("request authentication failed")
	common.JSONError(w, http.StatusUnauthorized, common.CodeAuthFailed, reason, nil)
}

// Package signature implements the HMAC-SHA256 request signing protocol used
// between the merchant backend and the payment gateway. Signatures are
// computed over the exact request body bytes; both sides must agree on the
// secret encoding up front because a 64-char hex secret signs differently as
// raw text than as decoded bytes.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Encoding fixes how the configured shared secret is turned into HMAC key bytes.
type Encoding string

const (
	// EncodingRaw uses the secret's UTF-8 bytes as the key.
	EncodingRaw Encoding = "raw"
	// EncodingHex hex-decodes the secret before use.
	EncodingHex Encoding = "hex"
)

// ParseEncoding validates an encoding name from configuration. An empty value
// defaults to raw.
func ParseEncoding(value string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(value))) {
	case EncodingRaw, "":
		return EncodingRaw, nil
	case EncodingHex:
		return EncodingHex, nil
	default:
		return "", fmt.Errorf("unsupported secret encoding: %q", value)
	}
}

// Signer computes and verifies hex-encoded HMAC-SHA256 signatures with a
// pre-shared secret.
type Signer struct {
	key []byte
}

// New constructs a Signer. An empty secret is refused outright rather than
// silently producing signatures keyed on nothing.
func New(secret string, encoding Encoding) (Signer, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return Signer{}, errors.New("signing secret is required")
	}
	switch encoding {
	case EncodingHex:
		key, err := hex.DecodeString(trimmed)
		if err != nil {
			return Signer{}, fmt.Errorf("decode hex secret: %w", err)
		}
		return Signer{key: key}, nil
	case EncodingRaw, "":
		return Signer{key: []byte(trimmed)}, nil
	default:
		return Signer{}, fmt.Errorf("unsupported secret encoding: %q", encoding)
	}
}

// SignBytes returns the hex HMAC-SHA256 digest of body.
func (s Signer) SignBytes(body []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign marshals v once and signs those exact bytes. The caller must send the
// returned body verbatim; re-marshalling on the wire would drift from the
// signed representation.
func (s Signer) Sign(v any) (digest string, body []byte, err error) {
	body, err = json.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("marshal payload: %w", err)
	}
	return s.SignBytes(body), body, nil
}

// Verify recomputes the signature over the received raw body and compares it
// against the provided hex digest in constant time.
func (s Signer) Verify(body []byte, provided string) bool {
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return false
	}
	expected := s.SignBytes(body)
	return hmac.Equal([]byte(expected), []byte(provided))
}

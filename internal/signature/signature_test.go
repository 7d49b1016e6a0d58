package signature

import (
	"strings"
	"testing"
)

func TestSignBytesDeterministic(t *testing.T) {
	signer, err := New("S", EncodingRaw)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	body := []byte(`{"amount":1,"currency":"PKR"}`)
	first := signer.SignBytes(body)
	second := signer.SignBytes(body)
	if first != second {
		t.Fatalf("expected identical digests, got %q and %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64-char SHA-256 hex digest, got %d chars", len(first))
	}
	if first != strings.ToLower(first) {
		t.Fatalf("expected lowercase hex digest, got %q", first)
	}
}

func TestSignBytesAvalanche(t *testing.T) {
	signer, err := New("S", EncodingRaw)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	base := signer.SignBytes([]byte(`{"amount":1,"currency":"PKR"}`))
	if flipped := signer.SignBytes([]byte(`{"amount":2,"currency":"PKR"}`)); flipped == base {
		t.Fatal("digest unchanged after payload mutation")
	}

	other, err := New("T", EncodingRaw)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	if rekeyed := other.SignBytes([]byte(`{"amount":1,"currency":"PKR"}`)); rekeyed == base {
		t.Fatal("digest unchanged after secret mutation")
	}
}

func TestNewRejectsEmptySecret(t *testing.T) {
	if _, err := New("", EncodingRaw); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := New("   ", EncodingRaw); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestHexEncodingUsesDecodedKey(t *testing.T) {
	const secret = "b5439d231da9463f710528542d56e7625793d05b77a9bf1020f9842507af2e89"
	raw, err := New(secret, EncodingRaw)
	if err != nil {
		t.Fatalf("raw signer: %v", err)
	}
	hexed, err := New(secret, EncodingHex)
	if err != nil {
		t.Fatalf("hex signer: %v", err)
	}
	body := []byte(`{"amount":100,"currency":"PKR"}`)
	if raw.SignBytes(body) == hexed.SignBytes(body) {
		t.Fatal("raw and hex-decoded keys must produce different digests")
	}
}

func TestNewRejectsMalformedHexSecret(t *testing.T) {
	if _, err := New("not-hex", EncodingHex); err == nil {
		t.Fatal("expected error for non-hex secret under hex encoding")
	}
	if _, err := New("abc", EncodingHex); err == nil {
		t.Fatal("expected error for odd-length hex secret")
	}
}

func TestVerify(t *testing.T) {
	signer, err := New("shared-secret", EncodingRaw)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	body := []byte(`{"order":"testOrder-007"}`)
	digest := signer.SignBytes(body)

	if !signer.Verify(body, digest) {
		t.Fatal("expected valid signature to verify")
	}
	if signer.Verify(body, "") {
		t.Fatal("empty signature must not verify")
	}
	if signer.Verify([]byte(`{"order":"testOrder-008"}`), digest) {
		t.Fatal("tampered body must not verify")
	}
	if signer.Verify(body, strings.Repeat("0", 64)) {
		t.Fatal("forged signature must not verify")
	}
}

func TestSignMarshalsOnce(t *testing.T) {
	signer, err := New("S", EncodingRaw)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	digest, body, err := signer.Sign(map[string]any{"amount": 1})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if digest != signer.SignBytes(body) {
		t.Fatal("digest must match the returned body bytes")
	}
}

func TestParseEncoding(t *testing.T) {
	cases := map[string]Encoding{
		"":    EncodingRaw,
		"raw": EncodingRaw,
		"RAW": EncodingRaw,
		"hex": EncodingHex,
		" HEX ": EncodingHex,
	}
	for input, want := range cases {
		got, err := ParseEncoding(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q want %q", input, got, want)
		}
	}
	if _, err := ParseEncoding("base64"); err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}

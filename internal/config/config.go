package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/paysim-labs/xpay-sim/internal/signature"
)

// Config holds configuration for both tiers, loaded from the environment.
// The signing credentials are shared: the merchant signs with them, the
// gateway verifies with them.
type Config struct {
	AppEnv       string
	GatewayPort  string
	MerchantPort string

	GatewayBaseURL    string
	APIKey            string
	AccountID         string
	HMACSecret        string
	SecretEncoding    signature.Encoding
	GatewayInstanceID string
	DefaultCurrency   string
	GatewayTimeout    time.Duration

	CORSAllowedOrigins []string
	ConfirmRateWindow  time.Duration
	ConfirmRateMax     int64
}

// Load reads configuration from environment variables and optional .env files.
// A missing or malformed HMAC secret is a load error: starting up and signing
// with an empty key would silently break every signature.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	encoding, err := signature.ParseEncoding(k.String("XPAY_HMAC_SECRET_ENCODING"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		GatewayPort:        valueOrDefault(k.String("GATEWAY_PORT"), "4002"),
		MerchantPort:       valueOrDefault(k.String("BACKEND_PORT"), "4001"),
		GatewayBaseURL:     valueOrDefault(k.String("XPAY_URL"), "http://localhost:4002"),
		APIKey:             k.String("XPAY_API_KEY"),
		AccountID:          k.String("XPAY_ACCOUNT_ID"),
		HMACSecret:         k.String("XPAY_HMAC_SECRET"),
		SecretEncoding:     encoding,
		GatewayInstanceID:  k.String("XPAY_GATEWAY_ID"),
		DefaultCurrency:    valueOrDefault(k.String("XPAY_DEFAULT_CURRENCY"), "PKR"),
		GatewayTimeout:     parseDuration(k.String("XPAY_CLIENT_TIMEOUT"), "10s"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		ConfirmRateWindow:  parseDuration(k.String("CONFIRM_RATE_WINDOW"), "1m"),
		ConfirmRateMax:     int64(k.Int("CONFIRM_RATE_MAX")),
	}
	if cfg.ConfirmRateMax <= 0 {
		cfg.ConfirmRateMax = 60
	}

	if cfg.APIKey == "" {
		return nil, errors.New("XPAY_API_KEY is required")
	}
	if cfg.AccountID == "" {
		return nil, errors.New("XPAY_ACCOUNT_ID is required")
	}
	if cfg.HMACSecret == "" {
		return nil, errors.New("XPAY_HMAC_SECRET is required")
	}
	// Validate that the secret is usable under the configured encoding now,
	// not on the first signed request.
	if _, err := signature.New(cfg.HMACSecret, cfg.SecretEncoding); err != nil {
		return nil, fmt.Errorf("XPAY_HMAC_SECRET: %w", err)
	}

	return cfg, nil
}

// GatewayAddr returns the listen address for the gateway tier.
func (c *Config) GatewayAddr() string { return listenAddr(c.GatewayPort, "4002") }

// MerchantAddr returns the listen address for the merchant tier.
func (c *Config) MerchantAddr() string { return listenAddr(c.MerchantPort, "4001") }

func listenAddr(port, fallback string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = fallback
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// LoadForTests allows tests to override environment variables without leaking
// changes into the real environment.
func LoadForTests(envVars map[string]string) (*Config, error) {
	original := make(map[string]string, len(envVars))
	for key := range envVars {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envVars[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}

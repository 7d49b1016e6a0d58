package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paysim-labs/xpay-sim/internal/config"
	"github.com/paysim-labs/xpay-sim/internal/intent"
	"github.com/paysim-labs/xpay-sim/internal/obs"
	"github.com/paysim-labs/xpay-sim/internal/ratelimit"
	"github.com/paysim-labs/xpay-sim/internal/signature"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(envOrDefault("OBS_LOG_FORMAT", "json"), envOrDefault("OBS_LOG_LEVEL", "info")).
		With().Str("service", "xpay-gateway").Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "xpay")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "xpay-gateway",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	signer, err := signature.New(cfg.HMACSecret, cfg.SecretEncoding)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure request signing")
	}

	svc := intent.NewService(intent.NewMemoryStore())
	handler := &intent.Handler{Svc: svc, Validate: validator.New(), Logger: logger}
	signed := signature.Middleware{
		Signer:    signer,
		APIKey:    cfg.APIKey,
		AccountID: cfg.AccountID,
		Logger:    logger,
	}
	confirmLimiter := ratelimit.New(cfg.ConfirmRateWindow, cfg.ConfirmRateMax)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "x-api-key", "x-account-id", "x-signature"},
		MaxAge:         300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1/payment_intents", func(v chi.Router) {
		// Merchant-facing: server-to-server, HMAC signed.
		v.Group(func(g chi.Router) {
			g.Use(signed.Handler)
			g.Post("/", handler.Create)
			g.Get("/{id}", handler.Get)
		})
		// Client-facing: possession of the intent id and client secret is the
		// credential, so the merchant's signing secret stays server-side.
		v.Group(func(g chi.Router) {
			g.Use(confirmLimiter.Middleware)
			g.Post("/{id}/confirm", handler.Confirm)
			g.Post("/{id}/cancel", handler.Cancel)
		})
	})

	srv := &http.Server{Addr: cfg.GatewayAddr(), Handler: r}
	logger.Info().Str("addr", srv.Addr).Msg("gateway starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

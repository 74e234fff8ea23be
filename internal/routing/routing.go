package routing

import (
	"net/http"

	"shield/internal/handlers"
	"shield/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Logger   zerolog.Logger

	// APIKey protects every endpoint except health and metrics.
	// Empty disables authentication.
	APIKey string

	// RateLimits overrides the default per-endpoint rate limits when set
	RateLimits *middleware.RateLimitConfig
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Create CrossOriginProtection for the mutating endpoints
	cop := http.NewCrossOriginProtection()

	// Health and metrics (unauthenticated)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Moderation pipeline
	mux.Handle("POST /api/shield/analyze", cop.Handler(http.HandlerFunc(h.HandleAnalyze)))
	mux.Handle("POST /api/shield/actions", cop.Handler(http.HandlerFunc(h.HandleExecuteActions)))

	// Organization-scoped lookups
	mux.HandleFunc("GET /api/organizations/{org}/behaviors/{platform}/{user}", h.HandleBehaviorGet)
	mux.HandleFunc("GET /api/organizations/{org}/users/{user}/violations", h.HandleCrossPlatformViolations)
	mux.HandleFunc("GET /api/organizations/{org}/stats", h.HandleStats)

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Limit request body size (innermost - runs first on request)
	handler = middleware.LimitBodyMiddleware(handler)

	// 2. Require the API key
	handler = middleware.AuthMiddleware(middleware.DefaultAuthConfig(cfg.APIKey))(handler)

	// 3. Apply rate limiting
	rateLimits := cfg.RateLimits
	if rateLimits == nil {
		rateLimits = middleware.NewDefaultRateLimitConfig()
	}
	handler = middleware.RateLimitMiddleware(rateLimits)(handler)

	// 4. Apply security headers
	handler = middleware.SecurityHeadersMiddleware(handler)

	// 5. Apply logging middleware (outermost - wraps everything)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	return handler
}

package server

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/middleware"
)

var routes = []string{
	"/api/v1/predict",
	"/api/v1/cache/stats",
	"/api/v1/cache/invalidate",
	"/health/live",
	"/health/ready",
	"/metrics",
}

// RouterOptions configures the middleware around the API.
type RouterOptions struct {
	// Metrics is nil to skip request metrics.
	Metrics *metrics.Metrics
	// Timeout bounds each request. Zero disables it.
	Timeout time.Duration
	// Limiter, when set, rate limits the /api/ routes per client.
	Limiter *middleware.Limiter
}

// NewRouter builds the prediction API.
//
// Route table:
//
//	POST   /api/v1/predict            rank answer types for queries
//	GET    /api/v1/cache/stats        prediction cache counters
//	POST   /api/v1/cache/invalidate   drop cached predictions
//	GET    /health/live               liveness
//	GET    /health/ready              readiness (index, redis)
//	GET    /metrics                   Prometheus exposition
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → RateLimit → Timeout → handler
func NewRouter(h *Handler, checker *health.Checker, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/predict", h.Predict)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	if opts.Timeout > 0 {
		chain = middleware.Timeout(opts.Timeout)(chain)
	}
	if opts.Limiter != nil {
		chain = middleware.RateLimit(opts.Limiter, "/api/")(chain)
	}
	if opts.Metrics != nil {
		chain = middleware.Metrics(opts.Metrics, routes...)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)
	return chain
}

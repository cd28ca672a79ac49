// Package httprouter serves the ops surface: readiness, metrics scrape and
// session stats. It carries no user-facing functionality; all of that flows
// through the bot.
package httprouter

import (
	"log/slog"
	"net/http"
	"slices"

	"reelgrab/internal/consts"
	"reelgrab/internal/infrastructure/delivery/http/middleware"
	"reelgrab/internal/infrastructure/delivery/http/response"
	"reelgrab/internal/observability"
	"reelgrab/internal/session"
)

// Router is the ops HTTP router.
type Router struct {
	*http.ServeMux
	log         *slog.Logger
	globalChain []func(http.Handler) http.Handler
	sessions    *session.Store
	metrics     *observability.Metrics
}

// New creates the router with global middleware and routes installed.
func New(log *slog.Logger, sessions *session.Store, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		sessions: sessions,
		metrics:  metrics,
	}

	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		r.countRequests,
	)

	r.SetRoutes()

	return r
}

// Use appends global middleware.
func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	r.globalChain = append(r.globalChain, mw...)
}

// ServeHTTP applies the global chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, mw := range slices.Backward(r.globalChain) {
		h = mw(h)
	}

	h.ServeHTTP(w, req)
}

// SetRoutes installs the ops routes.
func (r *Router) SetRoutes() {
	r.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("GET /metrics", r.metrics.Handler())

	r.HandleFunc("GET /v1/stats", r.GetStats)
}

// GetStats returns aggregate session stats.
func (r *Router) GetStats(w http.ResponseWriter, req *http.Request) {
	stats := r.sessions.Stats()

	r.log.DebugContext(req.Context(), consts.RespStatsRetrieved, slog.Any("stats", stats))

	response.OK(w, consts.RespStatsRetrieved, stats, nil)
}

// countRequests bumps the per-path request counter.
func (r *Router) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.metrics.HTTPRequestsTotal.WithLabelValues(req.URL.Path).Inc()
		next.ServeHTTP(w, req)
	})
}

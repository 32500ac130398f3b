package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request.
func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// withRateLimit rejects requests beyond the limiter's budget with 429.
func withRateLimit(next http.Handler, limiter *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Options configures NewRouter.
type Options struct {
	Version string

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// NewRouter wires the API, health endpoints and middleware into one
// handler.
func NewRouter(h *Handler, opts Options) http.Handler {
	router := httprouter.New()
	h.RegisterRoutes(router)

	// Health check endpoint.
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": opts.Version,
		})
	})

	// Readiness probe.
	router.GET("/ready", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
		})
	})

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})

	var handler http.Handler = router
	if opts.RateLimit > 0 {
		handler = withRateLimit(handler, rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst))
	}
	return withLogging(handler, h.logger)
}

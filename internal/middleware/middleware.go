package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
)

// Options configures the middleware chain
type Options struct {
	// RequestsPerMinute per client; <= 0 selects 60
	RequestsPerMinute int
	// APIKeys accepted by APIKeyAuth
	APIKeys []string
	// TrustProxy reads the client address from the last X-Forwarded-For hop
	// or X-Real-IP. Enable only behind a proxy that sets those headers.
	TrustProxy bool
}

// Middleware carries the shared state of the HTTP middleware chain
type Middleware struct {
	log        *logger.Logger
	limiter    *RateLimiter
	apiKeys    [][]byte
	trustProxy bool
}

// RateLimiter is a fixed window limiter keyed by client address
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	size      time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type window struct {
	remaining int
	start     time.Time
}

// New creates the middleware chain state
func New(log *logger.Logger, opts Options) *Middleware {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}

	keys := make([][]byte, 0, len(opts.APIKeys))
	for _, k := range opts.APIKeys {
		keys = append(keys, []byte(k))
	}

	return &Middleware{
		log:        log.Component("http"),
		limiter:    NewRateLimiter(opts.RequestsPerMinute, time.Minute),
		apiKeys:    keys,
		trustProxy: opts.TrustProxy,
	}
}

// NewRateLimiter allows limit requests per client in every window of the given size
func NewRateLimiter(limit int, size time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		size:    size,
		now:     time.Now,
	}
}

// Allow consumes one request from the client's current window. Expired
// windows are dropped at most once per window size.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.size {
		for k, w := range rl.windows {
			if now.Sub(w.start) >= rl.size {
				delete(rl.windows, k)
			}
		}
		rl.lastSweep = now
	}

	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= rl.size {
		w = &window{remaining: rl.limit, start: now}
		rl.windows[client] = w
	}

	if w.remaining == 0 {
		return false
	}
	w.remaining--
	return true
}

// Recovery turns handler panics into a 500 response
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.log.Errorf("Panic in HTTP handler: %v", err)
				writeError(w, errors.New(errors.ErrCodeInternalError, "Internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Logging logs every request once it completes
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		entry := m.log.With("method", r.Method).
			With("path", r.URL.Path).
			With("status", rw.statusCode).
			With("duration", time.Since(start).String()).
			With("remote_addr", m.clientIP(r))
		if id := r.Header.Get("X-GitHub-Delivery"); id != "" {
			entry = entry.WithStr("delivery_id", id)
		}
		entry.Info("HTTP request completed")
	})
}

// Security adds basic security headers
func (m *Middleware) Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		if r.URL.Path != "/health" {
			h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit rejects clients that exceed the per-minute budget
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP(r)
		if !m.limiter.Allow(ip) {
			m.log.Warnf("Rate limit exceeded for client: %s", ip)
			w.Header().Set("Retry-After", "60")
			writeError(w, errors.New(errors.ErrCodeTooManyRequests, "Rate limit exceeded. Please try again later."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// APIKeyAuth guards admin routes with the X-API-Key header or api_key query parameter
func (m *Middleware) APIKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}

		switch {
		case key == "":
			m.log.Warnf("Missing API key from %s", m.clientIP(r))
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "Missing API key"))
			return
		case !m.validKey(key):
			m.log.Warnf("Invalid API key from %s", m.clientIP(r))
			writeError(w, errors.New(errors.ErrCodeUnauthorized, "Invalid API key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) validKey(provided string) bool {
	for _, k := range m.apiKeys {
		if subtle.ConstantTimeCompare([]byte(provided), k) == 1 {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, appErr *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(&models.ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Code),
	})
}

// clientIP returns the socket host, or the proxy supplied address when the
// proxy is trusted. The last X-Forwarded-For hop is the one the proxy added.
func (m *Middleware) clientIP(r *http.Request) string {
	if m.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			hops := strings.Split(xff, ",")
			if last := strings.TrimSpace(hops[len(hops)-1]); last != "" {
				return last
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWriter captures the status code written by the handler
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

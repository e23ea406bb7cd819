package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"screentime/internal/models"
	"screentime/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	IdentityContextKey  ContextKey = "identity"
	RequestIDContextKey ContextKey = "request_id"
)

// TokenValidator turns a bearer token into the caller's identity
type TokenValidator interface {
	Validate(token string) (models.Identity, error)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  TokenValidator
	limiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance. A nil limiter disables
// rate limiting.
func NewMiddleware(tokens TokenValidator, limiter *security.RateLimiter) *Middleware {
	return &Middleware{tokens: tokens, limiter: limiter}
}

// RequireAuth is middleware that requires a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		identity, err := m.tokens.Validate(token)
		if err != nil {
			slog.Debug("Rejected bearer token", "error", err, "request_id", GetRequestID(r.Context()))
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit caps attempts per signed-in caller. Mount it inside RequireAuth.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	if m.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := GetIdentityFromContext(r.Context()).UserID
		if !m.limiter.Allow(key) {
			retry := int(math.Ceil(m.limiter.RetryAfter(key).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			slog.Warn("Rate limit exceeded", "key", key, "path", r.URL.Path, "request_id", GetRequestID(r.Context()))
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestID tags each request with an id, reusing the caller's X-Request-ID
// when one is sent
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"client_ip", security.GetClientIP(r),
			"request_id", GetRequestID(r.Context()),
		)
	})
}

// GetIdentityFromContext retrieves the caller from the request context. The
// zero Identity means nobody is signed in.
func GetIdentityFromContext(ctx context.Context) models.Identity {
	identity, _ := ctx.Value(IdentityContextKey).(models.Identity)
	return identity
}

// GetRequestID retrieves the request id set by RequestID
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/metrics"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// loggingMiddleware tags every request with an id, logs it, and records the
// endpoint/status metric.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")

		metrics.IncHTTP(r.URL.Path, strconv.Itoa(recorder.status))
	})
}

// rateLimitMiddleware applies the per-principal limit. Runs after auth so
// the key is the user id; unauthenticated requests never reach it.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.cfg.API.RateLimit.Requests <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		window := time.Duration(s.cfg.API.RateLimit.WindowSeconds) * time.Second
		allowed, err := s.limiter.Allow(r.Context(), key, s.cfg.API.RateLimit.Requests, window)
		if err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("rate limit check error")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if principal, ok := PrincipalFrom(r.Context()); ok {
		return fmt.Sprintf("user:%d", principal.UserID)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

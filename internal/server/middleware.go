package server

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunex/internal/limiter"
	"github.com/desertthunder/tunex/internal/shared"
)

type ctxKey int

const requestIDKey ctxKey = iota

// UserHeader names the caller for the cool-down. Without it the remote host is used.
const UserHeader = "X-User-ID"

// RequestIDFrom returns the id assigned by [RequestID], or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID tags every request with a uuid, echoed in the X-Request-ID header.
// An incoming X-Request-ID is kept.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = shared.GenerateID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Logging logs one line per request with method, path, status and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"request_id", RequestIDFrom(r.Context()),
			)
		})
	}
}

// Cooldown refuses a caller's request with 429 while their previous one is inside the cool-down.
// A nil limiter lets everything through.
func Cooldown(c *limiter.Cooldown) Middleware {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := c.Allow(callerKey(r))
			if !ok {
				w.Header().Set("Retry-After", fmt.Sprint(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests,
					fmt.Errorf("%w: wait %s", shared.ErrRateLimited, wait.Round(100*time.Millisecond)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if id := r.Header.Get(UserHeader); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "host:" + host
}

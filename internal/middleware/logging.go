// Package middleware contains HTTP middleware functions.
//
// WHAT IS MIDDLEWARE?
// Middleware wraps an HTTP handler to add cross-cutting behaviour (logging,
// auth, request ids) without modifying the handler itself:
//
//	func MyMiddleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // before
//	        next.ServeHTTP(w, r)
//	        // after
//	    })
//	}
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
// Go's http.ResponseWriter doesn't expose the status code after WriteHeader is called,
// so we wrap it to track it ourselves.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// requestFields collects values that inner handlers learn while serving the
// request and that belong on the access log line.
//
// The auth middleware runs INSIDE the logger and hands a new *http.Request
// down the chain, so the logger never sees its context. It gets a pointer
// instead, shared through the context, and reads it after next returns.
type requestFields struct {
	principal string
}

type contextKey string

const fieldsKey contextKey = "logFields"

// SetPrincipal records the authenticated username for the access log.
// It is a no-op when the request did not pass through Logger.
func SetPrincipal(ctx context.Context, username string) {
	if f, ok := ctx.Value(fieldsKey).(*requestFields); ok {
		f.principal = username
	}
}

// Logger returns an HTTP middleware that logs each completed request.
//
// Each log line includes: request id (from chi's RequestID middleware, so
// mount that first), method, path, status, duration, bytes written and the
// authenticated principal, if any. 5xx responses log at Error, 4xx at Warn.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK, // Default if WriteHeader is never called
			}
			fields := &requestFields{}
			r = r.WithContext(context.WithValue(r.Context(), fieldsKey, fields))

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				level = slog.LevelError
			case wrapped.statusCode >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("requestID", chimiddleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			}
			if fields.principal != "" {
				attrs = append(attrs, slog.String("principal", fields.principal))
			}

			logger.LogAttrs(r.Context(), level, "request completed", attrs...)
		})
	}
}

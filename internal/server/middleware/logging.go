package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKeyLogEntry struct{}

// logEntry collects fields set by inner middleware for the access log line.
type logEntry struct {
	adminID int64
}

// quietPaths are logged at debug level so probes don't flood the log.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// Logger returns an HTTP middleware that logs every request using structured
// logging. It captures the method, path, status code, response size, duration,
// request ID, remote address and, when the gate authenticated the request,
// the admin ID.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			entry := &logEntry{}
			r = r.WithContext(context.WithValue(r.Context(), contextKeyLogEntry{}, entry))

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			switch {
			case ww.status >= 500:
				level = slog.LevelError
			case ww.status >= 400:
				level = slog.LevelWarn
			case quietPaths[r.URL.Path]:
				level = slog.LevelDebug
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"duration_ms", float64(duration.Microseconds()) / 1000.0,
				"bytes", ww.bytes,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if entry.adminID != 0 {
				attrs = append(attrs, "admin_id", entry.adminID)
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// noteAdmin records the authenticated admin on the access log entry, if any.
func noteAdmin(ctx context.Context, adminID int64) {
	if e, ok := ctx.Value(contextKeyLogEntry{}).(*logEntry); ok {
		e.adminID = adminID
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code and
// bytes written for logging purposes.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter, required for http.Flusher
// and other interface assertions through middleware chains.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

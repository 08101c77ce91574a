package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/pkg/metrics"
)

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the websocket upgrade needs.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestLogger logs every request at debug level (warn for 5xx) and
// records it in m when m is non-nil.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		took := time.Since(start)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", took),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
		} else {
			logger.Debug("request", fields...)
		}

		if m != nil {
			m.ObserveRequest(r.Method, rec.status, took)
		}
	})
}

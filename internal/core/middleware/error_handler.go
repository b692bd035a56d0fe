package middleware

import (
	"net/http"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// WithErrorHandler logs every response that ends with an error status:
// client errors at warn level, server errors at error level.
func WithErrorHandler(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)

			if sr.status < http.StatusBadRequest {
				return
			}
			fields := []logger.Field{
				logger.StringField("method", r.Method),
				logger.StringField("path", r.URL.Path),
				logger.IntField("status", sr.status),
			}
			if sr.status >= http.StatusInternalServerError {
				log.Error("request processing failed", fields...)
				return
			}
			log.Warn("request rejected", fields...)
		})
	}
}

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/Nzyazin/cashdesk/internal/core/handler"
	"github.com/Nzyazin/cashdesk/internal/core/logger"
)

const APIKeyHeader = "FIB-X-AUTH"

// APIKey rejects requests whose FIB-X-AUTH header does not match key.
func APIKey(key string, log logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(APIKeyHeader))
			if len(got) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				log.Warn("Unauthorized request",
					logger.StringField("path", r.URL.Path),
					logger.StringField("remote_addr", r.RemoteAddr))
				handler.WriteError(w, r, http.StatusUnauthorized, "Missing or invalid API key.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader carries the shared station key.
const APIKeyHeader = "X-API-Key"

// APIKeyMiddleware accepts requests carrying one of keys in X-API-Key. An
// empty key list disables the check.
func APIKeyMiddleware(keys []string) func(http.Handler) http.Handler {
	valid := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(r.Header.Get(APIKeyHeader))
			if len(provided) == 0 {
				writeError(w, http.StatusUnauthorized, "API key required")
				return
			}
			for _, k := range valid {
				if subtle.ConstantTimeCompare(provided, k) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusUnauthorized, "invalid API key")
		})
	}
}

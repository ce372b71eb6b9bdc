package auth

import (
	"encoding/json"
	"net/http"
)

const (
	apiKeyHeader     = "api-key"
	apiKeyQueryParam = "api-key"
)

// Middleware enforces the API key when one is configured. In open mode all
// requests pass through. The key is accepted from the api-key header or,
// for EventSource clients that cannot set headers, the api-key query param.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		if s.VerifyKey(r.Header.Get(apiKeyHeader)) {
			next.ServeHTTP(w, r)
			return
		}
		if key := r.URL.Query().Get(apiKeyQueryParam); key != "" && s.VerifyKey(key) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "UNAUTHORIZED",
			"message": "missing or invalid api key",
		})
	})
}

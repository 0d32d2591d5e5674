package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/loyaltyhub/points-ledger/internal/api/response"
)

// AdminToken is middleware guarding administrative endpoints. The caller
// presents a capability token in X-Admin-Token; it is bcrypt-compared
// against the configured hash. An empty configured hash denies everything,
// so a misconfigured deployment fails closed.
func AdminToken(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			token := r.Header.Get("X-Admin-Token")
			if token == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Admin token is required", requestID)
				return
			}

			if tokenHash == "" || bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Invalid admin token", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

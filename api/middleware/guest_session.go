package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// SessionTokenHeader carries the anonymous cart token for guest shoppers.
const SessionTokenHeader = "X-Session-Token"

// GuestSession attaches the caller's cart token to the context, minting a
// fresh one when the request arrives without it. The token always echoes
// back on the response so the storefront can persist it.
func GuestSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(SessionTokenHeader))
			if token == "" {
				token = uuid.NewString()
			}
			w.Header().Set(SessionTokenHeader, token)
			next.ServeHTTP(w, r.WithContext(WithSessionToken(r.Context(), token)))
		})
	}
}

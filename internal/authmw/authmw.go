// Package authmw guards admin HTTP routes with a static bearer token.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const scheme = "Bearer "

// BearerToken returns middleware that admits only requests whose
// Authorization header carries token. An empty token admits nothing, so an
// unconfigured deployment keeps its admin routes closed.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				deny(w, http.StatusForbidden, "admin access is not configured")
				return
			}

			auth := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(auth, scheme)
			if !ok {
				deny(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			// constant time
			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter, status int, msg string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="opsgenix"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/sellerlink/sellerlink/pkg/config"
	"github.com/sellerlink/sellerlink/pkg/identity"
)

// SessionAuthenticator is middleware that validates session tokens
type SessionAuthenticator struct {
	Issuer *identity.Issuer
	Config *config.Config
}

// NewSessionAuthenticator creates session authentication middleware
func NewSessionAuthenticator(issuer *identity.Issuer, cfg *config.Config) *SessionAuthenticator {
	return &SessionAuthenticator{Issuer: issuer, Config: cfg}
}

// Middleware returns an HTTP middleware that validates bearer session tokens
func (a *SessionAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if len(authHeader) == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Authorization missing"))
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Malformed authorization header"))
			return
		}

		id, err := a.Issuer.Parse(tokenString)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Invalid session token"))
			return
		}

		id.WithRemoteIP(ClientIP(r, a.Config))

		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

// ClientIP resolves the client address, honoring X-Forwarded-For only when
// the direct peer is a configured trusted proxy.
func ClientIP(r *http.Request, cfg *config.Config) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if cfg == nil || !cfg.IsTrustedProxy(host) {
		return host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return host
	}

	// The leftmost entry is the original client
	parts := strings.Split(forwarded, ",")
	return strings.TrimSpace(parts[0])
}

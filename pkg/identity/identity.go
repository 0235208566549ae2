package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sellerlink/sellerlink/pkg/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// ErrInvalidToken is returned when a session token fails validation
// for any reason. The cause is deliberately not distinguished.
var ErrInvalidToken = errors.New("invalid session token")

// Identity represents the authenticated user for a request.
// It combines session claims with request-specific context.
type Identity struct {
	// Session claims
	UserID    uint
	Email     string
	Staff     bool
	Superuser bool
	IssuedAt  time.Time
	ExpiresAt time.Time

	// Request context
	RemoteIP net.IP
}

// WithRemoteIP records the client IP on the identity.
func (id *Identity) WithRemoteIP(ip string) *Identity {
	id.RemoteIP = net.ParseIP(ip)
	return id
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}

type sessionClaims struct {
	Email     string `json:"email"`
	Staff     bool   `json:"staff,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HMAC-signed session tokens.
type Issuer struct {
	key []byte
	ttl time.Duration

	// now allows tests to control time.
	now func() time.Time
}

// NewIssuer creates an Issuer signing with the given key. Tokens expire
// after ttl.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// Issue creates a signed session token for the user.
func (i *Issuer) Issue(user *model.User) (string, error) {
	now := i.now()
	claims := sessionClaims{
		Email:     user.Email,
		Staff:     user.IsStaff,
		Superuser: user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}

// Parse validates a session token and returns the Identity it carries.
func (i *Issuer) Parse(tokenString string) (*Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	var userID uint
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	id := &Identity{
		UserID:    userID,
		Email:     claims.Email,
		Staff:     claims.Staff,
		Superuser: claims.Superuser,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

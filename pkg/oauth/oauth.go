package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTokenExpiredOrRevoked is the terminal provider failure: the refresh
// token itself is dead and only a fresh consent flow can recover. Callers
// must not retry.
var ErrTokenExpiredOrRevoked = errors.New("refresh token expired or revoked")

// ErrClientAuthRejected reports that the provider rejected the application's
// own credentials (client ID or secret). Not retryable, and unrelated to the
// account's refresh token: the fix is operator-side configuration, not
// re-consent.
var ErrClientAuthRejected = errors.New("provider rejected client credentials")

// TransientError wraps a retryable provider failure (network trouble, rate
// limiting, 5xx responses).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient provider error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether an error is a retryable provider failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// TokenPair is the result of a refresh exchange. RefreshToken and
// RefreshExpiresAt are zero when the provider did not rotate the refresh
// token; callers keep the previous one.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// TokenExchanger trades a refresh token for a new access token. This is the
// external OAuth collaborator boundary: the consent/redirect flow lives
// outside this system, only its refresh exchange is consumed here.
type TokenExchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}

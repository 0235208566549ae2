package store

import (
	"errors"
	"time"
)

// ErrCredentialNotFound is returned when an account has no stored credential.
var ErrCredentialNotFound = errors.New("credential not found")

// ErrCredentialUnreadable is returned when stored token material fails to
// decrypt. Distinct from ErrCredentialNotFound: the row exists but cannot be
// opened with the current data key.
var ErrCredentialUnreadable = errors.New("credential unreadable")

// Credential is a decrypted OAuth token pair with its expiry clocks.
type Credential struct {
	AccountID        uint
	AccessToken      []byte
	RefreshToken     []byte
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessExpired reports whether the access token is expired at now.
// A token expiring exactly at now counts as expired.
func (c *Credential) AccessExpired(now time.Time) bool {
	return !c.AccessExpiresAt.After(now)
}

// RefreshExpired reports whether the refresh token is expired at now.
func (c *Credential) RefreshExpired(now time.Time) bool {
	return !c.RefreshExpiresAt.After(now)
}

// CredentialsStore owns encrypted token material per account.
//
// Store encrypts before persisting; ReadDecrypted is the only path through
// which plaintext tokens leave the vault. Implementations must never log or
// persist plaintext tokens.
type CredentialsStore interface {
	// Store encrypts and persists a token pair, overwriting any prior
	// credential for the account. The write is all-or-nothing.
	Store(accountID uint, accessToken []byte, accessExpiresAt time.Time, refreshToken []byte, refreshExpiresAt time.Time) error

	// ReadDecrypted retrieves and decrypts the credential for an account.
	// Returns ErrCredentialNotFound if absent, ErrCredentialUnreadable on
	// decryption failure.
	ReadDecrypted(accountID uint) (*Credential, error)

	// IsAccessExpired reports whether the access token is expired at `now`.
	IsAccessExpired(accountID uint, now time.Time) (bool, error)

	// IsRefreshExpired reports whether the refresh token is expired at `now`.
	IsRefreshExpired(accountID uint, now time.Time) (bool, error)
}

package store

import (
	"errors"
	"time"
)

// ErrDuplicateAccount is returned when registering an external ID that is
// already linked.
var ErrDuplicateAccount = errors.New("account already registered")

// ErrAccountNotFound is returned when no account matches the identifier.
var ErrAccountNotFound = errors.New("account not found")

// Account represents a linked external account.
type Account struct {
	ID          uint
	ExternalID  string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountsStore is the canonical registry of linked external accounts.
type AccountsStore interface {
	// Register links a new external account.
	// Returns ErrDuplicateAccount if the external ID is already present.
	Register(externalID, displayName string) (*Account, error)

	// Find retrieves an account by external ID.
	// Returns ErrAccountNotFound if absent.
	Find(externalID string) (*Account, error)

	// FindByID retrieves an account by internal ID.
	// Returns ErrAccountNotFound if absent.
	FindByID(accountID uint) (*Account, error)

	// List returns all linked accounts.
	List() ([]Account, error)

	// Delete removes an account, cascading deletion of its credential and
	// all role bindings that reference it.
	Delete(accountID uint) error
}

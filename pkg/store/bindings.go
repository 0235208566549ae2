package store

import (
	"errors"
	"time"

	"github.com/sellerlink/sellerlink/pkg/model"
)

// ErrDuplicateBinding is returned when granting a (user, account) pair that
// already holds a role. Role changes go through UpdateRole, not Grant.
var ErrDuplicateBinding = errors.New("role binding already exists")

// ErrBindingNotFound is returned when no binding exists for the pair.
var ErrBindingNotFound = errors.New("role binding not found")

// RoleBinding is the authorization edge between a user and an account.
type RoleBinding struct {
	UserID    uint
	AccountID uint
	Role      model.Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleBindingsStore maps (user, account) pairs to exactly one role.
//
// Uniqueness of the pair is enforced by a database constraint, not only an
// application-level pre-check, so concurrent grants cannot both succeed.
type RoleBindingsStore interface {
	// Grant creates a binding.
	// Returns ErrDuplicateBinding if the pair already holds a role.
	Grant(userID, accountID uint, role model.Role) (*RoleBinding, error)

	// UpdateRole changes the role on an existing binding.
	// Returns ErrBindingNotFound if none exists.
	UpdateRole(userID, accountID uint, newRole model.Role) error

	// Revoke deletes a binding. Deleting an absent binding is a no-op.
	Revoke(userID, accountID uint) error

	// Find retrieves the binding for a (user, account) pair.
	// Returns ErrBindingNotFound if absent.
	Find(userID, accountID uint) (*RoleBinding, error)

	// ListForAccount returns all bindings on an account.
	ListForAccount(accountID uint) ([]RoleBinding, error)

	// ListForUser returns all bindings held by a user.
	ListForUser(userID uint) ([]RoleBinding, error)
}

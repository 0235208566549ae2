package authz

import (
	"errors"

	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// ErrInsufficientPrivilege is returned when a binding mutation would grant a
// role outranking the acting user's own role on that account.
var ErrInsufficientPrivilege = errors.New("insufficient privilege")

// Action is a capability an authenticated user may hold on an account.
type Action string

const (
	ActionManageRoles       Action = "manage-roles"
	ActionManageCredentials Action = "manage-credentials"
	ActionCreateListings    Action = "create-listings"
	ActionReviewListings    Action = "review-listings"
	ActionDraftListings     Action = "draft-listings"
)

// capabilities is the fixed role-to-action table. An action missing for a
// role means denied; there is no wildcard outside SuperAdmin.
var capabilities = map[model.Role]map[Action]bool{
	model.RoleSuperAdmin: {
		ActionManageRoles:       true,
		ActionManageCredentials: true,
		ActionCreateListings:    true,
		ActionReviewListings:    true,
		ActionDraftListings:     true,
	},
	model.RoleAdmin: {
		ActionManageRoles:       true,
		ActionManageCredentials: true,
		ActionCreateListings:    true,
		ActionReviewListings:    true,
		ActionDraftListings:     true,
	},
	model.RoleReviewer: {
		ActionReviewListings: true,
	},
	model.RoleCreator: {
		ActionCreateListings: true,
	},
	model.RoleDrafter: {
		ActionDraftListings: true,
	},
}

// Engine resolves access-control decisions against the role binding store.
// Every call takes the acting user's identity explicitly; there is no
// ambient "current user".
type Engine struct {
	bindings store.RoleBindingsStore
}

// NewEngine creates an Engine backed by the given binding store.
func NewEngine(bindings store.RoleBindingsStore) *Engine {
	return &Engine{bindings: bindings}
}

// Authorize resolves "can user perform action on account". A user with no
// binding on the account is denied regardless of bindings elsewhere.
func (e *Engine) Authorize(userID, accountID uint, action Action) (bool, error) {
	binding, err := e.bindings.Find(userID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrBindingNotFound) {
			return false, nil
		}
		return false, err
	}

	return RoleAllows(binding.Role, action), nil
}

// RoleAllows consults the capability table directly.
func RoleAllows(role model.Role, action Action) bool {
	return capabilities[role][action]
}

// Grant creates a binding on behalf of an acting user. The actor must hold
// manage-roles on the account, and may not hand out a role outranking their
// own.
func (e *Engine) Grant(actingUserID, userID, accountID uint, role model.Role) (*store.RoleBinding, error) {
	if err := e.checkMutation(actingUserID, accountID, role); err != nil {
		return nil, err
	}
	return e.bindings.Grant(userID, accountID, role)
}

// UpdateRole changes an existing binding on behalf of an acting user, under
// the same escalation rules as Grant.
func (e *Engine) UpdateRole(actingUserID, userID, accountID uint, newRole model.Role) error {
	if err := e.checkMutation(actingUserID, accountID, newRole); err != nil {
		return err
	}
	return e.bindings.UpdateRole(userID, accountID, newRole)
}

// Revoke removes a binding on behalf of an acting user. Revocation only
// requires manage-roles; rank is irrelevant for removal of one's subordinates,
// but an actor may not revoke a binding that outranks them.
func (e *Engine) Revoke(actingUserID, userID, accountID uint) error {
	actorRole, err := e.actorRole(actingUserID, accountID)
	if err != nil {
		return err
	}

	target, err := e.bindings.Find(userID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrBindingNotFound) {
			// Idempotent: revoking an absent binding is a no-op.
			return nil
		}
		return err
	}
	if target.Role.Rank() > actorRole.Rank() {
		return ErrInsufficientPrivilege
	}

	return e.bindings.Revoke(userID, accountID)
}

func (e *Engine) checkMutation(actingUserID, accountID uint, role model.Role) error {
	actorRole, err := e.actorRole(actingUserID, accountID)
	if err != nil {
		return err
	}
	if role.Rank() > actorRole.Rank() {
		return ErrInsufficientPrivilege
	}
	return nil
}

func (e *Engine) actorRole(actingUserID, accountID uint) (model.Role, error) {
	binding, err := e.bindings.Find(actingUserID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrBindingNotFound) {
			return 0, ErrInsufficientPrivilege
		}
		return 0, err
	}
	if !RoleAllows(binding.Role, ActionManageRoles) {
		return 0, ErrInsufficientPrivilege
	}
	return binding.Role, nil
}

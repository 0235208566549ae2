package gorm

import (
	"gorm.io/gorm"

	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// Ensure RoleBindingsStore implements store.RoleBindingsStore
var _ store.RoleBindingsStore = (*RoleBindingsStore)(nil)

// RoleBindingsStore implements store.RoleBindingsStore using GORM
type RoleBindingsStore struct {
	db *gorm.DB
}

// NewRoleBindingsStore creates a new RoleBindingsStore
func NewRoleBindingsStore(db *gorm.DB) *RoleBindingsStore {
	return &RoleBindingsStore{db: db}
}

// Grant creates a binding for a (user, account) pair. Uniqueness is settled
// by the primary key, so two concurrent grants for the same pair cannot both
// insert.
func (s *RoleBindingsStore) Grant(userID, accountID uint, role model.Role) (*store.RoleBinding, error) {
	tx := s.db.Exec(`
		INSERT INTO role_bindings (user_id, account_id, role, created_at, updated_at)
		VALUES (?, ?, ?, now(), now())
		ON CONFLICT (user_id, account_id) DO NOTHING
	`, userID, accountID, role)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, store.ErrDuplicateBinding
	}

	return s.Find(userID, accountID)
}

// UpdateRole changes the role on an existing binding.
func (s *RoleBindingsStore) UpdateRole(userID, accountID uint, newRole model.Role) error {
	tx := s.db.Exec(`
		UPDATE role_bindings SET role = ?, updated_at = now()
		WHERE user_id = ? AND account_id = ?
	`, newRole, userID, accountID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrBindingNotFound
	}
	return nil
}

// Revoke deletes a binding. Revoking an absent binding is a no-op.
func (s *RoleBindingsStore) Revoke(userID, accountID uint) error {
	return s.db.Exec(`
		DELETE FROM role_bindings WHERE user_id = ? AND account_id = ?
	`, userID, accountID).Error
}

// Find retrieves the binding for a (user, account) pair.
func (s *RoleBindingsStore) Find(userID, accountID uint) (*store.RoleBinding, error) {
	var binding model.RoleBinding
	tx := s.db.Where("user_id = ? AND account_id = ?", userID, accountID).First(&binding)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrBindingNotFound
		}
		return nil, tx.Error
	}

	return toStoreBinding(&binding), nil
}

// ListForAccount returns all bindings on an account.
func (s *RoleBindingsStore) ListForAccount(accountID uint) ([]store.RoleBinding, error) {
	var bindings []model.RoleBinding
	if err := s.db.Where("account_id = ?", accountID).Order("user_id").Find(&bindings).Error; err != nil {
		return nil, err
	}
	return toStoreBindings(bindings), nil
}

// ListForUser returns all bindings held by a user.
func (s *RoleBindingsStore) ListForUser(userID uint) ([]store.RoleBinding, error) {
	var bindings []model.RoleBinding
	if err := s.db.Where("user_id = ?", userID).Order("account_id").Find(&bindings).Error; err != nil {
		return nil, err
	}
	return toStoreBindings(bindings), nil
}

func toStoreBinding(b *model.RoleBinding) *store.RoleBinding {
	return &store.RoleBinding{
		UserID:    b.UserID,
		AccountID: b.AccountID,
		Role:      b.Role,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toStoreBindings(bindings []model.RoleBinding) []store.RoleBinding {
	out := make([]store.RoleBinding, 0, len(bindings))
	for i := range bindings {
		out = append(out, *toStoreBinding(&bindings[i]))
	}
	return out
}

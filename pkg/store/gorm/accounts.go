package gorm

import (
	"gorm.io/gorm"

	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// Ensure AccountsStore implements store.AccountsStore
var _ store.AccountsStore = (*AccountsStore)(nil)

// AccountsStore implements store.AccountsStore using GORM
type AccountsStore struct {
	db *gorm.DB
}

// NewAccountsStore creates a new AccountsStore
func NewAccountsStore(db *gorm.DB) *AccountsStore {
	return &AccountsStore{db: db}
}

// Register links a new external account. Uniqueness of the external ID is
// settled by the database, so concurrent registrations of the same ID cannot
// both succeed.
func (s *AccountsStore) Register(externalID, displayName string) (*store.Account, error) {
	tx := s.db.Exec(`
		INSERT INTO accounts (external_id, display_name, created_at, updated_at)
		VALUES (?, ?, now(), now())
		ON CONFLICT (external_id) DO NOTHING
	`, externalID, displayName)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, store.ErrDuplicateAccount
	}

	return s.Find(externalID)
}

// Find retrieves an account by external ID.
func (s *AccountsStore) Find(externalID string) (*store.Account, error) {
	var account model.Account
	tx := s.db.Where("external_id = ?", externalID).First(&account)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrAccountNotFound
		}
		return nil, tx.Error
	}

	return toStoreAccount(&account), nil
}

// FindByID retrieves an account by internal ID.
func (s *AccountsStore) FindByID(accountID uint) (*store.Account, error) {
	var account model.Account
	tx := s.db.Where("id = ?", accountID).First(&account)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrAccountNotFound
		}
		return nil, tx.Error
	}

	return toStoreAccount(&account), nil
}

// List returns all linked accounts ordered by external ID.
func (s *AccountsStore) List() ([]store.Account, error) {
	var accounts []model.Account
	if err := s.db.Order("external_id").Find(&accounts).Error; err != nil {
		return nil, err
	}

	out := make([]store.Account, 0, len(accounts))
	for i := range accounts {
		out = append(out, *toStoreAccount(&accounts[i]))
	}
	return out, nil
}

// Delete removes an account and cascades to its credential and role
// bindings. The schema carries ON DELETE CASCADE as well; the explicit
// deletes keep the dependency order visible and work on partially migrated
// databases.
func (s *AccountsStore) Delete(accountID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM credentials WHERE account_id = ?`, accountID).Error; err != nil {
			return err
		}

		if err := tx.Exec(`DELETE FROM role_bindings WHERE account_id = ?`, accountID).Error; err != nil {
			return err
		}

		res := tx.Exec(`DELETE FROM accounts WHERE id = ?`, accountID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrAccountNotFound
		}
		return nil
	})
}

func toStoreAccount(a *model.Account) *store.Account {
	return &store.Account{
		ID:          a.ID,
		ExternalID:  a.ExternalID,
		DisplayName: a.DisplayName,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

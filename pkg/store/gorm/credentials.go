package gorm

import (
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// Ensure CredentialsStore implements store.CredentialsStore
var _ store.CredentialsStore = (*CredentialsStore)(nil)

// CredentialsStore implements store.CredentialsStore using GORM. Encryption
// and decryption happen in the model hooks; this store never handles
// plaintext outside a single call frame and never logs token material.
type CredentialsStore struct {
	db *gorm.DB
}

// NewCredentialsStore creates a new CredentialsStore
func NewCredentialsStore(db *gorm.DB) *CredentialsStore {
	return &CredentialsStore{db: db}
}

// Store encrypts and persists a token pair, overwriting any prior credential
// for the account. A single upsert keeps the write all-or-nothing.
func (s *CredentialsStore) Store(accountID uint, accessToken []byte, accessExpiresAt time.Time, refreshToken []byte, refreshExpiresAt time.Time) error {
	credential := model.Credential{
		AccountID:        accountID,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}

	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token",
			"access_expires_at", "refresh_expires_at", "updated_at",
		}),
	}).Create(&credential).Error
}

// ReadDecrypted retrieves and decrypts the credential for an account. This
// is the only path through which plaintext tokens leave the vault.
func (s *CredentialsStore) ReadDecrypted(accountID uint) (*store.Credential, error) {
	var credential model.Credential
	tx := s.db.Where("account_id = ?", accountID).First(&credential)
	if tx.Error != nil {
		if tx.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrCredentialNotFound
		}
		if errors.Is(tx.Error, model.ErrCredentialUnreadable) {
			return nil, store.ErrCredentialUnreadable
		}
		return nil, tx.Error
	}

	return &store.Credential{
		AccountID:        credential.AccountID,
		AccessToken:      credential.AccessToken,
		RefreshToken:     credential.RefreshToken,
		AccessExpiresAt:  credential.AccessExpiresAt,
		RefreshExpiresAt: credential.RefreshExpiresAt,
	}, nil
}

// IsAccessExpired reports whether the access token is expired at `now`.
// Reads only the expiry column, so no decryption happens.
func (s *CredentialsStore) IsAccessExpired(accountID uint, now time.Time) (bool, error) {
	return s.expired(`SELECT access_expires_at FROM credentials WHERE account_id = ?`, accountID, now)
}

// IsRefreshExpired reports whether the refresh token is expired at `now`.
func (s *CredentialsStore) IsRefreshExpired(accountID uint, now time.Time) (bool, error) {
	return s.expired(`SELECT refresh_expires_at FROM credentials WHERE account_id = ?`, accountID, now)
}

func (s *CredentialsStore) expired(query string, accountID uint, now time.Time) (bool, error) {
	var expiresAt time.Time
	row := s.db.Raw(query, accountID).Row()
	if err := row.Scan(&expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return false, store.ErrCredentialNotFound
		}
		return false, err
	}

	return !now.Before(expiresAt), nil
}

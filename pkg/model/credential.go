package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrCredentialUnreadable reports token material that failed to decrypt
// (key rotation mismatch or corruption). The error never carries ciphertext
// or key material.
var ErrCredentialUnreadable = errors.New("credential material unreadable")

// Credential holds the OAuth token pair for one Account. Both tokens are
// encrypted at rest; plaintext exists in memory only between AfterFind and
// the caller.
type Credential struct {
	AccountID        uint      `gorm:"column:account_id;primaryKey"`
	AccessToken      []byte    `gorm:"column:access_token;type:bytea"`
	RefreshToken     []byte    `gorm:"column:refresh_token;type:bytea"`
	AccessExpiresAt  time.Time `gorm:"column:access_expires_at"`
	RefreshExpiresAt time.Time `gorm:"column:refresh_expires_at"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Credential) TableName() string {
	return "credentials"
}

func (c *Credential) aad() []byte {
	return []byte(fmt.Sprintf("account/%d", c.AccountID))
}

func (c *Credential) BeforeSave(tx *gorm.DB) error {
	cipher, err := getCipherForDB(tx)
	if err != nil {
		return err
	}

	c.AccessToken, err = cipher.Encrypt(c.aad(), c.AccessToken)
	if err != nil {
		return fmt.Errorf("credential encryption failed for account_id=%d", c.AccountID)
	}

	c.RefreshToken, err = cipher.Encrypt(c.aad(), c.RefreshToken)
	if err != nil {
		return fmt.Errorf("credential encryption failed for account_id=%d", c.AccountID)
	}

	return nil
}

func (c *Credential) AfterFind(tx *gorm.DB) error {
	cipher, err := getCipherForDB(tx)
	if err != nil {
		return err
	}

	access, err := cipher.Decrypt(c.aad(), c.AccessToken)
	if err != nil {
		return fmt.Errorf("account_id=%d: %w", c.AccountID, ErrCredentialUnreadable)
	}

	refresh, err := cipher.Decrypt(c.aad(), c.RefreshToken)
	if err != nil {
		return fmt.Errorf("account_id=%d: %w", c.AccountID, ErrCredentialUnreadable)
	}

	c.AccessToken = access
	c.RefreshToken = refresh
	return nil
}

// AccessExpired reports whether the access token expiry has passed.
func (c *Credential) AccessExpired(now time.Time) bool {
	return !now.Before(c.AccessExpiresAt)
}

// RefreshExpired reports whether the refresh token expiry has passed.
func (c *Credential) RefreshExpired(now time.Time) bool {
	return !now.Before(c.RefreshExpiresAt)
}

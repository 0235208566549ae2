package model

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sellerlink/sellerlink/pkg/crypt"
)

// getCipherForDB pulls the data-key cipher out of the session context the
// database connection was opened with.
func getCipherForDB(tx *gorm.DB) (crypt.SymmetricCipher, error) {
	cipher, ok := crypt.FromContext(tx.Statement.Context)
	if !ok {
		return nil, errors.New("no cipher present on database session")
	}
	return cipher, nil
}

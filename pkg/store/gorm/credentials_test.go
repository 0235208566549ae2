package gorm

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerlink/sellerlink/pkg/store"
)

func TestCredentialsStore(t *testing.T) {
	db, mock, _ := setupTestDB(t)
	credentials := NewCredentialsStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "credentials" .* ON CONFLICT \("account_id"\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := credentials.Store(
		5,
		[]byte("access-token"), time.Now().Add(2*time.Hour),
		[]byte("refresh-token"), time.Now().Add(18*time.Hour),
	)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialsReadDecrypted(t *testing.T) {
	db, mock, cipher := setupTestDB(t)
	credentials := NewCredentialsStore(db)

	aad := []byte("account/5")
	encAccess, err := cipher.Encrypt(aad, []byte("access-token"))
	require.NoError(t, err)
	encRefresh, err := cipher.Encrypt(aad, []byte("refresh-token"))
	require.NoError(t, err)

	accessExp := time.Now().Add(time.Hour)
	refreshExp := time.Now().Add(18 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"account_id", "access_token", "refresh_token",
		"access_expires_at", "refresh_expires_at", "created_at", "updated_at",
	}).AddRow(5, encAccess, encRefresh, accessExp, refreshExp, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT \* FROM "credentials"`).
		WithArgs(uint(5), 1).
		WillReturnRows(rows)

	credential, err := credentials.ReadDecrypted(5)
	require.NoError(t, err)
	assert.Equal(t, []byte("access-token"), credential.AccessToken)
	assert.Equal(t, []byte("refresh-token"), credential.RefreshToken)
	assert.True(t, credential.AccessExpiresAt.Equal(accessExp))
}

func TestCredentialsReadDecryptedNotFound(t *testing.T) {
	db, mock, _ := setupTestDB(t)
	credentials := NewCredentialsStore(db)

	mock.ExpectQuery(`SELECT \* FROM "credentials"`).
		WithArgs(uint(5), 1).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

	_, err := credentials.ReadDecrypted(5)
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

func TestCredentialsReadDecryptedUnreadable(t *testing.T) {
	db, mock, _ := setupTestDB(t)
	credentials := NewCredentialsStore(db)

	// Material encrypted under a different key or copied between rows fails
	// GCM authentication on read.
	garbage := make([]byte, 64)
	rows := sqlmock.NewRows([]string{
		"account_id", "access_token", "refresh_token",
		"access_expires_at", "refresh_expires_at", "created_at", "updated_at",
	}).AddRow(5, garbage, garbage, time.Now(), time.Now(), time.Now(), time.Now())
	mock.ExpectQuery(`SELECT \* FROM "credentials"`).
		WithArgs(uint(5), 1).
		WillReturnRows(rows)

	_, err := credentials.ReadDecrypted(5)
	assert.ErrorIs(t, err, store.ErrCredentialUnreadable)
}

func TestCredentialsIsAccessExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"live token", now.Add(time.Hour), false},
		{"expired token", now.Add(-time.Hour), true},
		{"expiry boundary counts as expired", now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := setupTestDB(t)
			credentials := NewCredentialsStore(db)

			rows := sqlmock.NewRows([]string{"access_expires_at"}).AddRow(tt.expiresAt)
			mock.ExpectQuery(`SELECT access_expires_at FROM credentials`).
				WithArgs(uint(5)).
				WillReturnRows(rows)

			expired, err := credentials.IsAccessExpired(5, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expired)
		})
	}
}

func TestCredentialsIsRefreshExpiredNotFound(t *testing.T) {
	db, mock, _ := setupTestDB(t)
	credentials := NewCredentialsStore(db)

	mock.ExpectQuery(`SELECT refresh_expires_at FROM credentials`).
		WithArgs(uint(5)).
		WillReturnRows(sqlmock.NewRows([]string{"refresh_expires_at"}))

	_, err := credentials.IsRefreshExpired(5, time.Now())
	assert.ErrorIs(t, err, store.ErrCredentialNotFound)
}

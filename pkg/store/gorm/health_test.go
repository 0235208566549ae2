package gorm

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestHealthCheckConnectivity(t *testing.T) {
	db, mock, _ := setupTestDB(t)
	health := NewHealthStore(db)

	mock.ExpectExec(`SELECT 1`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, health.CheckConnectivity())
}

func TestHealthCheckConnectivityFailure(t *testing.T) {
	db, mock, _ := setupTestDB(t)
	health := NewHealthStore(db)

	mock.ExpectExec(`SELECT 1`).WillReturnError(errors.New("connection refused"))
	assert.Error(t, health.CheckConnectivity())
}

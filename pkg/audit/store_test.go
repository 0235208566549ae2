package audit

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStoreSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := CheckEvent{
		UserID:    7,
		AccountID: 3,
		ClientIP:  "10.0.0.1",
		Action:    "create-listings",
		Allowed:   true,
	}

	mock.ExpectExec(`INSERT INTO audit_messages`).
		WithArgs(
			FacilityAuthPriv,  // facility
			int(SeverityInfo), // severity
			sqlmock.AnyArg(),  // timestamp
			sqlmock.AnyArg(),  // hostname
			"sellerlink",      // appname
			sqlmock.AnyArg(),  // procid
			"check",           // msgid
			sqlmock.AnyArg(),  // sdata (JSON)
			sqlmock.AnyArg(),  // message
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSaveBindingEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	event := BindingEvent{
		ActorID:   1,
		SubjectID: 2,
		AccountID: 5,
		ClientIP:  "192.168.1.1",
		Role:      "Reviewer",
		Operation: "grant",
		Success:   true,
	}

	mock.ExpectExec(`INSERT INTO audit_messages`).
		WithArgs(
			FacilityAuthPriv,
			int(SeverityNotice),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"sellerlink",
			sqlmock.AnyArg(),
			"binding",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Save(event)
	if err != nil {
		t.Errorf("Save() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStoreSavePropagatesError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	store := NewStoreWithDB(db)

	mock.ExpectExec(`INSERT INTO audit_messages`).
		WillReturnError(errors.New("connection reset"))

	if err := store.Save(RefreshEvent{AccountID: 1, Success: true}); err == nil {
		t.Error("Save() expected error, got nil")
	}
}

func TestStoreNilDB(t *testing.T) {
	store := &Store{}
	if err := store.Save(RefreshEvent{AccountID: 1}); err != nil {
		t.Errorf("Save() with nil db should be a no-op, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() with nil db should be a no-op, got %v", err)
	}
}

package endpoints

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, superUser())

	ts.directory.On("CreateUser", "bob@example.com", "Bob", "Jones", "sekrit").Return(uint(9), nil)
	ts.directory.On("FindByID", uint(9)).Return(&model.User{
		ID:        9,
		Email:     "bob@example.com",
		FirstName: "Bob",
		LastName:  "Jones",
		IsActive:  true,
	}, nil)

	rec := ts.do(t, "POST", "/users", token, CreateUserRequest{
		Email:     "bob@example.com",
		FirstName: "Bob",
		LastName:  "Jones",
		Password:  "sekrit",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[UserResponse](t, rec)
	assert.Equal(t, uint(9), resp.ID)
	assert.Equal(t, "bob@example.com", resp.Email)
	assert.True(t, resp.IsActive)
}

func TestCreateUserRequiresOperator(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, regularUser())

	rec := ts.do(t, "POST", "/users", token, CreateUserRequest{Email: "bob@example.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.directory.AssertNotCalled(t, "CreateUser",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateUserErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"missing email", userdir.ErrEmailRequired, http.StatusBadRequest},
		{"duplicate email", userdir.ErrDuplicateEmail, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			token := ts.sessionFor(t, superUser())

			ts.directory.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(uint(0), tt.err)

			rec := ts.do(t, "POST", "/users", token, CreateUserRequest{Email: "bob@example.com"})
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestGetUserSelf(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.directory.On("FindByID", user.ID).Return(user, nil)

	rec := ts.do(t, "GET", "/users/7", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.Email, decodeBody[UserResponse](t, rec).Email)
}

func TestGetUserOtherDenied(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, regularUser())

	rec := ts.do(t, "GET", "/users/9", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.directory.AssertNotCalled(t, "FindByID", mock.Anything)
}

func TestGetUserNotFound(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, superUser())

	ts.directory.On("FindByID", uint(9)).Return(nil, userdir.ErrUserNotFound)

	rec := ts.do(t, "GET", "/users/9", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package endpoints

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerlink/sellerlink/pkg/userdir"
)

func TestLoginSuccess(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()

	ts.directory.On("Authenticate", "alice@example.com", "s3cret").Return(user, nil)

	rec := ts.do(t, "POST", "/authn/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[LoginResponse](t, rec)
	require.NotEmpty(t, resp.Token)

	// The issued token is accepted by the session middleware
	whoami := ts.do(t, "GET", "/whoami", resp.Token, nil)
	require.Equal(t, http.StatusOK, whoami.Code)
	body := decodeBody[WhoamiResponse](t, whoami)
	assert.Equal(t, user.ID, body.UserID)
	assert.Equal(t, user.Email, body.Email)
}

func TestLoginBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	ts.directory.On("Authenticate", "alice@example.com", "wrong").
		Return(nil, userdir.ErrInvalidCredentials)

	rec := ts.do(t, "POST", "/authn/login", "", LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/authn/login", "", LoginRequest{Email: "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "POST", "/authn/login", "", LoginRequest{Password: "s3cret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.directory.AssertNotCalled(t, "Authenticate")
}

package endpoints

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sellerlink/sellerlink/pkg/audit"
	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/oauth"
	"github.com/sellerlink/sellerlink/pkg/refresh"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// matchTime compares times by instant, since JSON decoding loses the
// internal representation reflect.DeepEqual would need.
func matchTime(want time.Time) interface{} {
	return mock.MatchedBy(func(got time.Time) bool { return got.Equal(want) })
}

func TestRegisterAccount(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	account := &store.Account{ID: 42, ExternalID: "ebay-seller-1", DisplayName: "Seller One"}
	ts.accounts.On("Register", "ebay-seller-1", "Seller One").Return(account, nil)
	ts.bindings.On("Grant", user.ID, account.ID, model.RoleSuperAdmin).
		Return(&store.RoleBinding{UserID: user.ID, AccountID: account.ID, Role: model.RoleSuperAdmin}, nil)

	rec := ts.do(t, "POST", "/accounts", token, RegisterAccountRequest{
		ExternalID:  "ebay-seller-1",
		DisplayName: "Seller One",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[AccountResponse](t, rec)
	assert.Equal(t, uint(42), resp.ID)
	assert.Equal(t, "ebay-seller-1", resp.ExternalID)

	// The registrant must end up administering the account.
	ts.bindings.AssertCalled(t, "Grant", user.ID, account.ID, model.RoleSuperAdmin)
}

func TestRegisterAccountDuplicate(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, regularUser())

	ts.accounts.On("Register", "ebay-seller-1", "").Return(nil, store.ErrDuplicateAccount)

	rec := ts.do(t, "POST", "/accounts", token, RegisterAccountRequest{ExternalID: "ebay-seller-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	ts.bindings.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterAccountValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, regularUser())

	rec := ts.do(t, "POST", "/accounts", token, RegisterAccountRequest{DisplayName: "no external id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestListAccountsFiltersByBinding(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.accounts.On("List").Return([]store.Account{
		{ID: 1, ExternalID: "a"},
		{ID: 2, ExternalID: "b"},
		{ID: 3, ExternalID: "c"},
	}, nil)
	ts.bindings.On("ListForUser", user.ID).Return([]store.RoleBinding{
		{UserID: user.ID, AccountID: 1, Role: model.RoleDrafter},
		{UserID: user.ID, AccountID: 3, Role: model.RoleAdmin},
	}, nil)

	rec := ts.do(t, "GET", "/accounts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]AccountResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "a", resp[0].ExternalID)
	assert.Equal(t, "c", resp[1].ExternalID)
}

func TestListAccountsSuperuserSeesAll(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, superUser())

	ts.accounts.On("List").Return([]store.Account{
		{ID: 1, ExternalID: "a"},
		{ID: 2, ExternalID: "b"},
	}, nil)

	rec := ts.do(t, "GET", "/accounts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]AccountResponse](t, rec)
	assert.Len(t, resp, 2)
	ts.bindings.AssertNotCalled(t, "ListForUser", mock.Anything)
}

func TestListAccountsCappedByConfiguredLimit(t *testing.T) {
	ts := newTestServer(t)
	ts.Config.APIAccountListLimitMax = 2
	token := ts.sessionFor(t, superUser())

	ts.accounts.On("List").Return([]store.Account{
		{ID: 1, ExternalID: "a"},
		{ID: 2, ExternalID: "b"},
		{ID: 3, ExternalID: "c"},
	}, nil)

	rec := ts.do(t, "GET", "/accounts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]AccountResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, "a", resp[0].ExternalID)
	assert.Equal(t, "b", resp[1].ExternalID)
}

func TestGetAccount(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).
		Return(&store.RoleBinding{UserID: user.ID, AccountID: 5, Role: model.RoleDrafter}, nil)
	ts.accounts.On("FindByID", uint(5)).
		Return(&store.Account{ID: 5, ExternalID: "ebay-seller-5"}, nil)

	rec := ts.do(t, "GET", "/accounts/5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ebay-seller-5", decodeBody[AccountResponse](t, rec).ExternalID)
}

func TestGetAccountDeniedWithoutBinding(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).Return(nil, store.ErrBindingNotFound)

	rec := ts.do(t, "GET", "/accounts/5", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.accounts.AssertNotCalled(t, "FindByID", mock.Anything)
}

func TestDeleteAccount(t *testing.T) {
	user := regularUser()

	tests := []struct {
		name     string
		role     model.Role
		wantCode int
	}{
		{"super admin may delete", model.RoleSuperAdmin, http.StatusNoContent},
		{"admin may not delete", model.RoleAdmin, http.StatusForbidden},
		{"drafter may not delete", model.RoleDrafter, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			token := ts.sessionFor(t, user)

			ts.bindings.On("Find", user.ID, uint(5)).
				Return(&store.RoleBinding{UserID: user.ID, AccountID: 5, Role: tt.role}, nil)
			ts.accounts.On("Delete", uint(5)).Return(nil)

			rec := ts.do(t, "DELETE", "/accounts/5", token, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestDeleteAccountSuperuserBypass(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, superUser())

	ts.accounts.On("Delete", uint(5)).Return(nil)

	rec := ts.do(t, "DELETE", "/accounts/5", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	ts.bindings.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
}

func TestDeleteAccountNotFound(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, superUser())

	ts.accounts.On("Delete", uint(5)).Return(store.ErrAccountNotFound)

	rec := ts.do(t, "DELETE", "/accounts/5", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAccountEmitsUnlinkAudit(t *testing.T) {
	var buf bytes.Buffer
	audit.SetEnabled(true)
	audit.DefaultLogger.SetWriter(&buf)
	t.Cleanup(func() {
		audit.SetEnabled(false)
		audit.DefaultLogger.SetWriter(os.Stdout)
	})

	ts := newTestServer(t)
	token := ts.sessionFor(t, superUser())

	ts.accounts.On("Delete", uint(5)).Return(nil)

	rec := ts.do(t, "DELETE", "/accounts/5", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	out := buf.String()
	assert.Contains(t, out, " unlink ")
	assert.Contains(t, out, `result="success"`)
	assert.Contains(t, out, `account="5"`)
}

func TestStoreCredentials(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).
		Return(&store.RoleBinding{UserID: user.ID, AccountID: 5, Role: model.RoleAdmin}, nil)

	accessExp := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	refreshExp := time.Now().Add(18 * time.Hour).UTC().Truncate(time.Second)
	ts.credentials.On("Store", uint(5), []byte("access"), matchTime(accessExp), []byte("refresh"), matchTime(refreshExp)).Return(nil)

	rec := ts.do(t, "PUT", "/accounts/5/credentials", token, StoreCredentialsRequest{
		AccessToken:      "access",
		AccessExpiresAt:  accessExp,
		RefreshToken:     "refresh",
		RefreshExpiresAt: refreshExp,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	ts.credentials.AssertExpectations(t)
}

func TestStoreCredentialsRequiresManageCredentials(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	// Drafters hold no manage-credentials capability.
	ts.bindings.On("Find", user.ID, uint(5)).
		Return(&store.RoleBinding{UserID: user.ID, AccountID: 5, Role: model.RoleDrafter}, nil)

	rec := ts.do(t, "PUT", "/accounts/5/credentials", token, StoreCredentialsRequest{
		AccessToken:      "access",
		AccessExpiresAt:  time.Now().Add(time.Hour),
		RefreshToken:     "refresh",
		RefreshExpiresAt: time.Now().Add(18 * time.Hour),
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	ts.credentials.AssertNotCalled(t, "Store",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStoreCredentialsValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.sessionFor(t, superUser())

	tests := []struct {
		name string
		body StoreCredentialsRequest
	}{
		{"missing tokens", StoreCredentialsRequest{
			AccessExpiresAt:  time.Now().Add(time.Hour),
			RefreshExpiresAt: time.Now().Add(18 * time.Hour),
		}},
		{"missing expiries", StoreCredentialsRequest{
			AccessToken:  "access",
			RefreshToken: "refresh",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, "PUT", "/accounts/5/credentials", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFreshToken(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).
		Return(&store.RoleBinding{UserID: user.ID, AccountID: 5, Role: model.RoleCreator}, nil)
	ts.refresher.On("EnsureFresh", mock.Anything, uint(5)).Return("fresh-access-token", nil)

	rec := ts.do(t, "GET", "/accounts/5/token", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh-access-token", decodeBody[TokenResponse](t, rec).AccessToken)
}

func TestFreshTokenErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"no credentials", store.ErrCredentialNotFound, http.StatusNotFound},
		{"grant revoked upstream", oauth.ErrTokenExpiredOrRevoked, http.StatusConflict},
		{"provider unavailable", refresh.ErrRefreshExhausted, http.StatusBadGateway},
		{"unexpected failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			token := ts.sessionFor(t, superUser())

			ts.refresher.On("EnsureFresh", mock.Anything, uint(5)).Return("", tt.err)

			rec := ts.do(t, "GET", "/accounts/5/token", token, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestCredentialStatus(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).
		Return(&store.RoleBinding{UserID: user.ID, AccountID: 5, Role: model.RoleDrafter}, nil)
	ts.refresher.On("State", uint(5)).Return(refresh.StateNearExpiry, nil)

	rec := ts.do(t, "GET", "/accounts/5/credentials/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "near-expiry", decodeBody[CredentialStatusResponse](t, rec).State)
}

func TestCredentialStatusNoCredentials(t *testing.T) {
	ts := newTestServer(t)
	user := superUser()
	token := ts.sessionFor(t, user)

	ts.refresher.On("State", uint(5)).Return(refresh.State(0), store.ErrCredentialNotFound)

	rec := ts.do(t, "GET", "/accounts/5/credentials/status", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredentialStatusDeniedWithoutBinding(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).Return(nil, store.ErrBindingNotFound)

	rec := ts.do(t, "GET", "/accounts/5/credentials/status", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	ts.refresher.AssertNotCalled(t, "State", uint(5))
}

func TestCheckPermission(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).
		Return(&store.RoleBinding{UserID: user.ID, AccountID: 5, Role: model.RoleReviewer}, nil)

	rec := ts.do(t, "GET", "/accounts/5/permissions/review-listings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[PermissionResponse](t, rec)
	assert.Equal(t, "review-listings", resp.Action)
	assert.True(t, resp.Allowed)

	rec = ts.do(t, "GET", "/accounts/5/permissions/manage-roles", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[PermissionResponse](t, rec).Allowed)
}

func TestCheckPermissionWithoutBinding(t *testing.T) {
	ts := newTestServer(t)
	user := regularUser()
	token := ts.sessionFor(t, user)

	ts.bindings.On("Find", user.ID, uint(5)).Return(nil, store.ErrBindingNotFound)

	rec := ts.do(t, "GET", "/accounts/5/permissions/draft-listings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[PermissionResponse](t, rec).Allowed)
}

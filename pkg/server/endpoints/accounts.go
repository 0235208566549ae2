package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sellerlink/sellerlink/pkg/audit"
	"github.com/sellerlink/sellerlink/pkg/authz"
	"github.com/sellerlink/sellerlink/pkg/identity"
	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/oauth"
	"github.com/sellerlink/sellerlink/pkg/refresh"
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/middleware"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID          uint   `json:"id"`
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
}

// RegisterAccountRequest is the body of POST /accounts
type RegisterAccountRequest struct {
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
}

// StoreCredentialsRequest is the body of PUT /accounts/{account_id}/credentials
type StoreCredentialsRequest struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenResponse carries a fresh access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// PermissionResponse is the result of a capability check
type PermissionResponse struct {
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
}

// CredentialStatusResponse reports where an account's credential sits in the
// refresh lifecycle.
type CredentialStatusResponse struct {
	State string `json:"state"`
}

// RegisterAccountsEndpoints registers the account management endpoints
func RegisterAccountsEndpoints(s *server.Server, session *middleware.SessionAuthenticator) {
	router := s.Router.PathPrefix("/accounts").Subrouter()
	router.Use(session.Middleware)

	router.HandleFunc("", handleRegisterAccount(s)).Methods("POST")
	router.HandleFunc("", handleListAccounts(s)).Methods("GET")
	router.HandleFunc("/{account_id}", handleGetAccount(s)).Methods("GET")
	router.HandleFunc("/{account_id}", handleDeleteAccount(s)).Methods("DELETE")
	router.HandleFunc("/{account_id}/credentials", handleStoreCredentials(s)).Methods("PUT")
	router.HandleFunc("/{account_id}/credentials/status", handleCredentialStatus(s)).Methods("GET")
	router.HandleFunc("/{account_id}/token", handleFreshToken(s)).Methods("GET")
	router.HandleFunc("/{account_id}/permissions/{action}", handleCheckPermission(s)).Methods("GET")
}

// hasAccountAccess reports whether the acting user may see the account at
// all: any role binding qualifies, directory superusers bypass.
func hasAccountAccess(s *server.Server, id *identity.Identity, accountID uint) (bool, error) {
	if id.Superuser {
		return true, nil
	}
	_, err := s.Bindings.Find(id.UserID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrBindingNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func handleRegisterAccount(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		clientIP := middleware.ClientIP(r, s.Config)

		var req RegisterAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.ExternalID == "" {
			respondWithError(w, http.StatusBadRequest, "external_id is required")
			return
		}

		account, err := s.Accounts.Register(req.ExternalID, req.DisplayName)
		if err != nil {
			audit.Log(audit.RegisterEvent{
				ActorID:      id.UserID,
				ExternalID:   req.ExternalID,
				ClientIP:     clientIP,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			if errors.Is(err, store.ErrDuplicateAccount) {
				respondWithError(w, http.StatusConflict, "account already registered")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "failed to register account")
			return
		}

		// The registrant administers the fresh account. Without this
		// bootstrap grant nobody would hold manage-roles on it.
		if _, err := s.Bindings.Grant(id.UserID, account.ID, model.RoleSuperAdmin); err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to bind registrant")
			return
		}

		audit.Log(audit.RegisterEvent{
			ActorID:    id.UserID,
			ExternalID: account.ExternalID,
			ClientIP:   clientIP,
			Success:    true,
		})

		respondWithJSON(w, http.StatusCreated, toAccountResponse(account))
	}
}

func handleListAccounts(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		accounts, err := s.Accounts.List()
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to list accounts")
			return
		}

		visible := accounts
		if !id.Superuser {
			bindings, err := s.Bindings.ListForUser(id.UserID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, "failed to list accounts")
				return
			}
			bound := make(map[uint]bool, len(bindings))
			for _, b := range bindings {
				bound[b.AccountID] = true
			}
			visible = visible[:0]
			for _, account := range accounts {
				if bound[account.ID] {
					visible = append(visible, account)
				}
			}
		}

		// The cap applies after binding filtering so a user with few
		// bindings is not starved by accounts they cannot see anyway.
		if limit := s.Config.APIAccountListLimitMax; limit > 0 && len(visible) > limit {
			visible = visible[:limit]
		}

		out := make([]AccountResponse, 0, len(visible))
		for i := range visible {
			out = append(out, toAccountResponse(&visible[i]))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

func handleGetAccount(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}

		allowed, err := hasAccountAccess(s, id, accountID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "authorization check failed")
			return
		}
		if !allowed {
			respondWithError(w, http.StatusForbidden, "access denied")
			return
		}

		account, err := s.Accounts.FindByID(accountID)
		if err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				respondWithError(w, http.StatusNotFound, "account not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "failed to fetch account")
			return
		}

		respondWithJSON(w, http.StatusOK, toAccountResponse(account))
	}
}

func handleDeleteAccount(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		clientIP := middleware.ClientIP(r, s.Config)

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}

		// Unlinking an account destroys its credential; only the account's
		// SuperAdmin or a directory superuser may do that.
		if !id.Superuser {
			binding, err := s.Bindings.Find(id.UserID, accountID)
			if err != nil || binding.Role != model.RoleSuperAdmin {
				respondWithError(w, http.StatusForbidden, "access denied")
				return
			}
		}

		if err := s.Accounts.Delete(accountID); err != nil {
			audit.Log(audit.UnlinkEvent{
				ActorID:      id.UserID,
				AccountID:    accountID,
				ClientIP:     clientIP,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			if errors.Is(err, store.ErrAccountNotFound) {
				respondWithError(w, http.StatusNotFound, "account not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "failed to delete account")
			return
		}

		audit.Log(audit.UnlinkEvent{
			ActorID:   id.UserID,
			AccountID: accountID,
			ClientIP:  clientIP,
			Success:   true,
		})

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleStoreCredentials(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		clientIP := middleware.ClientIP(r, s.Config)

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}

		if !id.Superuser {
			allowed, err := s.Authz.Authorize(id.UserID, accountID, authz.ActionManageCredentials)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, "authorization check failed")
				return
			}
			if !allowed {
				respondWithError(w, http.StatusForbidden, "access denied")
				return
			}
		}

		var req StoreCredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.AccessToken == "" || req.RefreshToken == "" {
			respondWithError(w, http.StatusBadRequest, "access_token and refresh_token are required")
			return
		}
		if req.AccessExpiresAt.IsZero() || req.RefreshExpiresAt.IsZero() {
			respondWithError(w, http.StatusBadRequest, "token expiries are required")
			return
		}

		err := s.Credentials.Store(
			accountID,
			[]byte(req.AccessToken), req.AccessExpiresAt,
			[]byte(req.RefreshToken), req.RefreshExpiresAt,
		)
		if err != nil {
			audit.Log(audit.CredentialEvent{
				ActorID:      id.UserID,
				AccountID:    accountID,
				ClientIP:     clientIP,
				Success:      false,
				ErrorMessage: "store failed",
			})
			respondWithError(w, http.StatusInternalServerError, "failed to store credentials")
			return
		}

		audit.Log(audit.CredentialEvent{
			ActorID:   id.UserID,
			AccountID: accountID,
			ClientIP:  clientIP,
			Success:   true,
		})

		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCredentialStatus(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}

		allowed, err := hasAccountAccess(s, id, accountID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "authorization check failed")
			return
		}
		if !allowed {
			respondWithError(w, http.StatusForbidden, "access denied")
			return
		}

		state, err := s.Refresher.State(accountID)
		if err != nil {
			if errors.Is(err, store.ErrCredentialNotFound) {
				respondWithError(w, http.StatusNotFound, "no credentials stored for account")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "failed to read credential state")
			return
		}

		respondWithJSON(w, http.StatusOK, CredentialStatusResponse{State: state.String()})
	}
}

func handleFreshToken(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}

		allowed, err := hasAccountAccess(s, id, accountID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "authorization check failed")
			return
		}
		if !allowed {
			respondWithError(w, http.StatusForbidden, "access denied")
			return
		}

		token, err := s.Refresher.EnsureFresh(r.Context(), accountID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrCredentialNotFound):
				respondWithError(w, http.StatusNotFound, "no credentials stored for account")
			case errors.Is(err, oauth.ErrTokenExpiredOrRevoked):
				respondWithError(w, http.StatusConflict, "account requires re-authorization")
			case errors.Is(err, refresh.ErrRefreshExhausted):
				respondWithError(w, http.StatusBadGateway, "token refresh temporarily unavailable")
			default:
				respondWithError(w, http.StatusInternalServerError, "failed to obtain token")
			}
			return
		}

		respondWithJSON(w, http.StatusOK, TokenResponse{AccessToken: token})
	}
}

func handleCheckPermission(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		clientIP := middleware.ClientIP(r, s.Config)

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		action := authz.Action(mux.Vars(r)["action"])

		allowed, err := s.Authz.Authorize(id.UserID, accountID, action)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "authorization check failed")
			return
		}

		audit.Log(audit.CheckEvent{
			UserID:    id.UserID,
			AccountID: accountID,
			ClientIP:  clientIP,
			Action:    string(action),
			Allowed:   allowed,
		})

		respondWithJSON(w, http.StatusOK, PermissionResponse{
			Action:  string(action),
			Allowed: allowed,
		})
	}
}

func toAccountResponse(a *store.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		ExternalID:  a.ExternalID,
		DisplayName: a.DisplayName,
	}
}

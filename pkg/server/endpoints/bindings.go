package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sellerlink/sellerlink/pkg/audit"
	"github.com/sellerlink/sellerlink/pkg/authz"
	"github.com/sellerlink/sellerlink/pkg/identity"
	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/middleware"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// GrantRequest is the body of POST /accounts/{account_id}/bindings
type GrantRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRoleRequest is the body of PUT /accounts/{account_id}/bindings/{user_id}
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// RegisterBindingsEndpoints registers the role binding management endpoints
func RegisterBindingsEndpoints(s *server.Server, session *middleware.SessionAuthenticator) {
	router := s.Router.PathPrefix("/accounts/{account_id}/bindings").Subrouter()
	router.Use(session.Middleware)

	router.HandleFunc("", handleListBindings(s)).Methods("GET")
	router.HandleFunc("", handleGrant(s)).Methods("POST")
	router.HandleFunc("/{user_id}", handleUpdateRole(s)).Methods("PUT")
	router.HandleFunc("/{user_id}", handleRevoke(s)).Methods("DELETE")
}

func parseRole(w http.ResponseWriter, name string) (model.Role, bool) {
	role, err := model.RoleString(name)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "unknown role: "+name)
		return 0, false
	}
	return role, true
}

func bindingAudit(id *identity.Identity, clientIP, operation string, subjectID, accountID uint, role model.Role, err error) audit.BindingEvent {
	event := audit.BindingEvent{
		ActorID:   id.UserID,
		SubjectID: subjectID,
		AccountID: accountID,
		ClientIP:  clientIP,
		Operation: operation,
		Success:   err == nil,
	}
	if operation != "revoke" {
		event.Role = role.String()
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	return event
}

func respondBindingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrInsufficientPrivilege):
		respondWithError(w, http.StatusForbidden, "insufficient privilege")
	case errors.Is(err, store.ErrDuplicateBinding):
		respondWithError(w, http.StatusConflict, "user already holds a role on this account")
	case errors.Is(err, store.ErrBindingNotFound):
		respondWithError(w, http.StatusNotFound, "role binding not found")
	default:
		respondWithError(w, http.StatusInternalServerError, "role binding operation failed")
	}
}

func handleListBindings(s *server.Server) http.HandlerFunc {
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

		bindings, err := s.Bindings.ListForAccount(accountID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to list bindings")
			return
		}

		respondWithJSON(w, http.StatusOK, toBindingResponses(bindings))
	}
}

func handleGrant(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		clientIP := middleware.ClientIP(r, s.Config)

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}

		var req GrantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
			respondWithError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		role, ok := parseRole(w, req.Role)
		if !ok {
			return
		}

		var binding *store.RoleBinding
		var err error
		if id.Superuser {
			// Directory superusers may seed bindings on accounts they hold
			// no role on themselves.
			binding, err = s.Bindings.Grant(req.UserID, accountID, role)
		} else {
			binding, err = s.Authz.Grant(id.UserID, req.UserID, accountID, role)
		}

		audit.Log(bindingAudit(id, clientIP, "grant", req.UserID, accountID, role, err))

		if err != nil {
			respondBindingError(w, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, BindingResponse{
			UserID:    binding.UserID,
			AccountID: binding.AccountID,
			Role:      binding.Role.String(),
		})
	}
}

func handleUpdateRole(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		clientIP := middleware.ClientIP(r, s.Config)

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		userID, ok := pathID(r, "user_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		var req UpdateRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		role, ok := parseRole(w, req.Role)
		if !ok {
			return
		}

		var err error
		if id.Superuser {
			err = s.Bindings.UpdateRole(userID, accountID, role)
		} else {
			err = s.Authz.UpdateRole(id.UserID, userID, accountID, role)
		}

		audit.Log(bindingAudit(id, clientIP, "update", userID, accountID, role, err))

		if err != nil {
			respondBindingError(w, err)
			return
		}

		respondWithJSON(w, http.StatusOK, BindingResponse{
			UserID:    userID,
			AccountID: accountID,
			Role:      role.String(),
		})
	}
}

func handleRevoke(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		clientIP := middleware.ClientIP(r, s.Config)

		accountID, ok := pathID(r, "account_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid account id")
			return
		}
		userID, ok := pathID(r, "user_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		var err error
		if id.Superuser {
			err = s.Bindings.Revoke(userID, accountID)
		} else {
			err = s.Authz.Revoke(id.UserID, userID, accountID)
		}

		audit.Log(bindingAudit(id, clientIP, "revoke", userID, accountID, 0, err))

		if err != nil {
			respondBindingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

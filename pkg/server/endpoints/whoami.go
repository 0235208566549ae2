package endpoints

import (
	"net/http"

	"github.com/sellerlink/sellerlink/pkg/identity"
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/middleware"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// WhoamiResponse represents the response from the /whoami endpoint
type WhoamiResponse struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Staff     bool   `json:"staff,omitempty"`
	Superuser bool   `json:"superuser,omitempty"`
	TokenIAT  int64  `json:"token_iat,omitempty"`
	TokenEXP  int64  `json:"token_exp,omitempty"`
}

// BindingResponse represents a role binding in API responses
type BindingResponse struct {
	UserID    uint   `json:"user_id"`
	AccountID uint   `json:"account_id"`
	Role      string `json:"role"`
}

// RegisterWhoamiEndpoint registers the /whoami endpoints
func RegisterWhoamiEndpoint(s *server.Server, session *middleware.SessionAuthenticator) {
	whoamiRouter := s.Router.PathPrefix("/whoami").Subrouter()
	whoamiRouter.Use(session.Middleware)

	whoamiRouter.HandleFunc("", handleWhoami()).Methods("GET")
	whoamiRouter.HandleFunc("/bindings", handleOwnBindings(s)).Methods("GET")
}

func handleWhoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}

		respondWithJSON(w, http.StatusOK, WhoamiResponse{
			UserID:    id.UserID,
			Email:     id.Email,
			Staff:     id.Staff,
			Superuser: id.Superuser,
			TokenIAT:  id.IssuedAt.Unix(),
			TokenEXP:  id.ExpiresAt.Unix(),
		})
	}
}

func handleOwnBindings(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}

		bindings, err := s.Bindings.ListForUser(id.UserID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to list bindings")
			return
		}

		respondWithJSON(w, http.StatusOK, toBindingResponses(bindings))
	}
}

func toBindingResponses(bindings []store.RoleBinding) []BindingResponse {
	out := make([]BindingResponse, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, BindingResponse{
			UserID:    b.UserID,
			AccountID: b.AccountID,
			Role:      b.Role.String(),
		})
	}
	return out
}

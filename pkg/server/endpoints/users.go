package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sellerlink/sellerlink/pkg/identity"
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/middleware"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsActive  bool   `json:"is_active"`
}

// RegisterUsersEndpoints registers the user directory endpoints
func RegisterUsersEndpoints(s *server.Server, session *middleware.SessionAuthenticator) {
	router := s.Router.PathPrefix("/users").Subrouter()
	router.Use(session.Middleware)

	router.HandleFunc("", handleCreateUser(s)).Methods("POST")
	router.HandleFunc("/{user_id}", handleGetUser(s)).Methods("GET")
}

func handleCreateUser(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		// Creating directory users is an operator action.
		if !id.Staff && !id.Superuser {
			respondWithError(w, http.StatusForbidden, "access denied")
			return
		}

		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		userID, err := s.Directory.CreateUser(req.Email, req.FirstName, req.LastName, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, userdir.ErrEmailRequired):
				respondWithError(w, http.StatusBadRequest, "the email field must be set")
			case errors.Is(err, userdir.ErrDuplicateEmail):
				respondWithError(w, http.StatusConflict, "email already registered")
			default:
				respondWithError(w, http.StatusInternalServerError, "failed to create user")
			}
			return
		}

		user, err := s.Directory.FindByID(userID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to fetch created user")
			return
		}

		respondWithJSON(w, http.StatusCreated, UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			IsActive:  user.IsActive,
		})
	}
}

func handleGetUser(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())

		userID, ok := pathID(r, "user_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "invalid user id")
			return
		}

		// Users may look up themselves; operators may look up anyone.
		if userID != id.UserID && !id.Staff && !id.Superuser {
			respondWithError(w, http.StatusForbidden, "access denied")
			return
		}

		user, err := s.Directory.FindByID(userID)
		if err != nil {
			if errors.Is(err, userdir.ErrUserNotFound) {
				respondWithError(w, http.StatusNotFound, "user not found")
				return
			}
			respondWithError(w, http.StatusInternalServerError, "failed to fetch user")
			return
		}

		respondWithJSON(w, http.StatusOK, UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			IsActive:  user.IsActive,
		})
	}
}

package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/sellerlink/sellerlink/pkg/audit"
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/middleware"
)

// LoginRequest is the body of POST /authn/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterAuthenticateEndpoint registers the login endpoint
func RegisterAuthenticateEndpoint(s *server.Server) {
	s.Router.HandleFunc("/authn/login", handleLogin(s)).Methods("POST")
}

func handleLogin(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := middleware.ClientIP(r, s.Config)

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			respondWithError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := s.Directory.Authenticate(req.Email, req.Password)
		if err != nil {
			audit.Log(audit.LoginEvent{
				Email:        req.Email,
				ClientIP:     clientIP,
				Success:      false,
				ErrorMessage: err.Error(),
			})
			respondWithError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		token, err := s.Issuer.Issue(user)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to issue session token")
			return
		}

		audit.Log(audit.LoginEvent{
			Email:    user.Email,
			ClientIP: clientIP,
			Success:  true,
		})

		respondWithJSON(w, http.StatusOK, LoginResponse{Token: token})
	}
}

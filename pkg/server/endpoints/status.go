package endpoints

import (
	"net/http"
	"os"

	"github.com/sellerlink/sellerlink/pkg/server"
)

// StatusResponse represents the response from GET /
type StatusResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthResponse represents the response from GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the status and health endpoints
// (no auth required)
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus()).Methods("GET")
	s.Router.HandleFunc("/health", handleHealth(s)).Methods("GET")
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("SELLERLINK_VERSION_DISPLAY")
		if version == "" {
			version = "0.1.0"
		}

		respondWithJSON(w, http.StatusOK, StatusResponse{
			Service: "sellerlink",
			Version: version,
		})
	}
}

func handleHealth(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Health.CheckConnectivity(); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "error",
				Error:  "database connectivity check failed",
			})
			return
		}

		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

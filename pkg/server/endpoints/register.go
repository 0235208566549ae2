package endpoints

import (
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/middleware"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	session := middleware.NewSessionAuthenticator(srv.Issuer, srv.Config)

	RegisterStatusEndpoints(srv)
	RegisterAuthenticateEndpoint(srv)
	RegisterWhoamiEndpoint(srv, session)
	RegisterAccountsEndpoints(srv, session)
	RegisterBindingsEndpoints(srv, session)
	RegisterUsersEndpoints(srv, session)
}

// Package server provides the administrative HTTP API.
//
// It uses gorilla/mux for routing and bearer session tokens for
// authentication. Endpoints are registered via the endpoints subpackage:
//
//	srv := server.NewServer(cfg, issuer, db, host, port)
//	srv.Directory = directory
//	srv.Accounts = accounts
//	// ... remaining stores ...
//	endpoints.RegisterAll(srv)
//	log.Fatal(srv.Start())
//
// # Endpoints
//
//   - POST /authn/login - exchange email/password for a session token
//   - GET /whoami - session introspection
//   - GET /health - database connectivity check
//   - /accounts... - account registry, credentials, tokens
//   - /accounts/{id}/bindings... - role binding management
//   - /users... - user directory administration
package server

package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/sellerlink/sellerlink/pkg/authz"
	"github.com/sellerlink/sellerlink/pkg/config"
	"github.com/sellerlink/sellerlink/pkg/identity"
	"github.com/sellerlink/sellerlink/pkg/model"
	"github.com/sellerlink/sellerlink/pkg/refresh"
	"github.com/sellerlink/sellerlink/pkg/store"
)

// UserDirectory is the slice of userdir.Directory the HTTP layer needs.
type UserDirectory interface {
	Authenticate(email, password string) (*model.User, error)
	FindByID(userID uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	CreateUser(email, firstName, lastName, password string) (uint, error)
}

// TokenRefresher hands out fresh access tokens per account.
type TokenRefresher interface {
	EnsureFresh(ctx context.Context, accountID uint) (string, error)
	State(accountID uint) (refresh.State, error)
}

type Server struct {
	Router *mux.Router
	DB     *gorm.DB
	Config *config.Config
	Issuer *identity.Issuer

	Directory   UserDirectory
	Accounts    store.AccountsStore
	Credentials store.CredentialsStore
	Bindings    store.RoleBindingsStore
	Health      store.HealthStore
	Authz       *authz.Engine
	Refresher   TokenRefresher

	srv *http.Server
}

func NewServer(
	cfg *config.Config,
	issuer *identity.Issuer,
	db *gorm.DB,
	host string,
	port string,
) *Server {

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	return &Server{
		Router: router,
		DB:     db,
		Config: cfg,
		Issuer: issuer,
		srv:    srv,
	}
}

func (s Server) Start() error {
	return s.srv.ListenAndServe()
}

// StartWithListener serves on an existing listener. Used by tests that need
// to know the bound port before the server accepts traffic.
func (s Server) StartWithListener(l net.Listener) error {
	return s.srv.Serve(l)
}

// Shutdown gracefully stops the server.
func (s Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

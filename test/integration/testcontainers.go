package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sellerlink/sellerlink/pkg/authz"
	"github.com/sellerlink/sellerlink/pkg/config"
	"github.com/sellerlink/sellerlink/pkg/crypt"
	"github.com/sellerlink/sellerlink/pkg/identity"
	"github.com/sellerlink/sellerlink/pkg/oauth"
	"github.com/sellerlink/sellerlink/pkg/refresh"
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/endpoints"
	gormstore "github.com/sellerlink/sellerlink/pkg/store/gorm"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

// TokenStub is a fake marketplace token endpoint. Tests program its next
// response; the refresh coordinator talks to it over real HTTP.
type TokenStub struct {
	Server *httptest.Server

	mu          sync.Mutex
	accessToken string
	status      int
	errorCode   string
	calls       int
}

// NewTokenStub starts a stub that answers the refresh_token grant.
func NewTokenStub() *TokenStub {
	stub := &TokenStub{accessToken: "stub-access-token", status: http.StatusOK}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		stub.calls++

		if stub.status != http.StatusOK {
			w.WriteHeader(stub.status)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             stub.errorCode,
				"error_description": "stubbed failure",
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":             stub.accessToken,
			"expires_in":               7200,
			"refresh_token":            "",
			"refresh_token_expires_in": 0,
			"token_type":               "User Access Token",
		})
	}))
	return stub
}

// Respond programs the next responses: a 200 with the given access token.
func (s *TokenStub) Respond(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.status = http.StatusOK
}

// Fail programs the stub to return an OAuth error.
func (s *TokenStub) Fail(status int, errorCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.errorCode = errorCode
}

// Calls reports how many exchanges the stub has served.
func (s *TokenStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Reset restores the stub to its initial state between scenarios.
func (s *TokenStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = "stub-access-token"
	s.status = http.StatusOK
	s.errorCode = ""
	s.calls = 0
}

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB
	RawDB       *sql.DB
	Container   testcontainers.Container
	ServerURL   string
	DatabaseURL string
	DataKey     []byte
	SessionKey  []byte
	Cipher      crypt.SymmetricCipher
	Directory   *userdir.Directory
	TokenStub   *TokenStub
	HTTPClient  *http.Client

	listener net.Listener
}

// NewTestContext starts a PostgreSQL testcontainer, migrates it, and runs
// the server in-process against it.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	// Start PostgreSQL container
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sellerlink_test"),
		tcpostgres.WithUsername("sellerlink"),
		tcpostgres.WithPassword("sellerlink"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	connStr := fmt.Sprintf("postgres://sellerlink:sellerlink@%s:%s/sellerlink_test?sslmode=disable", host, port.Port())

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	rawDB, err := db.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	if err := runMigrations(rawDB, migrationsDir); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dataKey := make([]byte, 32)
	sessionKey := make([]byte, 32)
	for i := range dataKey {
		dataKey[i] = byte(i)
		sessionKey[i] = byte(31 - i)
	}
	cipher, err := crypt.NewSymmetric(dataKey)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// Add cipher to DB context for credential decryption in assertions
	db = db.WithContext(crypt.NewContext(context.Background(), cipher))

	tokenStub := NewTokenStub()

	tc := &TestContext{
		DB:          db,
		RawDB:       rawDB,
		Container:   pgContainer,
		DatabaseURL: connStr,
		DataKey:     dataKey,
		SessionKey:  sessionKey,
		Cipher:      cipher,
		TokenStub:   tokenStub,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}

	if err := tc.startServer(); err != nil {
		tc.Close(ctx)
		return nil, err
	}

	return tc, nil
}

// startServer runs the server in-process on an ephemeral port.
func (tc *TestContext) startServer() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	tc.listener = listener
	tc.ServerURL = "http://" + listener.Addr().String()

	cfg := config.Get()
	issuer := identity.NewIssuer(tc.SessionKey, time.Hour)

	accounts := gormstore.NewAccountsStore(tc.DB)
	credentials := gormstore.NewCredentialsStore(tc.DB)
	bindings := gormstore.NewRoleBindingsStore(tc.DB)
	tc.Directory = userdir.NewDirectory(tc.DB)

	exchanger := oauth.NewEbayClient(tc.TokenStub.Server.URL, "test-client", "test-secret")
	coordinator := refresh.NewCoordinator(credentials, exchanger, refresh.Config{
		MaxAttempts:          2,
		RetryInitialInterval: 10 * time.Millisecond,
	})

	s := server.NewServer(cfg, issuer, tc.DB, "127.0.0.1", "0")
	s.Directory = tc.Directory
	s.Accounts = accounts
	s.Credentials = credentials
	s.Bindings = bindings
	s.Health = gormstore.NewHealthStore(tc.DB)
	s.Authz = authz.NewEngine(bindings)
	s.Refresher = coordinator
	endpoints.RegisterAll(s)

	go func() {
		_ = s.StartWithListener(listener)
	}()

	return waitForServer(tc.ServerURL, 10*time.Second)
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.listener != nil {
		_ = tc.listener.Close()
	}
	if tc.TokenStub != nil {
		tc.TokenStub.Server.Close()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	paths := []string{
		"../..",
		"..",
		".",
	}

	for _, p := range paths {
		goMod := filepath.Join(p, "go.mod")
		if _, err := os.Stat(goMod); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations executes the up migration files in order
func runMigrations(db *sql.DB, migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			log.Printf("Migration %s: %v", filepath.Base(file), err)
			return err
		}
	}

	return nil
}

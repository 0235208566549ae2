package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sellerlink/sellerlink/pkg/authz"
	"github.com/sellerlink/sellerlink/pkg/config"
	"github.com/sellerlink/sellerlink/pkg/crypt"
	"github.com/sellerlink/sellerlink/pkg/db"
	"github.com/sellerlink/sellerlink/pkg/identity"
	"github.com/sellerlink/sellerlink/pkg/oauth"
	"github.com/sellerlink/sellerlink/pkg/refresh"
	"github.com/sellerlink/sellerlink/pkg/server"
	"github.com/sellerlink/sellerlink/pkg/server/endpoints"
	gormstore "github.com/sellerlink/sellerlink/pkg/store/gorm"
	"github.com/sellerlink/sellerlink/pkg/userdir"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the SellerLink application server",
	Long: `Run the SellerLink application server.

To run the server requires the environment variables SELLERLINK_DATA_KEY,
SELLERLINK_SESSION_KEY and DATABASE_URL.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Validate required environment variables first (fail fast)
		dataKeyB64, ok := os.LookupEnv("SELLERLINK_DATA_KEY")
		if !ok {
			fmt.Fprintln(os.Stderr, "SELLERLINK_DATA_KEY environment variable is required")
			os.Exit(1)
		}

		sessionKeyB64, ok := os.LookupEnv("SELLERLINK_SESSION_KEY")
		if !ok {
			fmt.Fprintln(os.Stderr, "SELLERLINK_SESSION_KEY environment variable is required")
			os.Exit(1)
		}

		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		// Run migrations unless --no-migrate is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		dataKey, err := base64.StdEncoding.DecodeString(dataKeyB64)
		if err != nil {
			fmt.Println("Bad SELLERLINK_DATA_KEY:", err)
			os.Exit(1)
		}

		sessionKey, err := base64.StdEncoding.DecodeString(sessionKeyB64)
		if err != nil {
			fmt.Println("Bad SELLERLINK_SESSION_KEY:", err)
			os.Exit(1)
		}

		cipher, err := crypt.NewSymmetric(dataKey)
		if err != nil {
			fmt.Println("Unable to initiate cipher:", err)
			os.Exit(1)
		}

		database, err := db.Connect(db.Config{Cipher: cipher})
		if err != nil {
			fmt.Println("Unable to connect to DB:", err)
			os.Exit(1)
		}

		cfg := config.Get()
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		issuer := identity.NewIssuer(sessionKey, time.Duration(cfg.SessionTokenTTL)*time.Second)

		accounts := gormstore.NewAccountsStore(database)
		credentials := gormstore.NewCredentialsStore(database)
		bindings := gormstore.NewRoleBindingsStore(database)
		health := gormstore.NewHealthStore(database)
		directory := userdir.NewDirectory(database)

		exchanger := oauth.NewEbayClient(
			cfg.EbayTokenURL,
			cfg.EbayClientID,
			os.Getenv("SELLERLINK_EBAY_CLIENT_SECRET"),
		)
		coordinator := refresh.NewCoordinator(credentials, exchanger, refresh.Config{
			LeadWindow:     time.Duration(cfg.RefreshLeadWindow) * time.Second,
			MaxAttempts:    uint64(cfg.RefreshMaxAttempts),
			AttemptTimeout: time.Duration(cfg.RefreshAttemptTimeout) * time.Second,
		})
		coordinator.OnTerminalFailure = func(accountID uint, err error) {
			log.Printf("account %d requires re-authorization: %v", accountID, err)
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(cfg, issuer, database, host, port)
		s.Directory = directory
		s.Accounts = accounts
		s.Credentials = credentials
		s.Bindings = bindings
		s.Health = health
		s.Authz = authz.NewEngine(bindings)
		s.Refresher = coordinator

		endpoints.RegisterAll(s)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("Running server at http://%s:%s...\n", host, port)
			errCh <- s.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case err := <-errCh:
				log.Fatal(err)
			case sig := <-sigCh:
				if sig == syscall.SIGHUP {
					log.Println("Reloading configuration...")
					if err := config.Reload(); err != nil {
						log.Printf("Configuration reload failed: %v", err)
					}
					continue
				}
				log.Println("Shutting down...")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := s.Shutdown(ctx); err != nil {
					log.Printf("Shutdown error: %v", err)
				}
				return
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

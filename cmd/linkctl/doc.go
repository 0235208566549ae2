// Package main implements linkctl, the SellerLink control CLI.
//
// SellerLink is the identity and access boundary between internal listing
// tools and seller-owned eBay accounts. It stores each account's OAuth
// credential encrypted at rest, keeps access tokens fresh, and resolves
// per-account role bindings into capability decisions.
//
// # Architecture
//
// The server is organized into several packages:
//
//   - pkg/server: HTTP server and routing
//   - pkg/server/endpoints: REST API endpoint handlers
//   - pkg/crypt: Cryptographic operations (credential encryption at rest)
//   - pkg/refresh: Token refresh coordination
//   - pkg/oauth: Marketplace OAuth token exchange
//   - pkg/authz: Role capability resolution
//   - pkg/userdir: Internal user directory
//   - pkg/store: Account, credential and role binding persistence
//   - pkg/model: Database models
//   - pkg/db: Database connection utilities
//   - pkg/audit: Audit logging
//   - pkg/config: Configuration management
//   - pkg/seed: Declarative user/account/binding seeding
//
// # Quick Start
//
// The server is run via the linkctl CLI:
//
//	# Generate a data key for credential encryption
//	linkctl data-key generate > data_key
//	export SELLERLINK_DATA_KEY=$(cat data_key)
//
//	# Run database migrations
//	linkctl db migrate
//
//	# Create an operator user
//	linkctl user create --superuser admin@example.com
//
//	# Start the server
//	linkctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - SELLERLINK_DATA_KEY: Base64-encoded 256-bit key for credential encryption
//   - SELLERLINK_SESSION_KEY: Base64-encoded key for session token signing
//   - SELLERLINK_EBAY_CLIENT_SECRET: Marketplace OAuth client secret
//   - SELLERLINK_LOG_LEVEL: Log level (debug, info, warn, error)
//   - PORT: Server port (default: 8000)
package main

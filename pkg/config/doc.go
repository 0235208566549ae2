// Package config provides configuration management for the service.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Each attribute remembers its source (default, file or
// environment) so operators can inspect effective settings.
//
// # Configuration Sources
//
//   - /etc/sellerlink/config/sellerlink.yml (path override via SELLERLINK_CONFIG_PATH)
//   - SELLERLINK_* environment variables (take precedence)
//
// # Related Environment Variables
//
//   - SELLERLINK_DATA_KEY: Encryption key for credentials at rest
//   - SELLERLINK_SESSION_KEY: Session token signing key
//   - SELLERLINK_EBAY_CLIENT_SECRET: OAuth client secret (never stored in files)
//   - DATABASE_URL: Database connection
//   - PORT: Server listen port
package config

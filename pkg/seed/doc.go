// Package seed loads declarative YAML manifests of users, marketplace
// accounts and role bindings into the database. Seeding is idempotent:
// records that already exist are skipped, so a manifest can be applied
// repeatedly or watched for changes.
package seed

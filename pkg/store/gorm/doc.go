// Package gorm provides GORM-backed implementations of the store
// interfaces. Uniqueness invariants (external_id, (user_id, account_id))
// are enforced with database constraints and ON CONFLICT inserts rather
// than application pre-checks.
package gorm

// Package model defines the database models for sellerlink.
//
// This package contains GORM models mapping to the PostgreSQL schema.
//
// # Core Models
//
//   - Account: linked external eBay seller accounts
//   - Credential: encrypted OAuth access/refresh token pairs, one per Account
//   - User: internal identities keyed by email
//   - RoleBinding: the (user, account, role) authorization edge
//   - Role: the closed enumeration of access levels
//
// Credential token fields are encrypted with the service data key before
// they reach the database and decrypted on read through GORM hooks; the
// cipher travels in the connection's context.
//
// # Database Schema
//
// Key tables:
//
//   - accounts: external account identities (unique external_id)
//   - credentials: encrypted token material, cascade-deleted with accounts
//   - users: identity records (unique email)
//   - role_bindings: unique (user_id, account_id), cascade-deleted with
//     either side
package model

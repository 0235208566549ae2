// Package crypt implements the encryption-at-rest boundary for OAuth token
// material.
//
// Tokens are sealed with AES-256-GCM under a single service-wide data key
// supplied through the environment (SELLERLINK_DATA_KEY). The key is never
// persisted alongside ciphertext. Every encryption binds additional
// authenticated data derived from the owning record, so ciphertext moved
// between rows fails to decrypt.
//
// The packed blob format is:
//
//	magic (1) | GCM tag (16) | IV (12) | ciphertext
package crypt

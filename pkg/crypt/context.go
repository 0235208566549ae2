package crypt

import "context"

type contextKey string

// CipherContextKey is the context key under which the data-key cipher rides
// alongside database sessions.
const CipherContextKey contextKey = "cipher"

// NewContext returns a context carrying the cipher.
func NewContext(ctx context.Context, cipher SymmetricCipher) context.Context {
	return context.WithValue(ctx, CipherContextKey, cipher)
}

// FromContext retrieves the cipher from a context, if present.
func FromContext(ctx context.Context) (SymmetricCipher, bool) {
	cipher, ok := ctx.Value(CipherContextKey).(SymmetricCipher)
	return cipher, ok
}

// Package oauth is the boundary to the external OAuth provider. It consumes
// the refresh exchange only; the authorization-code/consent flow happens
// outside this system and hands its resulting token pair to the vault.
//
// Provider failures are split into two classes the refresh coordinator
// treats differently: ErrTokenExpiredOrRevoked is terminal and requires a
// fresh consent flow, TransientError is retryable.
package oauth

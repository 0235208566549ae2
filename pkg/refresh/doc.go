// Package refresh drives the credential lifecycle: Valid, NearExpiry,
// Expired, Refreshing and back to Valid, or RefreshFailed when the refresh
// token itself is dead and only a new consent flow recovers.
//
// EnsureFresh is safe to call from any request path. Per-account
// collapse-to-one-flight guarantees a single provider exchange no matter how
// many callers race; transient provider failures are retried with bounded
// exponential backoff, terminal ones never are.
package refresh

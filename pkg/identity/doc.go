// Package identity provides authenticated identity management for requests.
//
// An Identity combines session token claims (user ID, email, staff and
// superuser flags) with request-specific context such as the client IP.
// The Issuer mints and verifies the HMAC-signed session tokens the HTTP
// layer hands out on login.
//
//	issuer := identity.NewIssuer(key, 8*time.Hour)
//	token, _ := issuer.Issue(user)
//
//	id, err := issuer.Parse(token)
//	ctx = identity.Set(ctx, id)
//	id, ok := identity.Get(ctx)
package identity

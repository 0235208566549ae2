// Package store defines the storage interfaces for the account registry,
// the credential vault and the role binding store, together with the
// sentinel errors their operations surface.
//
// Implementations live in subpackages (see store/gorm). Callers depend on
// the interfaces here so tests can substitute fakes.
package store

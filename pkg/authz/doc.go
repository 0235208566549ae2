// Package authz resolves access-control decisions over role bindings.
//
// A fixed table maps each role to the actions it permits. Binding mutations
// (grant, update, revoke) are mediated here so the escalation rule that no
// actor may hand out or remove a role outranking their own is enforced in
// one place. The acting user is always an explicit argument.
package authz

package model

//go:generate go run github.com/dmarkham/enumer -type Role -trimprefix Role -sql -output role.gen.go

// Role is the closed set of per-account access levels. A user holds at most
// one Role per linked account.
type Role int

const (
	RoleDrafter Role = iota
	RoleCreator
	RoleReviewer
	RoleAdmin
	RoleSuperAdmin
)

// Rank orders roles for escalation checks. Reviewer, Creator and Drafter are
// siblings: none outranks another, but all sit strictly below Admin and
// SuperAdmin for administrative actions.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	default:
		return 1
	}
}

// Administrative reports whether the role may perform administrative actions
// (managing role bindings and credentials).
func (r Role) Administrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

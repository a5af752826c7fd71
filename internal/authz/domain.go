// Package authz evaluates access-control decisions. It combines the
// permission registry with the configured grant sources and answers
// allow/deny; it never mutates state of its own.
package authz

// PrincipalKind distinguishes the two principal flavours.
type PrincipalKind string

const (
	// PrincipalUser is an individual user account.
	PrincipalUser PrincipalKind = "user"
	// PrincipalTeam is a team acting as a principal.
	PrincipalTeam PrincipalKind = "team"
)

// Principal is the resolved identity a check runs against. It is handed in
// by the identity layer; the evaluator never parses tokens or sessions.
type Principal struct {
	ID      string
	Kind    PrincipalKind
	IsRoot  bool
	RoleIDs []string
	TeamIDs []string
}

// Resource scopes a check to one specific resource instance. A nil resource
// means only role and team sourced grants are considered.
type Resource struct {
	ID   string
	Type string
}

package authz

import "context"

// GrantSource supplies raw granted permission IDs for a principal. Role
// grants, team capability grants and resource grants each implement this
// interface so the closure algorithm stays source-agnostic and new sources
// can be added without touching the checker.
type GrantSource interface {
	// Name identifies the source in logs and cache keys.
	Name() string
	// Grants returns the raw permission IDs the source holds for the
	// principal. Sources that are not resource-scoped ignore res.
	Grants(ctx context.Context, p Principal, res *Resource) ([]string, error)
}

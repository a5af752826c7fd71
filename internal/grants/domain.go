// Package grants owns the two mutable grant stores: additive team
// capability grants and time-bounded resource-scoped grants. All writes go
// through the Service, which enforces that an actor can never grant a
// permission it does not itself hold.
package grants

import (
	"errors"
	"time"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
)

var (
	// ErrInsufficientScope indicates the actor tried to grant or revoke a
	// permission beyond its own effective permissions.
	ErrInsufficientScope = errors.New("grants: actor does not hold the requested permission")
	// ErrNotFound indicates the grant does not exist.
	ErrNotFound = errors.New("grants: grant not found")
	// ErrUnknownPermission indicates a grant referenced an unregistered
	// permission ID.
	ErrUnknownPermission = errors.New("grants: unknown permission id")
)

// TeamCapabilityGrant is an additive, non-expiring permission attached to
// a team, independent of its assigned roles. Global in scope.
type TeamCapabilityGrant struct {
	ID           string
	TeamID       string
	PermissionID string
	GrantedBy    string
	CreatedAt    time.Time
}

// ResourceGrant scopes a set of permissions to one resource instance for
// one principal. A single row holds the merged scope set for the
// (resource, principal) pair. Expiry is evaluated lazily at read time; an
// expired grant is treated as absent, never as an error.
type ResourceGrant struct {
	ID            string
	ResourceID    string
	ResourceType  string
	PrincipalType authz.PrincipalKind
	PrincipalID   string
	PermissionIDs []string
	ExpiresAt     *time.Time
	GrantedBy     string
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active reports whether the grant applies at the given instant. A grant
// expiring exactly now is already expired.
func (g ResourceGrant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// PrincipalRef identifies the grantee of a resource grant.
type PrincipalRef struct {
	Type authz.PrincipalKind
	ID   string
}

package identity

import (
	"context"
	"fmt"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
)

// Directory abstracts the lookups needed to build a principal.
type Directory interface {
	UserByID(ctx context.Context, id string) (User, error)
	TeamIDsForUser(ctx context.Context, userID string) ([]string, error)
	RoleIDsForUser(ctx context.Context, userID string) ([]string, error)
	RoleIDsForTeam(ctx context.Context, teamID string) ([]string, error)
}

// Resolver builds checker principals from stored users and teams.
type Resolver struct {
	dir Directory
}

// NewResolver constructs a Resolver instance.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Principal resolves a user ID into a principal carrying the user's team
// memberships and role assignments. Inactive users resolve to an error so
// stale sessions cannot act.
func (r *Resolver) Principal(ctx context.Context, userID string) (authz.Principal, error) {
	user, err := r.dir.UserByID(ctx, userID)
	if err != nil {
		return authz.Principal{}, err
	}
	if !user.IsActive {
		return authz.Principal{}, fmt.Errorf("identity: user %s is inactive: %w", userID, ErrNotFound)
	}
	teamIDs, err := r.dir.TeamIDsForUser(ctx, userID)
	if err != nil {
		return authz.Principal{}, err
	}
	roleIDs, err := r.dir.RoleIDsForUser(ctx, userID)
	if err != nil {
		return authz.Principal{}, err
	}
	return authz.Principal{
		ID:      user.ID,
		Kind:    authz.PrincipalUser,
		IsRoot:  user.IsRoot,
		RoleIDs: roleIDs,
		TeamIDs: teamIDs,
	}, nil
}

// TeamPrincipal resolves a team ID into a principal. Used when evaluating
// what a team as a whole can do, for example in admin tooling.
func (r *Resolver) TeamPrincipal(ctx context.Context, teamID string) (authz.Principal, error) {
	roleIDs, err := r.dir.RoleIDsForTeam(ctx, teamID)
	if err != nil {
		return authz.Principal{}, err
	}
	return authz.Principal{
		ID:      teamID,
		Kind:    authz.PrincipalTeam,
		RoleIDs: roleIDs,
	}, nil
}

package grants

import (
	"context"
	"time"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
)

// TeamCapabilitySource exposes team capability grants to the checker.
type TeamCapabilitySource struct {
	store Store
}

// NewTeamCapabilitySource constructs the source.
func NewTeamCapabilitySource(store Store) *TeamCapabilitySource {
	return &TeamCapabilitySource{store: store}
}

// Name implements authz.GrantSource.
func (s *TeamCapabilitySource) Name() string { return "team_capabilities" }

// Grants implements authz.GrantSource. For a user principal it unions the
// capabilities of every team the user belongs to; a team principal reads
// its own capabilities.
func (s *TeamCapabilitySource) Grants(ctx context.Context, p authz.Principal, _ *authz.Resource) ([]string, error) {
	teamIDs := p.TeamIDs
	if p.Kind == authz.PrincipalTeam {
		teamIDs = []string{p.ID}
	}
	grants, err := s.store.ListTeamCapabilities(ctx, teamIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.PermissionID)
	}
	return ids, nil
}

// ResourceGrantSource exposes resource-scoped grants to the checker.
// It contributes nothing when the check carries no resource, and it
// evaluates expiry at the instant of the call.
type ResourceGrantSource struct {
	store Store
	now   func() time.Time
}

// NewResourceGrantSource constructs the source.
func NewResourceGrantSource(store Store) *ResourceGrantSource {
	return &ResourceGrantSource{store: store, now: time.Now}
}

// Name implements authz.GrantSource.
func (s *ResourceGrantSource) Name() string { return "resource_grants" }

// Grants implements authz.GrantSource.
func (s *ResourceGrantSource) Grants(ctx context.Context, p authz.Principal, res *authz.Resource) ([]string, error) {
	if res == nil {
		return nil, nil
	}
	userID := p.ID
	teamIDs := p.TeamIDs
	if p.Kind == authz.PrincipalTeam {
		userID = ""
		teamIDs = []string{p.ID}
	}
	grants, err := s.store.ListForResource(ctx, res.ID, userID, teamIDs)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var ids []string
	for _, g := range grants {
		if !g.Active(now) {
			continue
		}
		ids = append(ids, g.PermissionIDs...)
	}
	return ids, nil
}

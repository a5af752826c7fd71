package roles

import (
	"context"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
)

// GrantSource exposes role-derived raw permission IDs to the checker.
// It is resource-agnostic, so it is safe to wrap in the versioned cache.
type GrantSource struct {
	store Store
}

// NewGrantSource constructs a GrantSource instance.
func NewGrantSource(store Store) *GrantSource {
	return &GrantSource{store: store}
}

// Name identifies this source in cache keys and logs.
func (s *GrantSource) Name() string { return "roles" }

// Grants returns the union of permission IDs across the principal's roles.
func (s *GrantSource) Grants(ctx context.Context, p authz.Principal, _ *authz.Resource) ([]string, error) {
	if len(p.RoleIDs) == 0 {
		return nil, nil
	}
	return s.store.PermissionsForRoles(ctx, p.RoleIDs)
}

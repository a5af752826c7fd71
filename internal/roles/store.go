package roles

import "context"

// Store abstracts role persistence.
type Store interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	CreateRole(ctx context.Context, role Role) error
	UpdateRole(ctx context.Context, role Role) error
	DeleteRole(ctx context.Context, id string) (int64, error)
	ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	PermissionsForRoles(ctx context.Context, roleIDs []string) ([]string, error)
	AssignToUser(ctx context.Context, userID, roleID string) error
	RemoveFromUser(ctx context.Context, userID, roleID string) error
	AssignToTeam(ctx context.Context, teamID, roleID string) error
	RemoveFromTeam(ctx context.Context, teamID, roleID string) error
}

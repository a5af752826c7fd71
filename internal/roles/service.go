package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
)

// CacheBumper invalidates cached grant sets after a role mutation.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service orchestrates role management.
type Service struct {
	store    Store
	registry *permissions.Registry
	cache    CacheBumper
	logger   *slog.Logger
}

// NewService constructs a Service instance.
func NewService(store Store, registry *permissions.Registry, cache CacheBumper, logger *slog.Logger) *Service {
	return &Service{store: store, registry: registry, cache: cache, logger: logger}
}

// List returns all roles ordered by name.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id string) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// Create inserts a new role with an empty permission set.
func (s *Service) Create(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("roles: name required")
	}
	now := time.Now().UTC()
	role := Role{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   strings.TrimSpace(description),
		PermissionIDs: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateRole(ctx, role); err != nil {
		return Role{}, err
	}
	return role, nil
}

// Update renames a role. System roles cannot be updated.
func (s *Service) Update(ctx context.Context, id, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("roles: name required")
	}
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if role.IsSystem {
		return Role{}, ErrSystemRole
	}
	role.Name = name
	role.Description = strings.TrimSpace(description)
	role.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateRole(ctx, role); err != nil {
		return Role{}, err
	}
	return role, nil
}

// Delete removes a role. System roles cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	rows, err := s.store.DeleteRole(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	s.bump(ctx)
	return nil
}

// SetPermissions replaces a role's permission set. Every ID must exist in
// the registry; the set is stored raw and dependency closure is left to the
// checker.
func (s *Service) SetPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	seen := make(map[string]struct{}, len(permissionIDs))
	deduped := make([]string, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, ok := s.registry.Get(id); !ok {
			return fmt.Errorf("%w: %s", permissions.ErrUnknownPermission, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	if err := s.store.ReplaceRolePermissions(ctx, roleID, deduped); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// AssignToUser attaches a role to a user.
func (s *Service) AssignToUser(ctx context.Context, userID, roleID string) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.AssignToUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// RemoveFromUser detaches a role from a user.
func (s *Service) RemoveFromUser(ctx context.Context, userID, roleID string) error {
	if err := s.store.RemoveFromUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// AssignToTeam attaches a role to a team.
func (s *Service) AssignToTeam(ctx context.Context, teamID, roleID string) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.store.AssignToTeam(ctx, teamID, roleID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// RemoveFromTeam detaches a role from a team.
func (s *Service) RemoveFromTeam(ctx context.Context, teamID, roleID string) error {
	if err := s.store.RemoveFromTeam(ctx, teamID, roleID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("bump grant cache", slog.Any("error", err))
	}
}

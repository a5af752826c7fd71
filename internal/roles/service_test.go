package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
)

type mockStore struct {
	roles     map[string]Role
	userRoles map[string][]string // userID -> role IDs
	teamRoles map[string][]string
	bumps     int
}

func newMockStore() *mockStore {
	return &mockStore{
		roles:     make(map[string]Role),
		userRoles: make(map[string][]string),
		teamRoles: make(map[string][]string),
	}
}

func (m *mockStore) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) GetRole(ctx context.Context, id string) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (m *mockStore) CreateRole(ctx context.Context, role Role) error {
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return ErrDuplicateName
		}
	}
	m.roles[role.ID] = role
	return nil
}

func (m *mockStore) UpdateRole(ctx context.Context, role Role) error {
	existing, ok := m.roles[role.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = role.Name
	existing.Description = role.Description
	existing.UpdatedAt = role.UpdatedAt
	m.roles[role.ID] = existing
	return nil
}

func (m *mockStore) DeleteRole(ctx context.Context, id string) (int64, error) {
	if _, ok := m.roles[id]; !ok {
		return 0, nil
	}
	delete(m.roles, id)
	return 1, nil
}

func (m *mockStore) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	r, ok := m.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	r.PermissionIDs = permissionIDs
	m.roles[roleID] = r
	return nil
}

func (m *mockStore) PermissionsForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range roleIDs {
		r, ok := m.roles[id]
		if !ok {
			continue
		}
		for _, p := range r.PermissionIDs {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockStore) AssignToUser(ctx context.Context, userID, roleID string) error {
	m.userRoles[userID] = append(m.userRoles[userID], roleID)
	return nil
}

func (m *mockStore) RemoveFromUser(ctx context.Context, userID, roleID string) error {
	var kept []string
	for _, id := range m.userRoles[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.userRoles[userID] = kept
	return nil
}

func (m *mockStore) AssignToTeam(ctx context.Context, teamID, roleID string) error {
	m.teamRoles[teamID] = append(m.teamRoles[teamID], roleID)
	return nil
}

func (m *mockStore) RemoveFromTeam(ctx context.Context, teamID, roleID string) error {
	var kept []string
	for _, id := range m.teamRoles[teamID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.teamRoles[teamID] = kept
	return nil
}

type countingBumper struct{ n int }

func (b *countingBumper) Bump(ctx context.Context) error {
	b.n++
	return nil
}

func newTestService(t *testing.T) (*Service, *mockStore, *countingBumper) {
	t.Helper()
	registry := permissions.NewRegistry()
	require.NoError(t, permissions.RegisterCore(registry))
	require.NoError(t, registry.Validate())
	store := newMockStore()
	bumper := &countingBumper{}
	return NewService(store, registry, bumper, nil), store, bumper
}

func TestCreateAndUpdateRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "  Operator ", "day to day access")
	require.NoError(t, err)
	assert.Equal(t, "Operator", role.Name)
	assert.NotEmpty(t, role.ID)

	_, err = svc.Create(ctx, "Operator", "")
	require.ErrorIs(t, err, ErrDuplicateName)

	updated, err := svc.Update(ctx, role.ID, "Senior Operator", "")
	require.NoError(t, err)
	assert.Equal(t, "Senior Operator", updated.Name)

	_, err = svc.Update(ctx, "missing", "x", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSystemRoleIsImmutable(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.roles["sys"] = Role{ID: "sys", Name: "Administrator", IsSystem: true}

	_, err := svc.Update(ctx, "sys", "Renamed", "")
	require.ErrorIs(t, err, ErrSystemRole)
	require.ErrorIs(t, svc.Delete(ctx, "sys"), ErrSystemRole)
	require.ErrorIs(t, svc.SetPermissions(ctx, "sys", []string{"user.view"}), ErrSystemRole)
}

func TestSetPermissionsValidatesAgainstRegistry(t *testing.T) {
	svc, store, bumper := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Operator", "")
	require.NoError(t, err)

	err = svc.SetPermissions(ctx, role.ID, []string{"user.view", "definitely.not.registered"})
	require.ErrorIs(t, err, permissions.ErrUnknownPermission)
	assert.Empty(t, store.roles[role.ID].PermissionIDs)

	// Raw IDs are stored as given, minus duplicates. Dependency closure is
	// the checker's job, so user.delete without user.view is accepted here.
	require.NoError(t, svc.SetPermissions(ctx, role.ID, []string{"user.delete", "user.delete"}))
	assert.Equal(t, []string{"user.delete"}, store.roles[role.ID].PermissionIDs)
	assert.Equal(t, 1, bumper.n)
}

func TestAssignmentsBumpCache(t *testing.T) {
	svc, store, bumper := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, "Operator", "")
	require.NoError(t, err)

	require.NoError(t, svc.AssignToUser(ctx, "u1", role.ID))
	require.NoError(t, svc.AssignToTeam(ctx, "t1", role.ID))
	assert.Equal(t, []string{role.ID}, store.userRoles["u1"])
	assert.Equal(t, []string{role.ID}, store.teamRoles["t1"])
	assert.Equal(t, 2, bumper.n)

	require.ErrorIs(t, svc.AssignToUser(ctx, "u1", "missing"), ErrNotFound)

	require.NoError(t, svc.RemoveFromUser(ctx, "u1", role.ID))
	assert.Empty(t, store.userRoles["u1"])
	assert.Equal(t, 3, bumper.n)
}

func TestGrantSourceUnionsRoles(t *testing.T) {
	store := newMockStore()
	store.roles["r1"] = Role{ID: "r1", PermissionIDs: []string{"user.view", "user.create"}}
	store.roles["r2"] = Role{ID: "r2", PermissionIDs: []string{"user.view", "audit.view"}}

	src := NewGrantSource(store)
	ids, err := src.Grants(context.Background(), authz.Principal{ID: "u1", Kind: authz.PrincipalUser, RoleIDs: []string{"r1", "r2"}}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user.view", "user.create", "audit.view"}, ids)

	ids, err = src.Grants(context.Background(), authz.Principal{ID: "u2", Kind: authz.PrincipalUser}, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

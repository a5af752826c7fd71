package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
)

type stubSource struct {
	name    string
	grants  map[string][]string // principal ID -> permission IDs
	scoped  map[string][]string // resource ID -> permission IDs, nil res returns nothing
	err     error
	lastRes *Resource
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Grants(ctx context.Context, p Principal, res *Resource) ([]string, error) {
	s.lastRes = res
	if s.err != nil {
		return nil, s.err
	}
	if s.scoped != nil {
		if res == nil {
			return nil, nil
		}
		return s.scoped[res.ID], nil
	}
	return s.grants[p.ID], nil
}

func testRegistry(t *testing.T) *permissions.Registry {
	t.Helper()
	r := permissions.NewRegistry()
	require.NoError(t, permissions.RegisterCore(r))
	require.NoError(t, permissions.RegisterProtocols(r))
	require.NoError(t, r.Validate())
	return r
}

func TestCheckRootBypass(t *testing.T) {
	checker := NewChecker(testRegistry(t), nil)
	root := Principal{ID: "u1", Kind: PrincipalUser, IsRoot: true}

	ok, err := checker.Check(context.Background(), root, "user.delete", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Root short-circuits before the registry lookup.
	ok, err = checker.Check(context.Background(), root, "does.not.exist", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckUnknownPermissionDenied(t *testing.T) {
	src := &stubSource{name: "roles", grants: map[string][]string{"u1": {"user.view"}}}
	checker := NewChecker(testRegistry(t), nil, src)

	ok, err := checker.Check(context.Background(), Principal{ID: "u1", Kind: PrincipalUser}, "no.such.permission", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckRequiresFullDependencyChain(t *testing.T) {
	// user.delete depends on user.view and user.edit; user.edit depends on
	// user.view. Holding user.delete alone is not enough.
	src := &stubSource{name: "roles", grants: map[string][]string{"u1": {"user.delete"}}}
	checker := NewChecker(testRegistry(t), nil, src)
	p := Principal{ID: "u1", Kind: PrincipalUser}

	ok, err := checker.Check(context.Background(), p, "user.delete", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	src.grants["u1"] = []string{"user.view", "user.edit", "user.delete"}
	ok, err = checker.Check(context.Background(), p, "user.delete", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckUnionsAllSources(t *testing.T) {
	// The prerequisite chain may be satisfied across different sources.
	roleSrc := &stubSource{name: "roles", grants: map[string][]string{"u1": {"user.delete"}}}
	capSrc := &stubSource{name: "team_capabilities", grants: map[string][]string{"u1": {"user.view", "user.edit"}}}
	checker := NewChecker(testRegistry(t), nil, roleSrc, capSrc)

	ok, err := checker.Check(context.Background(), Principal{ID: "u1", Kind: PrincipalUser}, "user.delete", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckResourceScopedGrants(t *testing.T) {
	roleSrc := &stubSource{name: "roles", grants: map[string][]string{
		"u1": {"connection.view", "connection.launch", "protocol:ssh.connect"},
	}}
	resSrc := &stubSource{name: "resource_grants", scoped: map[string][]string{
		"conn-1": {"protocol:ssh.port_forward"},
	}}
	checker := NewChecker(testRegistry(t), nil, roleSrc, resSrc)
	p := Principal{ID: "u1", Kind: PrincipalUser}

	// Without the resource argument the resource grant stays invisible.
	ok, err := checker.Check(context.Background(), p, "protocol:ssh.port_forward", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checker.Check(context.Background(), p, "protocol:ssh.port_forward", &Resource{ID: "conn-1", Type: "connection"})
	require.NoError(t, err)
	assert.True(t, ok)

	// A different resource does not unlock the grant.
	ok, err = checker.Check(context.Background(), p, "protocol:ssh.port_forward", &Resource{ID: "conn-2", Type: "connection"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckSourceErrorPropagates(t *testing.T) {
	src := &stubSource{name: "roles", err: errors.New("store down")}
	checker := NewChecker(testRegistry(t), nil, src)

	_, err := checker.Check(context.Background(), Principal{ID: "u1", Kind: PrincipalUser}, "user.view", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roles")
}

func TestEffectivePermissionsFiltersUnsatisfied(t *testing.T) {
	src := &stubSource{name: "roles", grants: map[string][]string{
		"u1": {"user.view", "user.edit", "user.delete", "vault.share", "stale.permission"},
	}}
	checker := NewChecker(testRegistry(t), nil, src)

	effective, err := checker.EffectivePermissions(context.Background(), Principal{ID: "u1", Kind: PrincipalUser})
	require.NoError(t, err)
	// vault.share lacks vault.view and vault.edit; stale.permission is not
	// registered; the user.* chain is complete.
	assert.Equal(t, []string{"user.delete", "user.edit", "user.view"}, effective)
}

func TestEffectivePermissionsRootGetsCatalogue(t *testing.T) {
	registry := testRegistry(t)
	checker := NewChecker(registry, nil)

	effective, err := checker.EffectivePermissions(context.Background(), Principal{ID: "u1", IsRoot: true})
	require.NoError(t, err)
	assert.Equal(t, registry.IDs(), effective)
}

func TestRoleScenario(t *testing.T) {
	// Role R1 grants only user.delete: check fails. Role R2 grants the
	// whole chain: check passes.
	registry := testRegistry(t)
	ctx := context.Background()

	r1 := &stubSource{name: "roles", grants: map[string][]string{"u1": {"user.delete"}}}
	ok, err := NewChecker(registry, nil, r1).Check(ctx, Principal{ID: "u1", Kind: PrincipalUser}, "user.delete", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	r2 := &stubSource{name: "roles", grants: map[string][]string{"u2": {"user.view", "user.edit", "user.delete"}}}
	ok, err = NewChecker(registry, nil, r2).Check(ctx, Principal{ID: "u2", Kind: PrincipalUser}, "user.delete", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

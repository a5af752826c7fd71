package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
)

type stubDirectory struct {
	users     map[string]User
	teams     map[string][]string
	userRoles map[string][]string
	teamRoles map[string][]string
}

func (s *stubDirectory) UserByID(ctx context.Context, id string) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *stubDirectory) TeamIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return s.teams[userID], nil
}

func (s *stubDirectory) RoleIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return s.userRoles[userID], nil
}

func (s *stubDirectory) RoleIDsForTeam(ctx context.Context, teamID string) ([]string, error) {
	return s.teamRoles[teamID], nil
}

func TestResolverBuildsPrincipal(t *testing.T) {
	dir := &stubDirectory{
		users:     map[string]User{"u1": {ID: "u1", IsActive: true, IsRoot: true}},
		teams:     map[string][]string{"u1": {"t1", "t2"}},
		userRoles: map[string][]string{"u1": {"r1"}},
	}
	resolver := NewResolver(dir)

	p, err := resolver.Principal(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, authz.PrincipalUser, p.Kind)
	assert.True(t, p.IsRoot)
	assert.Equal(t, []string{"t1", "t2"}, p.TeamIDs)
	assert.Equal(t, []string{"r1"}, p.RoleIDs)
}

func TestResolverRejectsInactiveUser(t *testing.T) {
	dir := &stubDirectory{users: map[string]User{"u1": {ID: "u1", IsActive: false}}}
	_, err := NewResolver(dir).Principal(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolverUnknownUser(t *testing.T) {
	dir := &stubDirectory{users: map[string]User{}}
	_, err := NewResolver(dir).Principal(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTeamPrincipal(t *testing.T) {
	dir := &stubDirectory{teamRoles: map[string][]string{"t1": {"r9"}}}
	p, err := NewResolver(dir).TeamPrincipal(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, authz.PrincipalTeam, p.Kind)
	assert.Equal(t, []string{"r9"}, p.RoleIDs)
	assert.False(t, p.IsRoot)
}

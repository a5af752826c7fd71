package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/CharlesNg35/shellcn-sub005/internal/shared"
)

type stubRepo struct {
	users    map[string]*User
	sessions map[string]string
}

func (r *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = userID
	return nil
}

func (r *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{
		users: map[string]*User{
			"ops@example.com":      {ID: "u1", Email: "ops@example.com", PasswordHash: string(hash), IsActive: true},
			"disabled@example.com": {ID: "u2", Email: "disabled@example.com", PasswordHash: string(hash), IsActive: false},
		},
		sessions: make(map[string]string),
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newStubRepo(t))

	user, err := svc.Authenticate(context.Background(), "ops@example.com", "correct-horse-battery")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	svc := NewService(newStubRepo(t))
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "ops@example.com", "wrong-password")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse-battery")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "disabled@example.com", "correct-horse-battery")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newStubRepo(t)
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "s1", "u1", time.Now().Add(time.Hour), "127.0.0.1", "go-test"))
	assert.Equal(t, "u1", repo.sessions["s1"])

	require.NoError(t, svc.RemoveSession(ctx, "s1"))
	assert.Empty(t, repo.sessions)
}

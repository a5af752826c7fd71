package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userByIDSQL = `
SELECT id, email, name, is_root, is_active, created_at, updated_at
FROM users WHERE id = $1`

// UserByID fetches a user by ID.
func (r *Repository) UserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, userByIDSQL, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.IsRoot, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("identity: user by id: %w", err)
	}
	return u, nil
}

// TeamIDsForUser returns the IDs of every team the user belongs to.
func (r *Repository) TeamIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT team_id FROM team_members WHERE user_id = $1 ORDER BY team_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("identity: team ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

const roleIDsForUserSQL = `
SELECT role_id FROM user_roles WHERE user_id = $1
UNION
SELECT tr.role_id FROM team_roles tr
JOIN team_members tm ON tm.team_id = tr.team_id
WHERE tm.user_id = $1
ORDER BY role_id`

// RoleIDsForUser returns roles assigned to the user directly or through
// any of the user's teams.
func (r *Repository) RoleIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, roleIDsForUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("identity: role ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// RoleIDsForTeam returns roles assigned to the team.
func (r *Repository) RoleIDsForTeam(ctx context.Context, teamID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role_id FROM team_roles WHERE team_id = $1 ORDER BY role_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("identity: team role ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows pgx.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("identity: scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

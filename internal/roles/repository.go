package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CharlesNg35/shellcn-sub005/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const listRolesSQL = `
SELECT r.id, r.name, r.description, r.is_system, r.created_at, r.updated_at,
       COALESCE(array_agg(rp.permission_id) FILTER (WHERE rp.permission_id IS NOT NULL), '{}')
FROM roles r
LEFT JOIN role_permissions rp ON rp.role_id = r.id
GROUP BY r.id
ORDER BY r.name`

// ListRoles returns all roles ordered by name, with their permission sets.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, listRolesSQL)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem,
			&role.CreatedAt, &role.UpdatedAt, &role.PermissionIDs); err != nil {
			return nil, fmt.Errorf("roles: scan: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

const getRoleSQL = `
SELECT r.id, r.name, r.description, r.is_system, r.created_at, r.updated_at,
       COALESCE(array_agg(rp.permission_id) FILTER (WHERE rp.permission_id IS NOT NULL), '{}')
FROM roles r
LEFT JOIN role_permissions rp ON rp.role_id = r.id
WHERE r.id = $1
GROUP BY r.id`

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, getRoleSQL, id).Scan(&role.ID, &role.Name, &role.Description,
		&role.IsSystem, &role.CreatedAt, &role.UpdatedAt, &role.PermissionIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	if err != nil {
		return Role{}, fmt.Errorf("roles: get: %w", err)
	}
	return role, nil
}

const insertRoleSQL = `
INSERT INTO roles (id, name, description, is_system, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx, insertRoleSQL,
		role.ID, role.Name, role.Description, role.IsSystem, role.CreatedAt, role.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateName, role.Name)
	}
	if err != nil {
		return fmt.Errorf("roles: insert: %w", err)
	}
	return nil
}

const updateRoleSQL = `
UPDATE roles SET name = $2, description = $3, updated_at = $4
WHERE id = $1`

// UpdateRole updates name and description of an existing role.
func (r *Repository) UpdateRole(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx, updateRoleSQL, role.ID, role.Name, role.Description, role.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateName, role.Name)
	}
	if err != nil {
		return fmt.Errorf("roles: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRole removes a role. Assignment rows cascade at the schema level.
func (r *Repository) DeleteRole(ctx context.Context, id string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("roles: delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ReplaceRolePermissions swaps the role's permission set atomically.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("roles: clear permissions: %w", err)
		}
		for _, id := range permissionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, id); err != nil {
				return fmt.Errorf("roles: attach permission: %w", err)
			}
		}
		return nil
	})
}

const permissionsForRolesSQL = `
SELECT DISTINCT permission_id FROM role_permissions WHERE role_id = ANY($1)
ORDER BY permission_id`

// PermissionsForRoles returns the deduplicated union of raw permission IDs
// across all given roles.
func (r *Repository) PermissionsForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, permissionsForRolesSQL, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("roles: permissions for roles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("roles: scan permission: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignToUser attaches a role to a user. Idempotent.
func (r *Repository) AssignToUser(ctx context.Context, userID, roleID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID)
	if err != nil {
		return fmt.Errorf("roles: assign to user: %w", err)
	}
	return nil
}

// RemoveFromUser detaches a role from a user.
func (r *Repository) RemoveFromUser(ctx context.Context, userID, roleID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("roles: remove from user: %w", err)
	}
	return nil
}

// AssignToTeam attaches a role to a team. Idempotent.
func (r *Repository) AssignToTeam(ctx context.Context, teamID, roleID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO team_roles (team_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, teamID, roleID)
	if err != nil {
		return fmt.Errorf("roles: assign to team: %w", err)
	}
	return nil
}

// RemoveFromTeam detaches a role from a team.
func (r *Repository) RemoveFromTeam(ctx context.Context, teamID, roleID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM team_roles WHERE team_id = $1 AND role_id = $2`, teamID, roleID)
	if err != nil {
		return fmt.Errorf("roles: remove from team: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

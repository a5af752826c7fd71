package grants

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CharlesNg35/shellcn-sub005/internal/audit"
	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
	"github.com/CharlesNg35/shellcn-sub005/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for grants.
type Repository struct {
	pool     *pgxpool.Pool
	recorder *audit.Recorder
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, recorder *audit.Recorder) *Repository {
	return &Repository{pool: pool, recorder: recorder}
}

// WithTx implements Store.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, recorder: r.recorder})
	})
}

// ListTeamCapabilities returns the capability grants for the given teams.
func (r *Repository) ListTeamCapabilities(ctx context.Context, teamIDs []string) ([]TeamCapabilityGrant, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, team_id, permission_id, granted_by, created_at FROM team_capabilities WHERE team_id = ANY($1)`,
		teamIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []TeamCapabilityGrant
	for rows.Next() {
		var g TeamCapabilityGrant
		if err := rows.Scan(&g.ID, &g.TeamID, &g.PermissionID, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ListForResource returns every grant on the resource that names the user
// or one of its teams. Expiry filtering happens in the grant source at the
// instant of the check.
func (r *Repository) ListForResource(ctx context.Context, resourceID, userID string, teamIDs []string) ([]ResourceGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, resource_id, resource_type, principal_type, principal_id, permission_ids, expires_at, granted_by, metadata, created_at, updated_at
		 FROM resource_grants
		 WHERE resource_id = $1
		   AND ((principal_type = 'user' AND principal_id = $2) OR (principal_type = 'team' AND principal_id = ANY($3)))`,
		resourceID, userID, teamIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResourceGrants(rows)
}

// DeleteExpired removes grants whose expiry has passed. Best-effort
// housekeeping; correctness never depends on it.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM resource_grants WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Store = (*Repository)(nil)

type txRepository struct {
	tx       pgx.Tx
	recorder *audit.Recorder
}

func (t *txRepository) InsertTeamCapability(ctx context.Context, g TeamCapabilityGrant) error {
	// Granting an already-held capability is a no-op, not a conflict.
	_, err := t.tx.Exec(ctx,
		`INSERT INTO team_capabilities (id, team_id, permission_id, granted_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (team_id, permission_id) DO NOTHING`,
		g.ID, g.TeamID, g.PermissionID, g.GrantedBy, g.CreatedAt)
	return err
}

func (t *txRepository) GetTeamCapability(ctx context.Context, id string) (TeamCapabilityGrant, error) {
	var g TeamCapabilityGrant
	err := t.tx.QueryRow(ctx,
		`SELECT id, team_id, permission_id, granted_by, created_at FROM team_capabilities WHERE id = $1`,
		id).Scan(&g.ID, &g.TeamID, &g.PermissionID, &g.GrantedBy, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TeamCapabilityGrant{}, ErrNotFound
	}
	return g, err
}

func (t *txRepository) DeleteTeamCapability(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM team_capabilities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) LockResourcePrincipal(ctx context.Context, resourceID, principalID string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`, resourceID, principalID)
	return err
}

func (t *txRepository) GetResourceGrant(ctx context.Context, resourceID string, principalType authz.PrincipalKind, principalID string) (*ResourceGrant, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, resource_id, resource_type, principal_type, principal_id, permission_ids, expires_at, granted_by, metadata, created_at, updated_at
		 FROM resource_grants
		 WHERE resource_id = $1 AND principal_type = $2 AND principal_id = $3`,
		resourceID, principalType, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants, err := scanResourceGrants(rows)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, nil
	}
	g := grants[0]
	return &g, nil
}

func (t *txRepository) GetResourceGrantByID(ctx context.Context, id string) (*ResourceGrant, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, resource_id, resource_type, principal_type, principal_id, permission_ids, expires_at, granted_by, metadata, created_at, updated_at
		 FROM resource_grants WHERE id = $1`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants, err := scanResourceGrants(rows)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, ErrNotFound
	}
	g := grants[0]
	return &g, nil
}

func (t *txRepository) UpsertResourceGrant(ctx context.Context, g ResourceGrant) error {
	metaJSON, err := json.Marshal(g.Metadata)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO resource_grants (id, resource_id, resource_type, principal_type, principal_id, permission_ids, expires_at, granted_by, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (resource_id, principal_type, principal_id) DO UPDATE SET
			permission_ids = EXCLUDED.permission_ids,
			expires_at = EXCLUDED.expires_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		g.ID, g.ResourceID, g.ResourceType, g.PrincipalType, g.PrincipalID, g.PermissionIDs, g.ExpiresAt, g.GrantedBy, metaJSON, g.CreatedAt, g.UpdatedAt)
	return err
}

func (t *txRepository) DeleteResourceGrant(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM resource_grants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) RecordAudit(ctx context.Context, e audit.Event) error {
	return t.recorder.RecordTx(ctx, t.tx, e)
}

var _ TxStore = (*txRepository)(nil)

func scanResourceGrants(rows pgx.Rows) ([]ResourceGrant, error) {
	var grants []ResourceGrant
	for rows.Next() {
		var (
			g    ResourceGrant
			meta []byte
		)
		if err := rows.Scan(&g.ID, &g.ResourceID, &g.ResourceType, &g.PrincipalType, &g.PrincipalID, &g.PermissionIDs, &g.ExpiresAt, &g.GrantedBy, &meta, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &g.Metadata)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

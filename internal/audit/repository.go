package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed timeline queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TimelineWindow returns one page of audit rows, newest first.
func (r *Repository) TimelineWindow(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, strings.Replace(cond, "?", placeholder(len(args)), 1))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= ?", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at < ?", filters.To)
	}
	if actor := strings.TrimSpace(filters.ActorID); actor != "" {
		add("actor_id = ?", actor)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		add("action = ?", action)
	}

	query := `SELECT occurred_at, actor_id, action, resource_type, resource_id, permission_ids, result, meta FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += " ORDER BY occurred_at DESC LIMIT " + placeholder(len(args))
	args = append(args, offset)
	query += " OFFSET " + placeholder(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			at   time.Time
			meta []byte
		)
		if err := rows.Scan(&at, &row.ActorID, &row.Action, &row.ResourceType, &row.ResourceID, &row.PermissionIDs, &row.Result, &meta); err != nil {
			return nil, err
		}
		row.At = at
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

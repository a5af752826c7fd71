package grants

import (
	"context"
	"time"

	"github.com/CharlesNg35/shellcn-sub005/internal/audit"
	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
)

// Store defines the persistence operations the grant service and the grant
// sources rely on.
type Store interface {
	// WithTx runs fn inside a transaction; the grant mutation and its
	// audit record commit atomically or not at all.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error

	ListTeamCapabilities(ctx context.Context, teamIDs []string) ([]TeamCapabilityGrant, error)
	ListForResource(ctx context.Context, resourceID, userID string, teamIDs []string) ([]ResourceGrant, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TxStore is the transactional slice of the store.
type TxStore interface {
	InsertTeamCapability(ctx context.Context, g TeamCapabilityGrant) error
	GetTeamCapability(ctx context.Context, id string) (TeamCapabilityGrant, error)
	DeleteTeamCapability(ctx context.Context, id string) error

	// LockResourcePrincipal serializes concurrent merges for the same
	// (resource, principal) pair for the remainder of the transaction.
	LockResourcePrincipal(ctx context.Context, resourceID, principalID string) error
	GetResourceGrant(ctx context.Context, resourceID string, principalType authz.PrincipalKind, principalID string) (*ResourceGrant, error)
	GetResourceGrantByID(ctx context.Context, id string) (*ResourceGrant, error)
	UpsertResourceGrant(ctx context.Context, g ResourceGrant) error
	DeleteResourceGrant(ctx context.Context, id string) error

	RecordAudit(ctx context.Context, e audit.Event) error
}

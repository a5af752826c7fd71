package grants

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CharlesNg35/shellcn-sub005/internal/audit"
	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
)

// Audit actions emitted by the service.
const (
	ActionCapabilityGrant  = "capability.grant"
	ActionCapabilityRevoke = "capability.revoke"
	ActionShareAdd         = "resource.share.add"
	ActionShareRemove      = "resource.share.remove"
)

// CacheBumper invalidates cached grant sets after a mutation.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service mediates all writes to the grant stores. Every mutation commits
// atomically with its audit event; validation failures are policy
// decisions reported synchronously, never retried.
type Service struct {
	store    Store
	checker  *authz.Checker
	registry *permissions.Registry
	cache    CacheBumper
	logger   *slog.Logger
}

// NewService constructs the grant service.
func NewService(store Store, checker *authz.Checker, registry *permissions.Registry, cache CacheBumper, logger *slog.Logger) *Service {
	return &Service{store: store, checker: checker, registry: registry, cache: cache, logger: logger}
}

// GrantTeamCapability attaches an additive capability to a team. The actor
// must itself hold the permission; delegation can never escalate.
func (s *Service) GrantTeamCapability(ctx context.Context, actor authz.Principal, teamID, permissionID string) (TeamCapabilityGrant, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return TeamCapabilityGrant{}, fmt.Errorf("grants: team id required")
	}
	if _, ok := s.registry.Get(permissionID); !ok {
		return TeamCapabilityGrant{}, fmt.Errorf("%w: %s", ErrUnknownPermission, permissionID)
	}
	allowed, err := s.checker.Check(ctx, actor, permissionID, nil)
	if err != nil {
		return TeamCapabilityGrant{}, err
	}
	if !allowed {
		return TeamCapabilityGrant{}, fmt.Errorf("%w: %s", ErrInsufficientScope, permissionID)
	}

	grant := TeamCapabilityGrant{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		PermissionID: permissionID,
		GrantedBy:    actor.ID,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := tx.InsertTeamCapability(ctx, grant); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Event{
			Action:        ActionCapabilityGrant,
			ActorID:       actor.ID,
			ResourceType:  "team",
			ResourceID:    teamID,
			PermissionIDs: []string{permissionID},
			Result:        "granted",
		})
	})
	if err != nil {
		return TeamCapabilityGrant{}, err
	}
	s.bump(ctx)
	return grant, nil
}

// GrantResourcePermission shares a resource with a principal. When an
// active grant already exists for the (resource, principal) pair the new
// scopes merge into it: union of permission sets, later expiry wins, and
// an unbounded grant never regains an expiry.
func (s *Service) GrantResourcePermission(ctx context.Context, actor authz.Principal, resourceID, resourceType string, principal PrincipalRef, permissionIDs []string, expiresAt *time.Time) (ResourceGrant, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" || principal.ID == "" {
		return ResourceGrant{}, fmt.Errorf("grants: resource and principal required")
	}
	if len(permissionIDs) == 0 {
		return ResourceGrant{}, fmt.Errorf("grants: at least one permission required")
	}
	res := &authz.Resource{ID: resourceID, Type: resourceType}
	for _, id := range permissionIDs {
		if _, ok := s.registry.Get(id); !ok {
			return ResourceGrant{}, fmt.Errorf("%w: %s", ErrUnknownPermission, id)
		}
		allowed, err := s.checker.Check(ctx, actor, id, res)
		if err != nil {
			return ResourceGrant{}, err
		}
		if !allowed {
			return ResourceGrant{}, fmt.Errorf("%w: %s", ErrInsufficientScope, id)
		}
	}

	var merged ResourceGrant
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := tx.LockResourcePrincipal(ctx, resourceID, principal.ID); err != nil {
			return err
		}
		existing, err := tx.GetResourceGrant(ctx, resourceID, principal.Type, principal.ID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		merged = mergeGrant(existing, ResourceGrant{
			ID:            uuid.NewString(),
			ResourceID:    resourceID,
			ResourceType:  resourceType,
			PrincipalType: principal.Type,
			PrincipalID:   principal.ID,
			PermissionIDs: permissionIDs,
			ExpiresAt:     expiresAt,
			GrantedBy:     actor.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, now)
		if err := tx.UpsertResourceGrant(ctx, merged); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Event{
			Action:        ActionShareAdd,
			ActorID:       actor.ID,
			ResourceType:  resourceType,
			ResourceID:    resourceID,
			PermissionIDs: merged.PermissionIDs,
			Result:        "granted",
			Meta:          map[string]any{"principal_type": string(principal.Type), "principal_id": principal.ID},
		})
	})
	if err != nil {
		return ResourceGrant{}, err
	}
	return merged, nil
}

// RevokeResourceGrant removes a resource grant. The actor must hold the
// share permission for the grant's resource type on that resource, or the
// global permission management capability.
func (s *Service) RevokeResourceGrant(ctx context.Context, actor authz.Principal, grantID string) error {
	return s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		grant, err := tx.GetResourceGrantByID(ctx, grantID)
		if err != nil {
			return err
		}
		ok, err := s.canManage(ctx, actor, grant.ResourceType+".share", &authz.Resource{ID: grant.ResourceID, Type: grant.ResourceType})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: manage %s", ErrInsufficientScope, grant.ResourceType)
		}
		if err := tx.DeleteResourceGrant(ctx, grantID); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Event{
			Action:        ActionShareRemove,
			ActorID:       actor.ID,
			ResourceType:  grant.ResourceType,
			ResourceID:    grant.ResourceID,
			PermissionIDs: grant.PermissionIDs,
			Result:        "revoked",
			Meta:          map[string]any{"principal_type": string(grant.PrincipalType), "principal_id": grant.PrincipalID},
		})
	})
}

// RevokeTeamCapability removes a team capability grant. Requires the
// permission management capability.
func (s *Service) RevokeTeamCapability(ctx context.Context, actor authz.Principal, grantID string) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		grant, err := tx.GetTeamCapability(ctx, grantID)
		if err != nil {
			return err
		}
		allowed, err := s.checker.Check(ctx, actor, "permission.manage", nil)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: permission.manage", ErrInsufficientScope)
		}
		if err := tx.DeleteTeamCapability(ctx, grantID); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Event{
			Action:        ActionCapabilityRevoke,
			ActorID:       actor.ID,
			ResourceType:  "team",
			ResourceID:    grant.TeamID,
			PermissionIDs: []string{grant.PermissionID},
			Result:        "revoked",
		})
	})
	if err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// PurgeExpired deletes expired resource grants. Called from the background
// worker; evaluation never depends on it.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, time.Now().UTC())
}

func (s *Service) canManage(ctx context.Context, actor authz.Principal, sharePermission string, res *authz.Resource) (bool, error) {
	if _, known := s.registry.Get(sharePermission); known {
		ok, err := s.checker.Check(ctx, actor, sharePermission, res)
		if err != nil || ok {
			return ok, err
		}
	}
	return s.checker.Check(ctx, actor, "permission.manage", nil)
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("bump grant cache", slog.Any("error", err))
	}
}

// mergeGrant folds the requested grant into the existing row, if any. An
// existing grant that already expired contributes nothing.
func mergeGrant(existing *ResourceGrant, requested ResourceGrant, now time.Time) ResourceGrant {
	if existing == nil || !existing.Active(now) {
		requested.PermissionIDs = dedupe(requested.PermissionIDs)
		return requested
	}
	merged := *existing
	merged.PermissionIDs = dedupe(append(append([]string{}, existing.PermissionIDs...), requested.PermissionIDs...))
	merged.ExpiresAt = laterExpiry(existing.ExpiresAt, requested.ExpiresAt)
	merged.GrantedBy = requested.GrantedBy
	merged.UpdatedAt = now
	if requested.Metadata != nil {
		merged.Metadata = requested.Metadata
	}
	return merged
}

// laterExpiry picks the more permissive bound: nil (never expires) wins
// over any timestamp, otherwise the later timestamp wins.
func laterExpiry(a, b *time.Time) *time.Time {
	if a == nil || b == nil {
		return nil
	}
	if a.After(*b) {
		return a
	}
	return b
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

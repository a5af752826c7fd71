package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
)

// DecisionRecorder receives the outcome of every evaluated check.
// Implemented by the observability metrics; optional.
type DecisionRecorder interface {
	AuthzDecision(allowed bool, reason string)
}

// Decision reasons reported to the DecisionRecorder.
const (
	ReasonRoot         = "root"
	ReasonGranted      = "granted"
	ReasonNotGranted   = "not_granted"
	ReasonMissingDep   = "missing_dependency"
	ReasonUnregistered = "unregistered"
)

// Checker answers allow/deny questions against the registry and the
// configured grant sources. It is safe for concurrent use.
type Checker struct {
	registry  *permissions.Registry
	sources   []GrantSource
	logger    *slog.Logger
	decisions DecisionRecorder
}

// NewChecker constructs a Checker. The registry must be validated before
// the checker serves any call.
func NewChecker(registry *permissions.Registry, logger *slog.Logger, sources ...GrantSource) *Checker {
	return &Checker{registry: registry, sources: sources, logger: logger}
}

// WithDecisionRecorder attaches a decision metrics sink.
func (c *Checker) WithDecisionRecorder(rec DecisionRecorder) *Checker {
	c.decisions = rec
	return c
}

// Check reports whether the principal may exercise the permission,
// optionally scoped to a resource. Unknown permissions are logged and
// denied rather than surfaced as errors, so callers stay fail-closed.
func (c *Checker) Check(ctx context.Context, p Principal, permissionID string, res *Resource) (bool, error) {
	if p.IsRoot {
		c.record(true, ReasonRoot)
		return true, nil
	}

	if _, ok := c.registry.Get(permissionID); !ok {
		if c.logger != nil {
			c.logger.Warn("check against unregistered permission",
				slog.String("permission", permissionID),
				slog.String("principal", p.ID))
		}
		c.record(false, ReasonUnregistered)
		return false, nil
	}

	raw, err := c.rawGrants(ctx, p, res)
	if err != nil {
		return false, err
	}

	if _, ok := raw[permissionID]; !ok {
		c.record(false, ReasonNotGranted)
		return false, nil
	}
	// A permission is satisfied only when every transitive prerequisite is
	// independently granted. Holding user.delete without user.view means
	// user.delete cannot be exercised.
	for _, dep := range c.registry.Requires(permissionID) {
		if _, ok := raw[dep]; !ok {
			c.record(false, ReasonMissingDep)
			return false, nil
		}
	}
	c.record(true, ReasonGranted)
	return true, nil
}

// EffectivePermissions returns the subset of raw grants whose full
// dependency chain is satisfied, sorted. Root principals receive the whole
// catalogue. Resource grants never contribute here; callers pass a
// resource to Check to unlock those.
func (c *Checker) EffectivePermissions(ctx context.Context, p Principal) ([]string, error) {
	if p.IsRoot {
		return c.registry.IDs(), nil
	}

	raw, err := c.rawGrants(ctx, p, nil)
	if err != nil {
		return nil, err
	}

	effective := make([]string, 0, len(raw))
	for id := range raw {
		if _, ok := c.registry.Get(id); !ok {
			continue
		}
		satisfied := true
		for _, dep := range c.registry.Requires(id) {
			if _, held := raw[dep]; !held {
				satisfied = false
				break
			}
		}
		if satisfied {
			effective = append(effective, id)
		}
	}
	sort.Strings(effective)
	return effective, nil
}

func (c *Checker) rawGrants(ctx context.Context, p Principal, res *Resource) (map[string]struct{}, error) {
	raw := make(map[string]struct{})
	for _, src := range c.sources {
		ids, err := src.Grants(ctx, p, res)
		if err != nil {
			return nil, fmt.Errorf("authz: source %s: %w", src.Name(), err)
		}
		for _, id := range ids {
			raw[id] = struct{}{}
		}
	}
	return raw, nil
}

func (c *Checker) record(allowed bool, reason string) {
	if c.decisions != nil {
		c.decisions.AuthzDecision(allowed, reason)
	}
}

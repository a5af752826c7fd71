// Package roles manages named permission bundles assigned to users and
// teams. A role stores raw permission identifiers; dependency closure is
// enforced at evaluation time, never at assignment time.
package roles

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the requested role does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrDuplicateName indicates a role with the same name already exists.
	ErrDuplicateName = errors.New("roles: duplicate name")
	// ErrSystemRole indicates a mutation attempt on a built-in role.
	ErrSystemRole = errors.New("roles: system role is immutable")
)

// Role represents a named permission bundle.
type Role struct {
	ID            string
	Name          string
	Description   string
	IsSystem      bool
	PermissionIDs []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

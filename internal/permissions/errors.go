package permissions

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateID indicates a permission ID was registered twice.
	ErrDuplicateID = errors.New("permissions: duplicate permission id")
	// ErrRegistrySealed indicates a registration attempt after validation.
	ErrRegistrySealed = errors.New("permissions: registry is sealed")
	// ErrUnknownPermission indicates a lookup for an unregistered permission.
	ErrUnknownPermission = errors.New("permissions: unknown permission")
)

// UnknownDependencyError reports a dependency on an unregistered permission.
type UnknownDependencyError struct {
	PermissionID string
	DependencyID string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("permissions: %s depends on unregistered permission %s", e.PermissionID, e.DependencyID)
}

// CyclicDependencyError reports a cycle in the dependency graph. Path lists
// the permission IDs along the cycle, first and last entries being equal.
type CyclicDependencyError struct {
	Path []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("permissions: dependency cycle: %s", strings.Join(e.Path, " -> "))
}

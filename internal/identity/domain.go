// Package identity resolves users and teams into principals for the
// permission checker.
package identity

import (
	"errors"
	"time"
)

// ErrNotFound indicates that the requested user or team does not exist.
var ErrNotFound = errors.New("identity: not found")

// User represents an account that can authenticate and hold grants.
type User struct {
	ID        string
	Email     string
	Name      string
	IsRoot    bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Team groups users; grants attached to a team apply to every member.
type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

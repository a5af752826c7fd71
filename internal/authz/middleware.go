package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CharlesNg35/shellcn-sub005/internal/shared"
)

// PrincipalResolver turns an authenticated user ID into a Principal.
// Implemented by the identity package.
type PrincipalResolver interface {
	Principal(ctx context.Context, userID string) (Principal, error)
}

// Middleware wires authorization helpers for HTTP handlers. A denied
// response never tells the client whether the permission was unknown or
// simply not granted.
type Middleware struct {
	Checker  *Checker
	Resolver PrincipalResolver
	Logger   *slog.Logger
}

// Authenticate resolves the session user into a Principal and stores it in
// the request context. Requests without a session are rejected.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := m.resolve(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// Require ensures the principal holds every listed permission.
func (m Middleware) Require(perms ...string) func(http.Handler) http.Handler {
	normalized := normalize(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := m.principal(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, perm := range normalized {
				allowed, err := m.Checker.Check(r.Context(), p, perm, nil)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("authz require", slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if !allowed {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAny ensures the principal holds at least one of the listed
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalize(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := m.principal(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, perm := range normalized {
				allowed, err := m.Checker.Check(r.Context(), p, perm, nil)
				if err != nil {
					if m.Logger != nil {
						m.Logger.Error("authz require any", slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				if allowed {
					next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// principal returns the principal stored by Authenticate, resolving it on
// the spot when the route skipped that middleware.
func (m Middleware) principal(r *http.Request) (Principal, bool) {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p, true
	}
	return m.resolve(r)
}

func (m Middleware) resolve(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Principal{}, false
	}
	userID := strings.TrimSpace(sess.User())
	if userID == "" {
		return Principal{}, false
	}
	p, err := m.Resolver.Principal(r.Context(), userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("resolve principal", slog.String("user", userID), slog.Any("error", err))
		}
		return Principal{}, false
	}
	return p, true
}

func normalize(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

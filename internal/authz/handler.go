package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
	"github.com/CharlesNg35/shellcn-sub005/internal/platform/httpx"
)

// PermissionsHandler exposes the permission catalogue and per-principal
// evaluation results.
type PermissionsHandler struct {
	logger   *slog.Logger
	registry *permissions.Registry
	checker  *Checker
	mw       *Middleware
}

// NewPermissionsHandler builds a PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, registry *permissions.Registry, checker *Checker, mw *Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, registry: registry, checker: checker, mw: mw}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticate)
		// Any logged-in user may inspect their own effective set.
		r.Get("/effective", h.effective)
		r.Get("/check", h.check)
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequireAny("permission.view", "permission.manage"))
			r.Get("/", h.catalogue)
		})
	})
}

type permissionEntry struct {
	ID          string   `json:"id"`
	Module      string   `json:"module"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (h *PermissionsHandler) catalogue(w http.ResponseWriter, r *http.Request) {
	// All() is ordered by module then ID, so each module slice comes out
	// ID-sorted.
	out := make(map[string][]permissionEntry)
	for _, p := range h.registry.All() {
		out[p.Module] = append(out[p.Module], permissionEntry{
			ID:          p.ID,
			Module:      p.Module,
			DependsOn:   p.DependsOn,
			Description: p.Description,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": out})
}

func (h *PermissionsHandler) effective(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	ids, err := h.checker.EffectivePermissions(r.Context(), principal)
	if err != nil {
		h.logger.Error("effective permissions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": ids})
}

// check answers whether the caller holds a single permission, optionally
// scoped to a resource via query parameters.
func (h *PermissionsHandler) check(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	permissionID := r.URL.Query().Get("permission")
	if permissionID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "permission query parameter is required")
		return
	}
	var res *Resource
	if id := r.URL.Query().Get("resource_id"); id != "" {
		res = &Resource{ID: id, Type: r.URL.Query().Get("resource_type")}
	}
	allowed, err := h.checker.Check(r.Context(), principal, permissionID, res)
	if err != nil {
		h.logger.Error("permission check", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permission": permissionID, "allowed": allowed})
}

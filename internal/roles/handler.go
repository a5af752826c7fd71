package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
	"github.com/CharlesNg35/shellcn-sub005/internal/permissions"
	"github.com/CharlesNg35/shellcn-sub005/internal/platform/httpx"
)

// Handler wires HTTP endpoints for role management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        *authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw *authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticate)
		r.Group(func(r chi.Router) {
			r.Use(h.mw.RequireAny("permission.view", "permission.manage"))
			r.Get("/", h.list)
			r.Get("/{id}", h.show)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.mw.Require("permission.manage"))
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
			r.Put("/{id}/permissions", h.setPermissions)
			r.Post("/{id}/assignments", h.assign)
			r.Delete("/{id}/assignments", h.unassign)
		})
	})
}

type roleResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsSystem      bool      `json:"is_system"`
	PermissionIDs []string  `json:"permission_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toRoleResponse(role Role) roleResponse {
	if role.PermissionIDs == nil {
		role.PermissionIDs = []string{}
	}
	return roleResponse{
		ID:            role.ID,
		Name:          role.Name,
		Description:   role.Description,
		IsSystem:      role.IsSystem,
		PermissionIDs: role.PermissionIDs,
		CreatedAt:     role.CreatedAt,
		UpdatedAt:     role.UpdatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

type roleForm struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form roleForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.Create(r.Context(), form.Name, form.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form roleForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), form.Name, form.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPermissionsForm struct {
	PermissionIDs []string `json:"permission_ids" validate:"dive,required"`
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	var form setPermissionsForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetPermissions(r.Context(), chi.URLParam(r, "id"), form.PermissionIDs); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignmentForm struct {
	PrincipalType string `json:"principal_type" validate:"required,oneof=user team"`
	PrincipalID   string `json:"principal_id" validate:"required"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, true)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, false)
}

func (h *Handler) changeAssignment(w http.ResponseWriter, r *http.Request, attach bool) {
	var form assignmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	roleID := chi.URLParam(r, "id")

	var err error
	switch {
	case attach && form.PrincipalType == "user":
		err = h.service.AssignToUser(r.Context(), form.PrincipalID, roleID)
	case attach:
		err = h.service.AssignToTeam(r.Context(), form.PrincipalID, roleID)
	case form.PrincipalType == "user":
		err = h.service.RemoveFromUser(r.Context(), form.PrincipalID, roleID)
	default:
		err = h.service.RemoveFromTeam(r.Context(), form.PrincipalID, roleID)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrDuplicateName):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrSystemRole):
		httpx.Problem(w, http.StatusConflict, "System Role", "built-in roles cannot be modified")
	case errors.Is(err, permissions.ErrUnknownPermission):
		httpx.Problem(w, http.StatusBadRequest, "Unknown Permission", err.Error())
	default:
		h.logger.Error("role operation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

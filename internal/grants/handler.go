package grants

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/CharlesNg35/shellcn-sub005/internal/authz"
	"github.com/CharlesNg35/shellcn-sub005/internal/platform/httpx"
	"github.com/CharlesNg35/shellcn-sub005/internal/shared"
)

// Handler wires HTTP endpoints for grant management.
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

// MountRoutes registers grant routes on the provided router. Authorization
// happens inside the service per grant, so routes only require a login.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Authenticate)
		r.Post("/shares", h.createShare)
		r.Delete("/shares/{id}", h.deleteShare)
		r.Post("/capabilities", h.createCapability)
		r.Delete("/capabilities/{id}", h.deleteCapability)
	})
}

type createShareRequest struct {
	ResourceID    string     `json:"resource_id" validate:"required"`
	ResourceType  string     `json:"resource_type" validate:"required"`
	PrincipalType string     `json:"principal_type" validate:"required,oneof=user team"`
	PrincipalID   string     `json:"principal_id" validate:"required"`
	PermissionIDs []string   `json:"permission_ids" validate:"required,min=1,dive,required"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

type shareResponse struct {
	ID            string     `json:"id"`
	ResourceID    string     `json:"resource_id"`
	ResourceType  string     `json:"resource_type"`
	PrincipalType string     `json:"principal_type"`
	PrincipalID   string     `json:"principal_id"`
	PermissionIDs []string   `json:"permission_ids"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	GrantedBy     string     `json:"granted_by"`
}

func (h *Handler) createShare(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createShareRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	grant, err := h.service.GrantResourcePermission(r.Context(), actor, req.ResourceID, req.ResourceType,
		PrincipalRef{Type: authz.PrincipalKind(req.PrincipalType), ID: req.PrincipalID},
		req.PermissionIDs, req.ExpiresAt)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shareResponse{
		ID:            grant.ID,
		ResourceID:    grant.ResourceID,
		ResourceType:  grant.ResourceType,
		PrincipalType: string(grant.PrincipalType),
		PrincipalID:   grant.PrincipalID,
		PermissionIDs: grant.PermissionIDs,
		ExpiresAt:     grant.ExpiresAt,
		GrantedBy:     grant.GrantedBy,
	})
}

func (h *Handler) deleteShare(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.RevokeResourceGrant(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createCapabilityRequest struct {
	TeamID       string `json:"team_id" validate:"required"`
	PermissionID string `json:"permission_id" validate:"required"`
}

type capabilityResponse struct {
	ID           string `json:"id"`
	TeamID       string `json:"team_id"`
	PermissionID string `json:"permission_id"`
	GrantedBy    string `json:"granted_by"`
}

func (h *Handler) createCapability(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createCapabilityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}

	grant, err := h.service.GrantTeamCapability(r.Context(), actor, req.TeamID, req.PermissionID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, capabilityResponse{
		ID:           grant.ID,
		TeamID:       grant.TeamID,
		PermissionID: grant.PermissionID,
		GrantedBy:    grant.GrantedBy,
	})
}

func (h *Handler) deleteCapability(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.RevokeTeamCapability(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnknownPermission):
		httpx.Problem(w, http.StatusBadRequest, "Unknown Permission", err.Error())
	case errors.Is(err, ErrInsufficientScope):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		sess := shared.SessionFromContext(r.Context())
		attrs := []any{slog.Any("error", err)}
		if sess != nil {
			attrs = append(attrs, slog.String("session", sess.ID))
		}
		h.logger.Error("grant mutation failed", attrs...)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Error()
	}
	return err.Error()
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/service"
	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
	"github.com/KampusMeal/kampusmeal-backend/pkg/httputil"
	"github.com/KampusMeal/kampusmeal-backend/pkg/pagination"
	"github.com/KampusMeal/kampusmeal-backend/pkg/validator"
)

// MenuHandler handles HTTP requests for menu endpoints.
type MenuHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewMenuHandler creates a new menu HTTP handler.
func NewMenuHandler(svc *service.CatalogService, logger *slog.Logger) *MenuHandler {
	return &MenuHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateMenuItemRequest is the JSON request body for adding a menu item.
type CreateMenuItemRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Price       int64  `json:"price" validate:"required,gte=1"`
	Category    string `json:"category" validate:"max=50"`
	IsAvailable *bool  `json:"is_available"`
}

// UpdateMenuItemRequest is the JSON request body for updating a menu item.
// Absent fields are left unchanged.
type UpdateMenuItemRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Price       *int64  `json:"price" validate:"omitempty,gte=1"`
	Category    *string `json:"category" validate:"omitempty,max=50"`
	IsAvailable *bool   `json:"is_available"`
}

// --- Handlers ---

// ListMenu handles GET /api/v1/stalls/{stallID}/menu.
func (h *MenuHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	filter := repository.MenuFilter{
		AvailableOnly: r.URL.Query().Get("available_only") == "true",
		Page:          params.Page,
		PerPage:       params.PerPage,
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filter.Category = &category
	}

	items, total, err := h.service.ListMenu(r.Context(), chi.URLParam(r, "stallID"), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "menu retrieved", pagination.NewResult(items, total, params))
}

// GetMenuItem handles GET /api/v1/menu/{itemID}.
func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetMenuItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "menu item retrieved", item)
}

// CreateMenuItem handles POST /api/v1/stalls/{stallID}/menu.
func (h *MenuHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	item, err := h.service.CreateMenuItem(r.Context(), identity.UserID, chi.URLParam(r, "stallID"), service.CreateMenuItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsAvailable: available,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "menu item created", item)
}

// UpdateMenuItem handles PUT /api/v1/menu/{itemID}.
func (h *MenuHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := h.service.UpdateMenuItem(r.Context(), identity.UserID, chi.URLParam(r, "itemID"), service.UpdateMenuItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "menu item updated", item)
}

// DeleteMenuItem handles DELETE /api/v1/menu/{itemID}.
func (h *MenuHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	itemID := chi.URLParam(r, "itemID")
	if err := h.service.DeleteMenuItem(r.Context(), identity.UserID, itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "menu item deleted", map[string]string{"id": itemID})
}

// UploadMenuImage handles POST /api/v1/menu/{itemID}/image (multipart/form-data).
func (h *MenuHandler) UploadMenuImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	input, cleanup, err := imageFromMultipart(w, r, "image")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	item, err := h.service.UploadMenuImage(r.Context(), identity.UserID, chi.URLParam(r, "itemID"), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "menu item image uploaded", item)
}

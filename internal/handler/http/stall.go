package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/service"
	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
	"github.com/KampusMeal/kampusmeal-backend/pkg/httputil"
	"github.com/KampusMeal/kampusmeal-backend/pkg/pagination"
	"github.com/KampusMeal/kampusmeal-backend/pkg/validator"
)

// StallHandler handles HTTP requests for stall endpoints.
type StallHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewStallHandler creates a new stall HTTP handler.
func NewStallHandler(svc *service.CatalogService, logger *slog.Logger) *StallHandler {
	return &StallHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateStallRequest is the JSON request body for opening a stall.
type CreateStallRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateStallRequest is the JSON request body for updating a stall.
// Absent fields are left unchanged.
type UpdateStallRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsOpen      *bool   `json:"is_open"`
}

// --- Handlers ---

// ListStalls handles GET /api/v1/stalls.
func (h *StallHandler) ListStalls(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	filter := repository.StallFilter{
		OpenOnly: r.URL.Query().Get("open_only") == "true",
		Page:     params.Page,
		PerPage:  params.PerPage,
	}

	stalls, total, err := h.service.ListStalls(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "stalls retrieved", pagination.NewResult(stalls, total, params))
}

// GetStall handles GET /api/v1/stalls/{stallID}.
func (h *StallHandler) GetStall(w http.ResponseWriter, r *http.Request) {
	stall, err := h.service.GetStall(r.Context(), chi.URLParam(r, "stallID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "stall retrieved", stall)
}

// CreateStall handles POST /api/v1/stalls.
func (h *StallHandler) CreateStall(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateStallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	stall, err := h.service.CreateStall(r.Context(), service.CreateStallInput{
		OwnerID:     identity.UserID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "stall created", stall)
}

// UpdateStall handles PUT /api/v1/stalls/{stallID}.
func (h *StallHandler) UpdateStall(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateStallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	stall, err := h.service.UpdateStall(r.Context(), identity.UserID, chi.URLParam(r, "stallID"), service.UpdateStallInput{
		Name:        req.Name,
		Description: req.Description,
		IsOpen:      req.IsOpen,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "stall updated", stall)
}

// UploadStallImage handles POST /api/v1/stalls/{stallID}/image (multipart/form-data).
func (h *StallHandler) UploadStallImage(w http.ResponseWriter, r *http.Request) {
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

	stall, err := h.service.UploadStallImage(r.Context(), identity.UserID, chi.URLParam(r, "stallID"), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "stall image uploaded", stall)
}

// imageFromMultipart parses a single-file multipart upload into an
// UploadImageInput. The caller must invoke cleanup to close the file.
func imageFromMultipart(w http.ResponseWriter, r *http.Request, field string) (service.UploadImageInput, func(), error) {
	maxSize := domain.MaxImageSize + (1 << 20) // form-field overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(domain.MaxImageSize); err != nil {
		return service.UploadImageInput{}, nil, apperrors.InvalidInput("failed to parse multipart form: " + err.Error())
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return service.UploadImageInput{}, nil, apperrors.InvalidInput(field + " file is required")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := service.UploadImageInput{
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	}

	return input, func() { _ = file.Close() }, nil
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KampusMeal/kampusmeal-backend/internal/service"
	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
	"github.com/KampusMeal/kampusmeal-backend/pkg/httputil"
	"github.com/KampusMeal/kampusmeal-backend/pkg/pagination"
	"github.com/KampusMeal/kampusmeal-backend/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for reviewing a completed order.
type CreateReviewRequest struct {
	OrderID   string   `json:"order_id" validate:"required"`
	Rating    int      `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string   `json:"comment" validate:"max=1000"`
	Tags      []string `json:"tags" validate:"omitempty,max=5"`
	ImageURLs []string `json:"image_urls" validate:"omitempty,max=5,dive,url"`
}

// --- Handlers ---

// CreateReview handles POST /api/v1/reviews.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(), identity.UserID, service.CreateReviewInput{
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Tags:      req.Tags,
		ImageURLs: req.ImageURLs,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "review submitted", review)
}

// ListStallReviews handles GET /api/v1/stalls/{stallID}/reviews.
func (h *ReviewHandler) ListStallReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	reviews, total, err := h.service.ListStallReviews(r.Context(), chi.URLParam(r, "stallID"), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "reviews retrieved", pagination.NewResult(reviews, total, params))
}

// GetOrderReview handles GET /api/v1/reviews/order/{orderID}.
func (h *ReviewHandler) GetOrderReview(w http.ResponseWriter, r *http.Request) {
	review, err := h.service.GetOrderReview(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "review retrieved", review)
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/service"
	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
	"github.com/KampusMeal/kampusmeal-backend/pkg/httputil"
	"github.com/KampusMeal/kampusmeal-backend/pkg/pagination"
	"github.com/KampusMeal/kampusmeal-backend/pkg/validator"
)

// dateLayout is the format for the from/to order list filters.
const dateLayout = "2006-01-02"

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// RejectOrderRequest is the JSON request body for rejecting an order.
type RejectOrderRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// --- Buyer handlers ---

// Checkout handles POST /api/v1/orders/checkout (multipart/form-data).
// The form carries a delivery_method field and a proof file.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	proof, cleanup, err := imageFromMultipart(w, r, "proof")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	order, err := h.service.Checkout(r.Context(), identity.UserID, service.CheckoutInput{
		DeliveryMethod: r.FormValue("delivery_method"),
		Proof:          proof,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, "order placed", order)
}

// ResubmitProof handles PATCH /api/v1/orders/{orderID}/upload-proof
// (multipart/form-data). Only rejected orders accept a new proof.
func (h *OrderHandler) ResubmitProof(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	proof, cleanup, err := imageFromMultipart(w, r, "proof")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	order, err := h.service.ResubmitProof(r.Context(), identity.UserID, chi.URLParam(r, "orderID"), proof)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "payment proof resubmitted", order)
}

// ListMyOrders handles GET /api/v1/orders.
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	params := pagination.FromRequest(r)
	filter, err := orderFilterFromRequest(r, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	orders, total, err := h.service.ListMyOrders(r.Context(), identity.UserID, filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "orders retrieved", pagination.NewResult(orders, total, params))
}

// GetMyOrder handles GET /api/v1/orders/{orderID}.
func (h *OrderHandler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	order, err := h.service.GetMyOrder(r.Context(), identity.UserID, chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "order retrieved", order)
}

// --- Seller handlers ---

// ListStallOrders handles GET /api/v1/orders/my-stall/orders.
func (h *OrderHandler) ListStallOrders(w http.ResponseWriter, r *http.Request) {
	stallID, err := stallFromContext(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	params := pagination.FromRequest(r)
	filter, err := orderFilterFromRequest(r, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	orders, total, err := h.service.ListStallOrders(r.Context(), stallID, filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "stall orders retrieved", pagination.NewResult(orders, total, params))
}

// GetStallOrder handles GET /api/v1/orders/my-stall/orders/{orderID}.
func (h *OrderHandler) GetStallOrder(w http.ResponseWriter, r *http.Request) {
	stallID, err := stallFromContext(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.GetStallOrder(r.Context(), stallID, chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "order retrieved", order)
}

// ConfirmOrder handles PATCH /api/v1/orders/my-stall/orders/{orderID}/confirm.
func (h *OrderHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "order confirmed", h.service.ConfirmOrder)
}

// ReadyOrder handles PATCH /api/v1/orders/my-stall/orders/{orderID}/ready.
func (h *OrderHandler) ReadyOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "order marked ready", h.service.ReadyOrder)
}

// CompleteOrder handles PATCH /api/v1/orders/my-stall/orders/{orderID}/complete.
func (h *OrderHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "order completed", h.service.CompleteOrder)
}

// RejectOrder handles PATCH /api/v1/orders/my-stall/orders/{orderID}/reject.
func (h *OrderHandler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	stallID, err := stallFromContext(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RejectOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.RejectOrder(r.Context(), stallID, chi.URLParam(r, "orderID"), req.Reason)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, "order rejected", order)
}

// --- Helpers ---

type transitionFunc func(ctx context.Context, stallID, orderID string) (*domain.Order, error)

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, message string, fn transitionFunc) {
	stallID, err := stallFromContext(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := fn(r.Context(), stallID, chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, message, order)
}

// stallFromContext resolves the caller's stall. The role middleware has
// already ensured the caller is a stall owner.
func stallFromContext(r *http.Request) (string, error) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		return "", apperrors.Unauthorized("authentication required")
	}
	if identity.StallID == "" {
		return "", apperrors.Forbidden("no stall registered for this account")
	}
	return identity.StallID, nil
}

var validStatusFilters = map[string]bool{
	domain.StatusWaitingConfirmation: true,
	domain.StatusProcessing:          true,
	domain.StatusReady:               true,
	domain.StatusCompleted:           true,
	domain.StatusRejected:            true,
}

// orderFilterFromRequest parses the status/from/to query parameters. The
// `to` date is made inclusive by pushing the bound to the following midnight.
func orderFilterFromRequest(r *http.Request, params pagination.Params) (repository.OrderFilter, error) {
	filter := repository.OrderFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if !validStatusFilters[status] {
			return filter, apperrors.InvalidInput("unknown order status: " + status)
		}
		filter.Status = &status
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return filter, apperrors.InvalidInput("from must be a date in YYYY-MM-DD format")
		}
		filter.From = &t
	}

	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return filter, apperrors.InvalidInput("to must be a date in YYYY-MM-DD format")
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}

	return filter, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/event"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/storage"
)

// Fees holds the platform fee configuration applied at checkout.
type Fees struct {
	AppFee      int64
	DeliveryFee int64
}

// OrderService implements checkout and the order lifecycle.
type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	stallRepo repository.StallRepository
	storage   storage.Storage
	producer  *event.Producer
	fees      Fees
	logger    *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	stallRepo repository.StallRepository,
	store storage.Storage,
	producer *event.Producer,
	fees Fees,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		stallRepo: stallRepo,
		storage:   store,
		producer:  producer,
		fees:      fees,
		logger:    logger,
	}
}

// CheckoutInput holds the parameters for checking out the cart.
type CheckoutInput struct {
	DeliveryMethod string
	Proof          UploadImageInput
}

// Checkout converts the user's cart into an order. The cart items are frozen
// into the order, the payment proof is stored, and the cart is removed. The
// order insert is the point of no return: a cart that changed concurrently
// is left for the buyer to reconcile rather than silently dropped.
func (s *OrderService) Checkout(ctx context.Context, userID string, input CheckoutInput) (*domain.Order, error) {
	if !domain.IsValidDeliveryMethod(input.DeliveryMethod) {
		return nil, apperrors.InvalidInput("delivery method must be pickup or delivery")
	}
	if err := validateProof(input.Proof); err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("cart is empty")
		}
		return nil, fmt.Errorf("get cart for checkout: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}
	cartVersion := cart.Version

	stall, err := s.stallRepo.GetByID(ctx, cart.StallID)
	if err != nil {
		return nil, fmt.Errorf("get stall for checkout: %w", err)
	}
	if !stall.IsOpen {
		return nil, apperrors.InvalidInput("stall is closed")
	}

	orderID := uuid.New().String()

	proofKey := fmt.Sprintf("proofs/%s/%s", orderID, uuid.New().String())
	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         proofKey,
		ContentType: input.Proof.ContentType,
		Size:        input.Proof.Size,
		Data:        input.Proof.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("upload payment proof: %w", err)
	}

	cart.Recalculate()
	itemsTotal := cart.TotalPrice

	deliveryFee := int64(0)
	if input.DeliveryMethod == domain.DeliveryMethodDelivery {
		deliveryFee = s.fees.DeliveryFee
	}

	items := make([]domain.OrderItem, len(cart.Items))
	for i, ci := range cart.Items {
		items[i] = domain.OrderItem{
			MenuItemID: ci.MenuItemID,
			Name:       ci.Name,
			Price:      ci.Price,
			ImageURL:   ci.ImageURL,
			Quantity:   ci.Quantity,
			Subtotal:   ci.Subtotal,
		}
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              orderID,
		UserID:          userID,
		StallID:         stall.ID,
		StallName:       stall.Name,
		StallImageURL:   stall.ImageURL,
		Items:           items,
		ItemsTotal:      itemsTotal,
		AppFee:          s.fees.AppFee,
		DeliveryMethod:  input.DeliveryMethod,
		DeliveryFee:     deliveryFee,
		TotalPrice:      domain.ComputeTotal(itemsTotal, s.fees.AppFee, deliveryFee),
		PaymentProofURL: result.URL,
		Status:          domain.StatusWaitingConfirmation,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// The order never existed, so the proof is an orphan.
		if delErr := s.storage.Delete(ctx, proofKey); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up payment proof after order insert failure",
				slog.String("key", proofKey),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	// Remove the cart only if it is still the one we snapshotted. A
	// concurrent mutation keeps the newer cart; the order already stands.
	removed, err := s.cartRepo.DeleteIfVersion(ctx, userID, cartVersion)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete cart after checkout",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if !removed {
		s.logger.WarnContext(ctx, "cart changed during checkout, leaving it in place",
			slog.String("user_id", userID),
			slog.String("order_id", orderID),
		)
	}

	if err := s.producer.PublishOrderCheckedOut(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.checked_out event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order checked out",
		slog.String("order_id", orderID),
		slog.String("user_id", userID),
		slog.String("stall_id", stall.ID),
		slog.Int64("total_price", order.TotalPrice),
	)

	return order, nil
}

// ResubmitProof replaces the payment proof on a rejected order, returning it
// to the confirmation queue with its rejection reason cleared.
func (s *OrderService) ResubmitProof(ctx context.Context, userID, orderID string, proof UploadImageInput) (*domain.Order, error) {
	if err := validateProof(proof); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for proof resubmission: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.Forbidden("order belongs to another account")
	}
	if order.Status != domain.StatusRejected {
		return nil, apperrors.InvalidState(fmt.Sprintf("proof can only be resubmitted for a rejected order, current status is %q", order.Status))
	}

	proofKey := fmt.Sprintf("proofs/%s/%s", orderID, uuid.New().String())
	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         proofKey,
		ContentType: proof.ContentType,
		Size:        proof.Size,
		Data:        proof.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("upload payment proof: %w", err)
	}

	oldProofURL := order.PaymentProofURL

	if err := s.orderRepo.UpdateProof(ctx, orderID, result.URL); err != nil {
		if delErr := s.storage.Delete(ctx, proofKey); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to clean up payment proof after update failure",
				slog.String("key", proofKey),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("update payment proof: %w", err)
	}

	// The superseded proof is garbage now. Best effort.
	if oldKey, ok := storageKeyFromURL(oldProofURL); ok {
		if err := s.storage.Delete(ctx, oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete superseded payment proof",
				slog.String("key", oldKey),
				slog.String("error", err.Error()),
			)
		}
	}

	oldStatus := order.Status
	order.PaymentProofURL = result.URL
	order.Status = domain.StatusWaitingConfirmation
	order.RejectionReason = ""

	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus, ""); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment proof resubmitted",
		slog.String("order_id", orderID),
		slog.String("user_id", userID),
	)

	return order, nil
}

// ConfirmOrder accepts the payment proof and moves the order to processing.
// Only the owning stall may confirm.
func (s *OrderService) ConfirmOrder(ctx context.Context, stallID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, stallID, orderID, domain.StatusProcessing, "")
}

// RejectOrder declines the payment proof with a reason the buyer can act on.
func (s *OrderService) RejectOrder(ctx context.Context, stallID, orderID, reason string) (*domain.Order, error) {
	reason = strings.TrimSpace(reason)
	if n := utf8.RuneCountInString(reason); n < domain.MinRejectionReasonLen || n > domain.MaxRejectionReasonLen {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rejection reason must be between %d and %d characters", domain.MinRejectionReasonLen, domain.MaxRejectionReasonLen))
	}
	return s.transition(ctx, stallID, orderID, domain.StatusRejected, reason)
}

// ReadyOrder marks the order as ready for pickup or delivery.
func (s *OrderService) ReadyOrder(ctx context.Context, stallID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, stallID, orderID, domain.StatusReady, "")
}

// CompleteOrder marks the order as handed over. Allowed from processing as
// well as ready so a direct handover does not require the intermediate step.
func (s *OrderService) CompleteOrder(ctx context.Context, stallID, orderID string) (*domain.Order, error) {
	return s.transition(ctx, stallID, orderID, domain.StatusCompleted, "")
}

// GetMyOrder retrieves an order owned by the buyer.
func (s *OrderService) GetMyOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.Forbidden("order belongs to another account")
	}
	return order, nil
}

// ListMyOrders returns the buyer's orders.
func (s *OrderService) ListMyOrders(ctx context.Context, userID string, filter repository.OrderFilter) ([]domain.Order, int, error) {
	filter.UserID = &userID
	filter.StallID = nil
	return s.list(ctx, filter)
}

// GetStallOrder retrieves an order belonging to the seller's stall.
func (s *OrderService) GetStallOrder(ctx context.Context, stallID, orderID string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.StallID != stallID {
		return nil, apperrors.Forbidden("order belongs to another stall")
	}
	return order, nil
}

// ListStallOrders returns orders placed against the seller's stall.
func (s *OrderService) ListStallOrders(ctx context.Context, stallID string, filter repository.OrderFilter) ([]domain.Order, int, error) {
	filter.StallID = &stallID
	filter.UserID = nil
	return s.list(ctx, filter)
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// transition moves an order to a new status after verifying stall ownership
// and transition legality.
func (s *OrderService) transition(ctx context.Context, stallID, orderID, newStatus, reason string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}
	if order.StallID != stallID {
		return nil, apperrors.Forbidden("order belongs to another stall")
	}

	if !order.CanTransitionTo(newStatus) {
		return nil, apperrors.InvalidState(fmt.Sprintf("cannot transition from %q to %q", order.Status, newStatus))
	}

	oldStatus := order.Status

	// The repository matches on the status we read, so a concurrent
	// transition cannot be silently overwritten.
	if err := s.orderRepo.UpdateStatus(ctx, orderID, oldStatus, newStatus, reason); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	order.Status = newStatus
	order.RejectionReason = reason

	if err := s.producer.PublishOrderStatusChanged(ctx, order, oldStatus, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	return order, nil
}

// validateProof checks a payment proof image payload.
func validateProof(proof UploadImageInput) error {
	if !domain.IsAllowedImageType(proof.ContentType) {
		return apperrors.InvalidInput(fmt.Sprintf("content type %q is not allowed for payment proof", proof.ContentType))
	}
	if proof.Size <= 0 {
		return apperrors.InvalidInput("payment proof is required")
	}
	if proof.Size > domain.MaxImageSize {
		return apperrors.InvalidInput(fmt.Sprintf("payment proof size %d exceeds maximum allowed size of %d bytes", proof.Size, domain.MaxImageSize))
	}
	return nil
}

// storageKeyFromURL extracts the storage key from a public upload URL.
func storageKeyFromURL(url string) (string, bool) {
	const marker = "/uploads/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return "", false
	}
	return url[idx+len(marker):], true
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/event"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
)

// ReviewService implements review submission and stall rating recompute.
type ReviewService struct {
	reviewRepo repository.ReviewRepository
	orderRepo  repository.OrderRepository
	stallRepo  repository.StallRepository
	userRepo   repository.UserRepository
	producer   *event.Producer
	logger     *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	orderRepo repository.OrderRepository,
	stallRepo repository.StallRepository,
	userRepo repository.UserRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		orderRepo:  orderRepo,
		stallRepo:  stallRepo,
		userRepo:   userRepo,
		producer:   producer,
		logger:     logger,
	}
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	OrderID   string
	Rating    int
	Comment   string
	Tags      []string
	ImageURLs []string
}

// CreateReview records a review for a completed order. Each order can be
// reviewed exactly once, by the buyer who placed it.
func (s *ReviewService) CreateReview(ctx context.Context, userID string, input CreateReviewInput) (*domain.Review, error) {
	if input.Rating < domain.MinRating || input.Rating > domain.MaxRating {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if len(input.Comment) > domain.MaxCommentLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("comment cannot exceed %d characters", domain.MaxCommentLength))
	}
	if len(input.Tags) > domain.MaxReviewTags {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d tags are allowed", domain.MaxReviewTags))
	}
	for _, tag := range input.Tags {
		if !domain.IsValidTag(tag) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown tag %q", tag))
		}
	}
	if len(input.ImageURLs) > domain.MaxReviewImages {
		return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d images are allowed", domain.MaxReviewImages))
	}

	order, err := s.orderRepo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order for review: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.Forbidden("order belongs to another account")
	}
	if order.Status != domain.StatusCompleted {
		return nil, apperrors.InvalidState("only completed orders can be reviewed")
	}
	if order.IsReviewed {
		return nil, apperrors.AlreadyExists("review", "order_id", input.OrderID)
	}
	if _, err := s.reviewRepo.GetByOrderID(ctx, input.OrderID); err == nil {
		return nil, apperrors.AlreadyExists("review", "order_id", input.OrderID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for review: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		UserID:    userID,
		StallID:   order.StallID,
		StallName: order.StallName,
		UserName:  user.Name,
		Rating:    input.Rating,
		Comment:   input.Comment,
		Tags:      input.Tags,
		ImageURLs: input.ImageURLs,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if err := s.orderRepo.MarkReviewed(ctx, order.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark order reviewed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	// Rating recompute is best effort: the review itself is the source of
	// truth and the next successful recompute heals the derived fields.
	s.recomputeStallRating(ctx, order.StallID)

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("order_id", order.ID),
		slog.String("stall_id", order.StallID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// GetOrderReview returns the review submitted for an order, if one exists.
func (s *ReviewService) GetOrderReview(ctx context.Context, orderID string) (*domain.Review, error) {
	review, err := s.reviewRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get review for order: %w", err)
	}
	return review, nil
}

// ListStallReviews returns a stall's reviews, newest first.
func (s *ReviewService) ListStallReviews(ctx context.Context, stallID string, page, perPage int) ([]domain.Review, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	if _, err := s.stallRepo.GetByID(ctx, stallID); err != nil {
		return nil, 0, fmt.Errorf("get stall for reviews: %w", err)
	}

	reviews, total, err := s.reviewRepo.ListByStall(ctx, stallID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// recomputeStallRating recalculates the stall's mean rating over the full
// review set and writes the derived fields. Failures are logged only.
func (s *ReviewService) recomputeStallRating(ctx context.Context, stallID string) {
	avg, count, err := s.reviewRepo.AggregateStall(ctx, stallID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to aggregate stall rating",
			slog.String("stall_id", stallID),
			slog.String("error", err.Error()),
		)
		return
	}

	rating := domain.RoundRating(avg)
	if err := s.stallRepo.UpdateRating(ctx, stallID, rating, count); err != nil {
		s.logger.ErrorContext(ctx, "failed to update stall rating",
			slog.String("stall_id", stallID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.InfoContext(ctx, "stall rating recomputed",
		slog.String("stall_id", stallID),
		slog.Float64("rating", rating),
		slog.Int("total_reviews", count),
	)
}

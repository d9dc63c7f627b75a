package repository

import (
	"context"
	"time"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *string
	StallID *string
	Status  *string
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// StallFilter defines filter criteria for listing stalls.
type StallFilter struct {
	OpenOnly bool
	Page     int
	PerPage  int
}

// MenuFilter defines filter criteria for listing a stall's menu.
type MenuFilter struct {
	Category      *string
	AvailableOnly bool
	Page          int
	PerPage       int
}

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// StallRepository defines persistence operations for stalls.
type StallRepository interface {
	Create(ctx context.Context, stall *domain.Stall) error
	GetByID(ctx context.Context, id string) (*domain.Stall, error)
	// GetByOwnerID resolves the stall owned by the given account. Used by
	// the auth middleware to enrich stall-owner requests.
	GetByOwnerID(ctx context.Context, ownerID string) (*domain.Stall, error)
	Update(ctx context.Context, stall *domain.Stall) error
	// UpdateRating writes the derived rating fields only.
	UpdateRating(ctx context.Context, stallID string, rating float64, totalReviews int) error
	List(ctx context.Context, filter StallFilter) ([]domain.Stall, int, error)
}

// MenuRepository defines persistence operations for menu items.
type MenuRepository interface {
	Create(ctx context.Context, item *domain.MenuItem) error
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
	Update(ctx context.Context, item *domain.MenuItem) error
	Delete(ctx context.Context, id string) error
	ListByStall(ctx context.Context, stallID string, filter MenuFilter) ([]domain.MenuItem, int, error)
}

// OrderRepository defines persistence operations for orders. Orders are
// never deleted.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
	// UpdateStatus changes the status and sets or clears the rejection
	// reason. The write only applies while the stored status still equals
	// fromStatus; a concurrent transition surfaces as a conflict error.
	UpdateStatus(ctx context.Context, id, fromStatus, status, rejectionReason string) error
	// UpdateProof replaces the payment proof URL, resets the status to
	// waiting_confirmation, and clears the rejection reason.
	UpdateProof(ctx context.Context, id, proofURL string) error
	// MarkReviewed sets the is_reviewed flag. Idempotent.
	MarkReviewed(ctx context.Context, id string) error
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	// GetByOrderID returns the review for an order, or a not-found error.
	// Order IDs are unique across reviews.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Review, error)
	ListByStall(ctx context.Context, stallID string, page, perPage int) ([]domain.Review, int, error)
	// AggregateStall recomputes the mean rating and review count for a
	// stall by scanning all of its reviews.
	AggregateStall(ctx context.Context, stallID string) (avg float64, count int, err error)
}

// CartRepository defines persistence operations for carts. Carts live in a
// separate store keyed by user id, one document per user.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	// SaveIfVersion persists the cart only if the stored version still
	// matches expectedVersion; returns false on a concurrent modification.
	// The stored version is incremented on success.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)
	Delete(ctx context.Context, userID string) error
	// DeleteIfVersion removes the cart only if the stored version still
	// matches expectedVersion; returns false on a concurrent modification.
	DeleteIfVersion(ctx context.Context, userID string, expectedVersion int) (bool, error)
}

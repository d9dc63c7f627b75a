package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
)

// maxCartRetries bounds optimistic-save retries on concurrent cart writes.
const maxCartRetries = 3

// CartService implements the single-stall cart.
type CartService struct {
	cartRepo  repository.CartRepository
	stallRepo repository.StallRepository
	menuRepo  repository.MenuRepository
	logger    *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(
	cartRepo repository.CartRepository,
	stallRepo repository.StallRepository,
	menuRepo repository.MenuRepository,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		cartRepo:  cartRepo,
		stallRepo: stallRepo,
		menuRepo:  menuRepo,
		logger:    logger,
	}
}

// AddItemInput holds the parameters for adding a menu item to the cart.
type AddItemInput struct {
	MenuItemID string
	Quantity   int
	// Replace discards an existing cart from a different stall instead of
	// rejecting the add.
	Replace bool
}

// GetCart returns the user's cart, or an empty cart when none exists.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds a menu item to the cart, snapshotting its name, price, and
// image. All cart items must come from the same stall.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (*domain.Cart, error) {
	if input.Quantity < domain.MinQuantityPerItem || input.Quantity > domain.MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between %d and %d", domain.MinQuantityPerItem, domain.MaxQuantityPerItem))
	}

	item, err := s.menuRepo.GetByID(ctx, input.MenuItemID)
	if err != nil {
		return nil, fmt.Errorf("get menu item for cart: %w", err)
	}
	if !item.IsAvailable {
		return nil, apperrors.InvalidInput("menu item is not available")
	}

	stall, err := s.stallRepo.GetByID(ctx, item.StallID)
	if err != nil {
		return nil, fmt.Errorf("get stall for cart: %w", err)
	}
	if !stall.IsOpen {
		return nil, apperrors.InvalidInput("stall is closed")
	}

	for attempt := 0; attempt < maxCartRetries; attempt++ {
		cart, version, err := s.loadCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		if cart == nil || cart.IsEmpty() {
			now := time.Now().UTC()
			cart = &domain.Cart{
				UserID:    userID,
				StallID:   stall.ID,
				StallName: stall.Name,
				Items:     []domain.CartItem{},
				CreatedAt: now,
				UpdatedAt: now,
			}
		} else if cart.StallID != stall.ID {
			if !input.Replace {
				return nil, apperrors.Conflict("cart contains items from another stall")
			}
			now := time.Now().UTC()
			cart = &domain.Cart{
				UserID:    userID,
				StallID:   stall.ID,
				StallName: stall.Name,
				Items:     []domain.CartItem{},
				CreatedAt: now,
				UpdatedAt: now,
			}
		}

		if idx := cart.FindItemIndex(item.ID); idx >= 0 {
			newQty := cart.Items[idx].Quantity + input.Quantity
			if newQty > domain.MaxQuantityPerItem {
				return nil, apperrors.InvalidInput(fmt.Sprintf("quantity per item cannot exceed %d", domain.MaxQuantityPerItem))
			}
			cart.Items[idx].Quantity = newQty
		} else {
			cart.Items = append(cart.Items, domain.CartItem{
				MenuItemID: item.ID,
				Name:       item.Name,
				Price:      item.Price,
				ImageURL:   item.ImageURL,
				Quantity:   input.Quantity,
			})
		}

		cart.Recalculate()
		cart.UpdatedAt = time.Now().UTC()

		ok, err := s.cartRepo.SaveIfVersion(ctx, cart, version)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if ok {
			s.logger.InfoContext(ctx, "cart item added",
				slog.String("user_id", userID),
				slog.String("menu_item_id", item.ID),
				slog.Int("quantity", input.Quantity),
			)
			return cart, nil
		}
	}

	return nil, apperrors.Conflict("cart was modified concurrently, retry the request")
}

// UpdateItemQuantity sets the quantity of a cart item.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, menuItemID string, quantity int) (*domain.Cart, error) {
	if quantity < domain.MinQuantityPerItem || quantity > domain.MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between %d and %d", domain.MinQuantityPerItem, domain.MaxQuantityPerItem))
	}

	for attempt := 0; attempt < maxCartRetries; attempt++ {
		cart, version, err := s.loadCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			return nil, apperrors.NotFound("cart", userID)
		}

		idx := cart.FindItemIndex(menuItemID)
		if idx < 0 {
			return nil, apperrors.NotFound("cart item", menuItemID)
		}

		cart.Items[idx].Quantity = quantity
		cart.Recalculate()
		cart.UpdatedAt = time.Now().UTC()

		ok, err := s.cartRepo.SaveIfVersion(ctx, cart, version)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if ok {
			return cart, nil
		}
	}

	return nil, apperrors.Conflict("cart was modified concurrently, retry the request")
}

// RemoveItem removes a menu item from the cart. Removing the last item
// deletes the cart entirely.
func (s *CartService) RemoveItem(ctx context.Context, userID, menuItemID string) (*domain.Cart, error) {
	for attempt := 0; attempt < maxCartRetries; attempt++ {
		cart, version, err := s.loadCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			return nil, apperrors.NotFound("cart", userID)
		}

		idx := cart.FindItemIndex(menuItemID)
		if idx < 0 {
			return nil, apperrors.NotFound("cart item", menuItemID)
		}

		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

		if cart.IsEmpty() {
			ok, err := s.cartRepo.DeleteIfVersion(ctx, userID, version)
			if err != nil {
				return nil, fmt.Errorf("delete empty cart: %w", err)
			}
			if ok {
				s.logger.InfoContext(ctx, "cart deleted after last item removed",
					slog.String("user_id", userID),
				)
				return &domain.Cart{UserID: userID, Items: []domain.CartItem{}}, nil
			}
			continue
		}

		cart.Recalculate()
		cart.UpdatedAt = time.Now().UTC()

		ok, err := s.cartRepo.SaveIfVersion(ctx, cart, version)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if ok {
			return cart, nil
		}
	}

	return nil, apperrors.Conflict("cart was modified concurrently, retry the request")
}

// ClearCart removes the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.cartRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
	)

	return nil
}

// loadCart fetches the cart and its current version. A missing cart returns
// nil with version 0 so the caller can create one.
func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, int, error) {
	cart, err := s.cartRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("get cart: %w", err)
	}
	return cart, cart.Version, nil
}

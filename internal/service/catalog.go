package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/storage"
)

// CatalogService implements stall and menu management.
type CatalogService struct {
	stallRepo repository.StallRepository
	menuRepo  repository.MenuRepository
	storage   storage.Storage
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	stallRepo repository.StallRepository,
	menuRepo repository.MenuRepository,
	store storage.Storage,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		stallRepo: stallRepo,
		menuRepo:  menuRepo,
		storage:   store,
		logger:    logger,
	}
}

// CreateStallInput holds the parameters for creating a stall.
type CreateStallInput struct {
	OwnerID     string
	Name        string
	Description string
}

// UpdateStallInput holds the parameters for updating a stall.
type UpdateStallInput struct {
	Name        *string
	Description *string
	IsOpen      *bool
}

// CreateMenuItemInput holds the parameters for creating a menu item.
type CreateMenuItemInput struct {
	Name        string
	Description string
	Price       int64
	Category    string
	IsAvailable bool
}

// UpdateMenuItemInput holds the parameters for updating a menu item.
type UpdateMenuItemInput struct {
	Name        *string
	Description *string
	Price       *int64
	Category    *string
	IsAvailable *bool
}

// UploadImageInput holds the parameters for an image upload.
type UploadImageInput struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// CreateStall creates a stall for the given owner. Each owner may have at
// most one stall.
func (s *CatalogService) CreateStall(ctx context.Context, input CreateStallInput) (*domain.Stall, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("stall name is required")
	}

	now := time.Now().UTC()
	stall := &domain.Stall{
		ID:          uuid.New().String(),
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Description: input.Description,
		IsOpen:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.stallRepo.Create(ctx, stall); err != nil {
		return nil, fmt.Errorf("create stall: %w", err)
	}

	s.logger.InfoContext(ctx, "stall created",
		slog.String("stall_id", stall.ID),
		slog.String("owner_id", stall.OwnerID),
	)

	return stall, nil
}

// GetStall retrieves a stall by ID.
func (s *CatalogService) GetStall(ctx context.Context, id string) (*domain.Stall, error) {
	stall, err := s.stallRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stall: %w", err)
	}
	return stall, nil
}

// ListStalls returns a filtered, paginated list of stalls.
func (s *CatalogService) ListStalls(ctx context.Context, filter repository.StallFilter) ([]domain.Stall, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	stalls, total, err := s.stallRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list stalls: %w", err)
	}
	return stalls, total, nil
}

// UpdateStall updates the caller's stall. Only the owner may modify it.
func (s *CatalogService) UpdateStall(ctx context.Context, ownerID, stallID string, input UpdateStallInput) (*domain.Stall, error) {
	stall, err := s.stallRepo.GetByID(ctx, stallID)
	if err != nil {
		return nil, fmt.Errorf("get stall for update: %w", err)
	}

	if stall.OwnerID != ownerID {
		return nil, apperrors.Forbidden("stall belongs to another owner")
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("stall name must not be empty")
		}
		stall.Name = *input.Name
	}
	if input.Description != nil {
		stall.Description = *input.Description
	}
	if input.IsOpen != nil {
		stall.IsOpen = *input.IsOpen
	}

	if err := s.stallRepo.Update(ctx, stall); err != nil {
		return nil, fmt.Errorf("update stall: %w", err)
	}

	s.logger.InfoContext(ctx, "stall updated",
		slog.String("stall_id", stall.ID),
	)

	return stall, nil
}

// UploadStallImage validates and stores a stall image, updating the stall's
// image URL.
func (s *CatalogService) UploadStallImage(ctx context.Context, ownerID, stallID string, input UploadImageInput) (*domain.Stall, error) {
	stall, err := s.stallRepo.GetByID(ctx, stallID)
	if err != nil {
		return nil, fmt.Errorf("get stall for image upload: %w", err)
	}
	if stall.OwnerID != ownerID {
		return nil, apperrors.Forbidden("stall belongs to another owner")
	}

	url, err := s.uploadImage(ctx, fmt.Sprintf("stalls/%s", stallID), input)
	if err != nil {
		return nil, err
	}

	stall.ImageURL = url
	if err := s.stallRepo.Update(ctx, stall); err != nil {
		return nil, fmt.Errorf("update stall image: %w", err)
	}

	return stall, nil
}

// CreateMenuItem adds a menu item to the owner's stall.
func (s *CatalogService) CreateMenuItem(ctx context.Context, ownerID, stallID string, input CreateMenuItemInput) (*domain.MenuItem, error) {
	stall, err := s.stallRepo.GetByID(ctx, stallID)
	if err != nil {
		return nil, fmt.Errorf("get stall for menu create: %w", err)
	}
	if stall.OwnerID != ownerID {
		return nil, apperrors.Forbidden("stall belongs to another owner")
	}

	if input.Name == "" {
		return nil, apperrors.InvalidInput("menu item name is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be greater than zero")
	}

	now := time.Now().UTC()
	item := &domain.MenuItem{
		ID:          uuid.New().String(),
		StallID:     stallID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		IsAvailable: input.IsAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.menuRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}

	s.logger.InfoContext(ctx, "menu item created",
		slog.String("menu_item_id", item.ID),
		slog.String("stall_id", stallID),
	)

	return item, nil
}

// GetMenuItem retrieves a menu item by ID.
func (s *CatalogService) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	item, err := s.menuRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return item, nil
}

// ListMenu returns a stall's menu items.
func (s *CatalogService) ListMenu(ctx context.Context, stallID string, filter repository.MenuFilter) ([]domain.MenuItem, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	if _, err := s.stallRepo.GetByID(ctx, stallID); err != nil {
		return nil, 0, fmt.Errorf("get stall for menu list: %w", err)
	}

	items, total, err := s.menuRepo.ListByStall(ctx, stallID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list menu items: %w", err)
	}
	return items, total, nil
}

// UpdateMenuItem updates a menu item on the owner's stall. Placed orders
// carry their own snapshot and are unaffected.
func (s *CatalogService) UpdateMenuItem(ctx context.Context, ownerID, itemID string, input UpdateMenuItemInput) (*domain.MenuItem, error) {
	item, err := s.getOwnedMenuItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("menu item name must not be empty")
		}
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, apperrors.InvalidInput("price must be greater than zero")
		}
		item.Price = *input.Price
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	if input.IsAvailable != nil {
		item.IsAvailable = *input.IsAvailable
	}

	if err := s.menuRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}

	s.logger.InfoContext(ctx, "menu item updated",
		slog.String("menu_item_id", item.ID),
	)

	return item, nil
}

// DeleteMenuItem removes a menu item from the owner's stall.
func (s *CatalogService) DeleteMenuItem(ctx context.Context, ownerID, itemID string) error {
	item, err := s.getOwnedMenuItem(ctx, ownerID, itemID)
	if err != nil {
		return err
	}

	if err := s.menuRepo.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}

	s.logger.InfoContext(ctx, "menu item deleted",
		slog.String("menu_item_id", item.ID),
	)

	return nil
}

// UploadMenuImage validates and stores a menu item image.
func (s *CatalogService) UploadMenuImage(ctx context.Context, ownerID, itemID string, input UploadImageInput) (*domain.MenuItem, error) {
	item, err := s.getOwnedMenuItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	url, err := s.uploadImage(ctx, fmt.Sprintf("menu/%s", item.ID), input)
	if err != nil {
		return nil, err
	}

	item.ImageURL = url
	if err := s.menuRepo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("update menu item image: %w", err)
	}

	return item, nil
}

// getOwnedMenuItem loads a menu item and verifies the caller owns the stall
// it belongs to.
func (s *CatalogService) getOwnedMenuItem(ctx context.Context, ownerID, itemID string) (*domain.MenuItem, error) {
	item, err := s.menuRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}

	stall, err := s.stallRepo.GetByID(ctx, item.StallID)
	if err != nil {
		return nil, fmt.Errorf("get stall for menu item: %w", err)
	}
	if stall.OwnerID != ownerID {
		return nil, apperrors.Forbidden("menu item belongs to another stall")
	}

	return item, nil
}

// uploadImage validates an image payload and stores it under the given key
// prefix, returning the public URL.
func (s *CatalogService) uploadImage(ctx context.Context, prefix string, input UploadImageInput) (string, error) {
	if !domain.IsAllowedImageType(input.ContentType) {
		return "", apperrors.InvalidInput(fmt.Sprintf("content type %q is not allowed", input.ContentType))
	}
	if input.Size <= 0 {
		return "", apperrors.InvalidInput("file size must be greater than zero")
	}
	if input.Size > domain.MaxImageSize {
		return "", apperrors.InvalidInput(fmt.Sprintf("file size %d exceeds maximum allowed size of %d bytes", input.Size, domain.MaxImageSize))
	}

	key := fmt.Sprintf("%s/%s", prefix, uuid.New().String())
	result, err := s.storage.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: input.ContentType,
		Size:        input.Size,
		Data:        input.Data,
	})
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	return result.URL, nil
}

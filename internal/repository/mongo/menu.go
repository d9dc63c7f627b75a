package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
)

// MenuRepository implements repository.MenuRepository using MongoDB.
type MenuRepository struct {
	coll *mongo.Collection
}

// NewMenuRepository creates a new MongoDB-backed menu repository.
func NewMenuRepository(db *mongo.Database) *MenuRepository {
	return &MenuRepository{coll: db.Collection("menu_items")}
}

// Create inserts a new menu item.
func (r *MenuRepository) Create(ctx context.Context, item *domain.MenuItem) error {
	if _, err := r.coll.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert menu item: %w", err)
	}
	return nil
}

// GetByID retrieves a menu item by ID.
func (r *MenuRepository) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("menu item", id)
		}
		return nil, fmt.Errorf("find menu item: %w", err)
	}
	return &item, nil
}

// Update replaces mutable menu item fields.
func (r *MenuRepository) Update(ctx context.Context, item *domain.MenuItem) error {
	update := bson.M{"$set": bson.M{
		"name":         item.Name,
		"description":  item.Description,
		"price":        item.Price,
		"image_url":    item.ImageURL,
		"category":     item.Category,
		"is_available": item.IsAvailable,
		"updated_at":   time.Now().UTC(),
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": item.ID}, update)
	if err != nil {
		return fmt.Errorf("update menu item: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("menu item", item.ID)
	}
	return nil
}

// Delete removes a menu item. Existing order snapshots are unaffected since
// orders carry their own copy of item data.
func (r *MenuRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("menu item", id)
	}
	return nil
}

// ListByStall returns a stall's menu items matching the filter with the
// total count.
func (r *MenuRepository) ListByStall(ctx context.Context, stallID string, filter repository.MenuFilter) ([]domain.MenuItem, int, error) {
	query := bson.M{"stall_id": stallID}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.AvailableOnly {
		query["is_available"] = true
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count menu items: %w", err)
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	skip := 0
	if filter.Page > 1 {
		skip = (filter.Page - 1) * limit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list menu items: %w", err)
	}
	defer cur.Close(ctx)

	items := make([]domain.MenuItem, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode menu items: %w", err)
	}

	return items, int(total), nil
}

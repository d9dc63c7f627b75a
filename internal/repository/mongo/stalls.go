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

// StallRepository implements repository.StallRepository using MongoDB.
type StallRepository struct {
	coll *mongo.Collection
}

// NewStallRepository creates a new MongoDB-backed stall repository.
func NewStallRepository(db *mongo.Database) *StallRepository {
	return &StallRepository{coll: db.Collection("stalls")}
}

// Create inserts a new stall. Each owner may have at most one stall,
// enforced by a unique index on owner_id.
func (r *StallRepository) Create(ctx context.Context, stall *domain.Stall) error {
	if _, err := r.coll.InsertOne(ctx, stall); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("stall", "owner_id", stall.OwnerID)
		}
		return fmt.Errorf("insert stall: %w", err)
	}
	return nil
}

// GetByID retrieves a stall by ID.
func (r *StallRepository) GetByID(ctx context.Context, id string) (*domain.Stall, error) {
	var stall domain.Stall
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&stall); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("stall", id)
		}
		return nil, fmt.Errorf("find stall: %w", err)
	}
	return &stall, nil
}

// GetByOwnerID retrieves the stall owned by the given account.
func (r *StallRepository) GetByOwnerID(ctx context.Context, ownerID string) (*domain.Stall, error) {
	var stall domain.Stall
	if err := r.coll.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&stall); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("stall", ownerID)
		}
		return nil, fmt.Errorf("find stall by owner: %w", err)
	}
	return &stall, nil
}

// Update replaces mutable stall fields. The derived rating fields are not
// touched here; UpdateRating owns them.
func (r *StallRepository) Update(ctx context.Context, stall *domain.Stall) error {
	update := bson.M{"$set": bson.M{
		"name":        stall.Name,
		"description": stall.Description,
		"image_url":   stall.ImageURL,
		"is_open":     stall.IsOpen,
		"updated_at":  time.Now().UTC(),
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": stall.ID}, update)
	if err != nil {
		return fmt.Errorf("update stall: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("stall", stall.ID)
	}
	return nil
}

// UpdateRating writes the derived rating fields only.
func (r *StallRepository) UpdateRating(ctx context.Context, stallID string, rating float64, totalReviews int) error {
	update := bson.M{"$set": bson.M{
		"rating":        rating,
		"total_reviews": totalReviews,
		"updated_at":    time.Now().UTC(),
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": stallID}, update)
	if err != nil {
		return fmt.Errorf("update stall rating: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("stall", stallID)
	}
	return nil
}

// List returns stalls matching the given filter with the total count.
func (r *StallRepository) List(ctx context.Context, filter repository.StallFilter) ([]domain.Stall, int, error) {
	query := bson.M{}
	if filter.OpenOnly {
		query["is_open"] = true
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count stalls: %w", err)
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
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list stalls: %w", err)
	}
	defer cur.Close(ctx)

	stalls := make([]domain.Stall, 0)
	if err := cur.All(ctx, &stalls); err != nil {
		return nil, 0, fmt.Errorf("decode stalls: %w", err)
	}

	return stalls, int(total), nil
}

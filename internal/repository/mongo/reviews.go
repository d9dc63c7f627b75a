package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
)

// ReviewRepository implements repository.ReviewRepository using MongoDB.
type ReviewRepository struct {
	coll *mongo.Collection
}

// NewReviewRepository creates a new MongoDB-backed review repository.
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection("reviews")}
}

// EnsureIndexes creates the unique index on order_id that backs the
// one-review-per-order guarantee. Idempotent; called once at startup.
func (r *ReviewRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create review indexes: %w", err)
	}
	return nil
}

// Create inserts a new review. A unique index on order_id guarantees at most
// one review per order even under concurrent submissions.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if _, err := r.coll.InsertOne(ctx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("review", "order_id", review.OrderID)
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetByOrderID retrieves the review written for an order.
func (r *ReviewRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Review, error) {
	var review domain.Review
	if err := r.coll.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&review); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("review", orderID)
		}
		return nil, fmt.Errorf("find review by order: %w", err)
	}
	return &review, nil
}

// ListByStall returns a stall's reviews with the total count, newest first.
func (r *ReviewRepository) ListByStall(ctx context.Context, stallID string, page, perPage int) ([]domain.Review, int, error) {
	query := bson.M{"stall_id": stallID}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	skip := 0
	if page > 1 {
		skip = (page - 1) * limit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer cur.Close(ctx)

	reviews := make([]domain.Review, 0)
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, 0, fmt.Errorf("decode reviews: %w", err)
	}

	return reviews, int(total), nil
}

// AggregateStall recomputes the mean rating and review count for a stall
// server-side over the full review set.
func (r *ReviewRepository) AggregateStall(ctx context.Context, stallID string) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"stall_id": stallID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate reviews: %w", err)
	}
	defer cur.Close(ctx)

	var result struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&result); err != nil {
			return 0, 0, fmt.Errorf("decode review aggregate: %w", err)
		}
	}
	if err := cur.Err(); err != nil {
		return 0, 0, fmt.Errorf("iterate review aggregate: %w", err)
	}

	return result.Avg, result.Count, nil
}

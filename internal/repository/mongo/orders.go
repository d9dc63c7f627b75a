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

// OrderRepository implements repository.OrderRepository using MongoDB.
// Legacy status values are normalized on every read so callers only ever
// see live states.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository creates a new MongoDB-backed order repository.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection("orders")}
}

// Create inserts a new order with its frozen item snapshot.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if _, err := r.coll.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	order.Status = domain.NormalizeStatus(order.Status)
	return &order, nil
}

// List returns orders matching the given filter with the total count,
// newest first.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["user_id"] = *filter.UserID
	}
	if filter.StallID != nil {
		query["stall_id"] = *filter.StallID
	}
	if filter.Status != nil {
		query["status"] = statusMatch(*filter.Status)
	}
	if filter.From != nil || filter.To != nil {
		created := bson.M{}
		if filter.From != nil {
			created["$gte"] = *filter.From
		}
		if filter.To != nil {
			created["$lt"] = *filter.To
		}
		query["created_at"] = created
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
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
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer cur.Close(ctx)

	orders := make([]domain.Order, 0)
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}

	for i := range orders {
		orders[i].Status = domain.NormalizeStatus(orders[i].Status)
	}

	return orders, int(total), nil
}

// statusMatch builds a status filter value. The legacy stored value matches
// its normalized form too.
func statusMatch(status string) any {
	if status == domain.StatusProcessing {
		return bson.M{"$in": bson.A{domain.StatusProcessing, "confirmed"}}
	}
	return status
}

// UpdateStatus changes the status of an order and sets or clears the
// rejection reason. The filter includes the status the caller read, making
// the transition guard atomic at the document level.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, fromStatus, status, rejectionReason string) error {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if rejectionReason != "" {
		set["rejection_reason"] = rejectionReason
	} else {
		update["$unset"] = bson.M{"rejection_reason": ""}
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "status": statusMatch(fromStatus)}, update)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
			return apperrors.NotFound("order", id)
		}
		return apperrors.Conflict("order status changed concurrently")
	}
	return nil
}

// UpdateProof replaces the payment proof URL, resets the status to
// waiting_confirmation, and clears the rejection reason.
func (r *OrderRepository) UpdateProof(ctx context.Context, id, proofURL string) error {
	update := bson.M{
		"$set": bson.M{
			"payment_proof_url": proofURL,
			"status":            domain.StatusWaitingConfirmation,
			"updated_at":        time.Now().UTC(),
		},
		"$unset": bson.M{"rejection_reason": ""},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update payment proof: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// MarkReviewed sets the is_reviewed flag.
func (r *OrderRepository) MarkReviewed(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{
		"is_reviewed": true,
		"updated_at":  time.Now().UTC(),
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("mark order reviewed: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

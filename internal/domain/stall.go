package domain

import "time"

// Stall is a vendor entity with its own menu, owned by exactly one
// stall-owner account. Rating and TotalReviews are derived fields,
// recomputed from the full review set on every review write.
type Stall struct {
	ID           string    `json:"id" bson:"_id"`
	OwnerID      string    `json:"owner_id" bson:"owner_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL     string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	IsOpen       bool      `json:"is_open" bson:"is_open"`
	Rating       float64   `json:"rating" bson:"rating"`
	TotalReviews int       `json:"total_reviews" bson:"total_reviews"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// MenuItem is a single dish offered by a stall.
type MenuItem struct {
	ID          string    `json:"id" bson:"_id"`
	StallID     string    `json:"stall_id" bson:"stall_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Price       int64     `json:"price" bson:"price"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	IsAvailable bool      `json:"is_available" bson:"is_available"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

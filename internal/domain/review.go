package domain

import (
	"math"
	"time"
)

// Review limits.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxReviewTags    = 5
	MaxReviewImages  = 5
	MaxCommentLength = 1000
)

// ReviewTags is the closed vocabulary of review tags.
var ReviewTags = map[string]bool{
	"enak":           true,
	"murah":          true,
	"porsi_besar":    true,
	"cepat":          true,
	"ramah":          true,
	"bersih":         true,
	"sesuai_pesanan": true,
	"kemasan_rapi":   true,
}

// Review is a 1-5 rating plus optional comment, tags, and images, permitted
// once per completed order.
type Review struct {
	ID        string    `json:"id" bson:"_id"`
	OrderID   string    `json:"order_id" bson:"order_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	StallID   string    `json:"stall_id" bson:"stall_id"`
	StallName string    `json:"stall_name" bson:"stall_name"`
	UserName  string    `json:"user_name" bson:"user_name"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	Tags      []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	ImageURLs []string  `json:"image_urls,omitempty" bson:"image_urls,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// IsValidTag checks whether the tag belongs to the closed vocabulary.
func IsValidTag(tag string) bool {
	return ReviewTags[tag]
}

// RoundRating rounds an average rating to one decimal place.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}

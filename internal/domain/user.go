package domain

import "time"

// Role constants.
const (
	RoleUser       = "user"
	RoleStallOwner = "stall_owner"
	RoleAdmin      = "admin"
)

// User is an account document. The role is always resolved from this
// document per request, never trusted from the token, so role changes take
// effect immediately.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         string    `json:"role" bson:"role"`
	PhotoURL     string    `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// TokenPair holds an access/refresh token pair returned by auth operations.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsValidRole checks whether the role is one of the known roles.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleStallOwner || role == RoleAdmin
}

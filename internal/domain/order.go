package domain

import "time"

// Order status constants. StatusPendingPayment exists in the schema for
// documents that predate proof-at-checkout but is never produced by any
// write path. The legacy value "confirmed" is normalized to
// StatusProcessing when a document is read (see NormalizeStatus).
const (
	StatusPendingPayment      = "pending_payment"
	StatusWaitingConfirmation = "waiting_confirmation"
	StatusProcessing          = "processing"
	StatusReady               = "ready"
	StatusCompleted           = "completed"
	StatusRejected            = "rejected"

	legacyStatusConfirmed = "confirmed"
)

// Delivery method constants.
const (
	DeliveryMethodPickup   = "pickup"
	DeliveryMethodDelivery = "delivery"
)

// Rejection reason length bounds.
const (
	MinRejectionReasonLen = 10
	MaxRejectionReasonLen = 500
)

// Order represents a placed order. Items are a frozen snapshot of the cart
// at checkout; later menu edits never change a placed order. Orders are
// permanent history and are never deleted.
type Order struct {
	ID              string      `json:"id" bson:"_id"`
	UserID          string      `json:"user_id" bson:"user_id"`
	StallID         string      `json:"stall_id" bson:"stall_id"`
	StallName       string      `json:"stall_name" bson:"stall_name"`
	StallImageURL   string      `json:"stall_image_url,omitempty" bson:"stall_image_url,omitempty"`
	Items           []OrderItem `json:"items" bson:"items"`
	ItemsTotal      int64       `json:"items_total" bson:"items_total"`
	AppFee          int64       `json:"app_fee" bson:"app_fee"`
	DeliveryMethod  string      `json:"delivery_method" bson:"delivery_method"`
	DeliveryFee     int64       `json:"delivery_fee" bson:"delivery_fee"`
	TotalPrice      int64       `json:"total_price" bson:"total_price"`
	PaymentProofURL string      `json:"payment_proof_url,omitempty" bson:"payment_proof_url,omitempty"`
	Status          string      `json:"status" bson:"status"`
	RejectionReason string      `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`
	IsReviewed      bool        `json:"is_reviewed" bson:"is_reviewed"`
	CreatedAt       time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" bson:"updated_at"`
}

// OrderItem is a line item frozen at checkout time.
type OrderItem struct {
	MenuItemID string `json:"menu_item_id" bson:"menu_item_id"`
	Name       string `json:"name" bson:"name"`
	Price      int64  `json:"price" bson:"price"`
	ImageURL   string `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Quantity   int    `json:"quantity" bson:"quantity"`
	Subtotal   int64  `json:"subtotal" bson:"subtotal"`
}

// NormalizeStatus maps legacy persisted status values to their current
// equivalents. It is applied at the deserialization boundary so the rest of
// the engine only ever sees live states.
func NormalizeStatus(status string) string {
	if status == legacyStatusConfirmed {
		return StatusProcessing
	}
	return status
}

// IsValidDeliveryMethod checks whether the given delivery method is known.
func IsValidDeliveryMethod(m string) bool {
	return m == DeliveryMethodPickup || m == DeliveryMethodDelivery
}

// AllowedTransitions defines which status transitions are valid. There is no
// transition out of completed, rejected loops back to waiting_confirmation
// through proof resubmission, and there is no cancelled state: only the
// seller can reject at the confirmation step.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		StatusWaitingConfirmation: {StatusProcessing, StatusRejected},
		StatusRejected:            {StatusWaitingConfirmation},
		StatusProcessing:          {StatusReady, StatusCompleted},
		StatusReady:               {StatusCompleted},
		StatusCompleted:           {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// ComputeTotal returns the server-side total: items total plus the fixed
// app fee plus the delivery fee. Client-supplied totals are never trusted.
func ComputeTotal(itemsTotal, appFee, deliveryFee int64) int64 {
	return itemsTotal + appFee + deliveryFee
}

package domain

import "time"

// Cart quantity bounds.
const (
	MinQuantityPerItem = 1
	MaxQuantityPerItem = 99
)

// Cart is a buyer's in-progress selection. One cart per user, and all items
// belong to the same stall. The cart is deleted, not left empty, when the
// last item is removed.
type Cart struct {
	UserID     string     `json:"user_id"`
	StallID    string     `json:"stall_id"`
	StallName  string     `json:"stall_name"`
	Items      []CartItem `json:"items"`
	TotalPrice int64      `json:"total_price"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is a snapshot of a menu item at the moment it was added.
type CartItem struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	ImageURL   string `json:"image_url,omitempty"`
	Quantity   int    `json:"quantity"`
	Subtotal   int64  `json:"subtotal"`
}

// Recalculate recomputes each item subtotal and the cart total from prices
// and quantities. Called after every mutation so the stored totals never
// drift from the items.
func (c *Cart) Recalculate() {
	var total int64
	for i := range c.Items {
		c.Items[i].Subtotal = c.Items[i].Price * int64(c.Items[i].Quantity)
		total += c.Items[i].Subtotal
	}
	c.TotalPrice = total
}

// FindItemIndex returns the index of the cart item for the given menu item,
// or -1 if not present.
func (c *Cart) FindItemIndex(menuItemID string) int {
	for i := range c.Items {
		if c.Items[i].MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

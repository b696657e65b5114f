package cart

import (
	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// Cart is an ordered list of lines keyed by (product, variant) identity.
// All arithmetic is in minor currency units.
type Cart struct {
	Items []domain.CartItem `json:"items"`
}

// New returns an empty cart
func New() *Cart {
	return &Cart{Items: []domain.CartItem{}}
}

// Add merges the item into the cart. An item whose identity key already
// exists increments that line's quantity instead of appending a row.
// Quantity is clamped at maxQuantity.
func (c *Cart) Add(item domain.CartItem, maxQuantity int) error {
	if item.ProductID == "" {
		return &errors.ErrInvalidItem{Reason: "product id is required"}
	}
	if item.UnitPrice <= 0 {
		return &errors.ErrInvalidItem{Reason: "unit price must be positive"}
	}
	if item.Quantity < 1 {
		return &errors.ErrInvalidItem{Reason: "quantity must be at least 1"}
	}

	key := item.Key()
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity += item.Quantity
			if c.Items[i].Quantity > maxQuantity {
				c.Items[i].Quantity = maxQuantity
			}
			return nil
		}
	}

	if item.Quantity > maxQuantity {
		item.Quantity = maxQuantity
	}
	c.Items = append(c.Items, item)
	return nil
}

// UpdateQuantity sets the quantity of the line with the given key.
// A quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(key string, quantity int) {
	if quantity <= 0 {
		c.Remove(key)
		return
	}
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity = quantity
			return
		}
	}
}

// Remove deletes the line with the given key, if present
func (c *Cart) Remove(key string) {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear removes every line
func (c *Cart) Clear() {
	c.Items = c.Items[:0]
}

// Total returns the sum of line subtotals in minor units
func (c *Cart) Total() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Subtotal()
	}
	return total
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Snapshot returns a copy of the lines for use in a checkout session, so
// later cart mutations cannot alter an in-flight checkout.
func (c *Cart) Snapshot() []domain.CartItem {
	items := make([]domain.CartItem, len(c.Items))
	copy(items, c.Items)
	return items
}

package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog product
type Product struct {
	ID          uuid.UUID
	SKU         string
	Name        string
	Description string
	Category    string
	// Price in minor currency units (cents)
	Price     int64
	ImageURLs []string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Page represents an editable content page
type Page struct {
	ID        uuid.UUID
	Slug      string
	Title     string
	Body      string
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Media represents an uploaded media asset
type Media struct {
	ID          uuid.UUID
	Filename    string
	URL         string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

// AdminUser represents a back-office user
type AdminUser struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CartItem represents a single cart line. Lines are identified by the
// (ProductID, SelectedVariant) pair, not by ProductID alone.
type CartItem struct {
	ProductID       string            `json:"product_id"`
	Name            string            `json:"name"`
	UnitPrice       int64             `json:"unit_price"`
	Quantity        int               `json:"quantity"`
	SelectedVariant map[string]string `json:"selected_variant,omitempty"`
}

// Key returns the composite identity of the line. The variant mapping is
// encoded with sorted keys so equal variants always produce equal keys.
func (i CartItem) Key() string {
	if len(i.SelectedVariant) == 0 {
		return i.ProductID
	}
	keys := make([]string, 0, len(i.SelectedVariant))
	for k := range i.SelectedVariant {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(i.ProductID)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(i.SelectedVariant[k])
	}
	return b.String()
}

// Subtotal returns the line subtotal in minor units
func (i CartItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Address represents a checkout shipping/billing address
type Address struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// CheckoutSession holds the transient state of one checkout flow. It is
// created when checkout begins and destroyed on completion or TTL expiry.
type CheckoutSession struct {
	ID             uuid.UUID         `json:"id"`
	Step           CheckoutStep      `json:"step"`
	Address        *Address          `json:"address,omitempty"`
	ProcessorID    string            `json:"processor_id,omitempty"`
	PaymentDetails map[string]string `json:"payment_details,omitempty"`
	Cart           []CartItem        `json:"cart"`
	OrderID        *uuid.UUID        `json:"order_id,omitempty"`
	LastError      string            `json:"last_error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Order represents a placed order. Status transitions are driven by the
// order service, never by the client directly.
type Order struct {
	ID        uuid.UUID
	Status    OrderStatus
	Items     []CartItem
	Address   Address
	Subtotal  int64
	Tax       int64
	Total     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentAttempt is one attempt to charge an order. Attempts are
// append-only; retries create new rows, they never overwrite old ones.
type PaymentAttempt struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProcessorID    string
	TransactionID  string
	IdempotencyKey string
	Status         AttemptStatus
	Message        string
	CreatedAt      time.Time
}

// Refund is an append-only record of a refund issued against an attempt's
// transaction.
type Refund struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	TransactionID string
	RefundID      string
	Amount        int64
	CreatedAt     time.Time
}

// OrderEvent represents an audit event for an order
type OrderEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	EventType string
	EventData map[string]interface{}
	CreatedAt time.Time
}

package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/greatwhitehope/shopapi/internal/domain"
)

// Repositories bundles every store the handlers and services need.
// Backends: postgres for real deployments, memory for development and tests.
type Repositories struct {
	Product        ProductRepository
	Page           PageRepository
	Media          MediaRepository
	AdminUser      AdminUserRepository
	Order          OrderRepository
	PaymentAttempt PaymentAttemptRepository
	Refund         RefundRepository
	OrderEvent     OrderEventRepository
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, category string, limit, offset int) ([]*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PageRepository interface {
	Create(ctx context.Context, page *domain.Page) error
	GetBySlug(ctx context.Context, slug string) (*domain.Page, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error)
	List(ctx context.Context) ([]*domain.Page, error)
	Update(ctx context.Context, page *domain.Page) error
}

type MediaRepository interface {
	Create(ctx context.Context, media *domain.Media) error
	List(ctx context.Context) ([]*domain.Media, error)
}

type AdminUserRepository interface {
	Create(ctx context.Context, user *domain.AdminUser) error
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)

	// UpdateStatusIf transitions the order only when its current status
	// equals expected. The boolean reports whether the swap happened; a
	// false result means another update won the race (or a late webhook
	// arrived after a newer transition) and the caller must not retry
	// blindly.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.OrderStatus) (bool, error)
}

type PaymentAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.PaymentAttempt, error)

	// GetByIdempotencyKey returns the prior attempt for the
	// (order, processor, client key) tuple, or ErrNotFound.
	GetByIdempotencyKey(ctx context.Context, orderID uuid.UUID, processorID, key string) (*domain.PaymentAttempt, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentAttempt, error)
}

type RefundRepository interface {
	Create(ctx context.Context, refund *domain.Refund) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Refund, error)
}

type OrderEventRepository interface {
	Create(ctx context.Context, event *domain.OrderEvent) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error)
}

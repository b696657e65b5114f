// Package memory provides in-process repository implementations. They back
// the development mode with no database configured and the test suite.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/internal/repository"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// NewRepositories creates a full in-memory repository set
func NewRepositories() *repository.Repositories {
	return &repository.Repositories{
		Product:        &productRepository{products: make(map[uuid.UUID]*domain.Product)},
		Page:           &pageRepository{pages: make(map[uuid.UUID]*domain.Page)},
		Media:          &mediaRepository{},
		AdminUser:      &adminUserRepository{users: make(map[string]*domain.AdminUser)},
		Order:          &orderRepository{orders: make(map[uuid.UUID]*domain.Order)},
		PaymentAttempt: &paymentAttemptRepository{},
		Refund:         &refundRepository{},
		OrderEvent:     &orderEventRepository{},
	}
}

type productRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*domain.Product
}

func (r *productRepository) Create(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *productRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	cp := *p
	return &cp, nil
}

func (r *productRepository) List(_ context.Context, category string, limit, offset int) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, limit, offset), nil
}

func (r *productRepository) Update(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		return &errors.ErrNotFound{Resource: "product", ID: product.ID.String()}
	}
	product.UpdatedAt = time.Now()
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *productRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	delete(r.products, id)
	return nil
}

type pageRepository struct {
	mu    sync.RWMutex
	pages map[uuid.UUID]*domain.Page
}

func (r *pageRepository) Create(_ context.Context, page *domain.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	now := time.Now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now
	cp := *page
	r.pages[page.ID] = &cp
	return nil
}

func (r *pageRepository) GetBySlug(_ context.Context, slug string) (*domain.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.pages {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "page", ID: slug}
}

func (r *pageRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "page", ID: id.String()}
	}
	cp := *p
	return &cp, nil
}

func (r *pageRepository) List(_ context.Context) ([]*domain.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*domain.Page, 0, len(r.pages))
	for _, p := range r.pages {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

func (r *pageRepository) Update(_ context.Context, page *domain.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pages[page.ID]; !ok {
		return &errors.ErrNotFound{Resource: "page", ID: page.ID.String()}
	}
	page.UpdatedAt = time.Now()
	cp := *page
	r.pages[page.ID] = &cp
	return nil
}

type mediaRepository struct {
	mu    sync.RWMutex
	media []*domain.Media
}

func (r *mediaRepository) Create(_ context.Context, media *domain.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	if media.CreatedAt.IsZero() {
		media.CreatedAt = time.Now()
	}
	cp := *media
	r.media = append(r.media, &cp)
	return nil
}

func (r *mediaRepository) List(_ context.Context) ([]*domain.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Media, len(r.media))
	for i, m := range r.media {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

type adminUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.AdminUser
}

func (r *adminUserRepository) Create(_ context.Context, user *domain.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	cp := *user
	r.users[strings.ToLower(user.Email)] = &cp
	return nil
}

func (r *adminUserRepository) GetByEmail(_ context.Context, email string) (*domain.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "admin user", ID: email}
	}
	cp := *u
	return &cp, nil
}

type orderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func (r *orderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	cp := *order
	cp.Items = append(order.Items[:0:0], order.Items...)
	r.orders[order.ID] = &cp
	return nil
}

func (r *orderRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	cp := *o
	cp.Items = append(o.Items[:0:0], o.Items...)
	return &cp, nil
}

func (r *orderRepository) List(_ context.Context, limit, offset int) ([]*domain.Order, error) {
	return r.list(limit, offset, func(*domain.Order) bool { return true })
}

func (r *orderRepository) ListByStatus(_ context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	return r.list(limit, offset, func(o *domain.Order) bool { return o.Status == status })
}

func (r *orderRepository) list(limit, offset int, keep func(*domain.Order) bool) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if keep(o) {
			cp := *o
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return paginate(all, limit, offset), nil
}

func (r *orderRepository) UpdateStatusIf(_ context.Context, id uuid.UUID, expected, next domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if o.Status != expected {
		return false, nil
	}
	o.Status = next
	o.UpdatedAt = time.Now()
	return true, nil
}

type paymentAttemptRepository struct {
	mu       sync.RWMutex
	attempts []*domain.PaymentAttempt
}

func (r *paymentAttemptRepository) Create(_ context.Context, attempt *domain.PaymentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	cp := *attempt
	r.attempts = append(r.attempts, &cp)
	return nil
}

func (r *paymentAttemptRepository) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.PaymentAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.PaymentAttempt
	for _, a := range r.attempts {
		if a.OrderID == orderID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *paymentAttemptRepository) GetByIdempotencyKey(_ context.Context, orderID uuid.UUID, processorID, key string) (*domain.PaymentAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.attempts {
		if a.OrderID == orderID && a.ProcessorID == processorID && a.IdempotencyKey == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "payment attempt", ID: key}
}

func (r *paymentAttemptRepository) GetByTransactionID(_ context.Context, transactionID string) (*domain.PaymentAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.attempts {
		if a.TransactionID == transactionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "payment attempt", ID: transactionID}
}

type refundRepository struct {
	mu      sync.RWMutex
	refunds []*domain.Refund
}

func (r *refundRepository) Create(_ context.Context, refund *domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now()
	}
	cp := *refund
	r.refunds = append(r.refunds, &cp)
	return nil
}

func (r *refundRepository) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Refund
	for _, rf := range r.refunds {
		if rf.OrderID == orderID {
			cp := *rf
			out = append(out, &cp)
		}
	}
	return out, nil
}

type orderEventRepository struct {
	mu     sync.RWMutex
	events []*domain.OrderEvent
}

func (r *orderEventRepository) Create(_ context.Context, event *domain.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

func (r *orderEventRepository) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.OrderEvent
	for _, e := range r.events {
		if e.OrderID == orderID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func paginate[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

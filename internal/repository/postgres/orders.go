package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	address, err := json.Marshal(order.Address)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, status, address, subtotal, tax, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		order.ID, order.Status, address, order.Subtotal, order.Tax, order.Total,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	for _, item := range order.Items {
		variant, err := json.Marshal(item.SelectedVariant)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, selected_variant)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			uuid.New(), order.ID, item.ProductID, item.Name, item.UnitPrice, item.Quantity, variant,
		)
		if err != nil {
			r.logger.Error("Failed to create order item", zap.Error(err))
			return err
		}
	}

	return tx.Commit()
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	var address []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, address, subtotal, tax, total, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.Status, &address, &order.Subtotal, &order.Tax, &order.Total,
		&order.CreatedAt, &order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	if err := json.Unmarshal(address, &order.Address); err != nil {
		return nil, err
	}

	items, err := r.itemsByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) itemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, unit_price, quantity, selected_variant
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		var variant []byte
		if err := rows.Scan(&item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity, &variant); err != nil {
			return nil, err
		}
		if len(variant) > 0 {
			if err := json.Unmarshal(variant, &item.SelectedVariant); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	return r.list(ctx, `
		SELECT id, status, address, subtotal, tax, total, created_at, updated_at
		FROM orders
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	return r.list(ctx, `
		SELECT id, status, address, subtotal, tax, total, created_at, updated_at
		FROM orders
		WHERE status = $3
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset, status)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		var address []byte
		if err := rows.Scan(
			&order.ID, &order.Status, &address, &order.Subtotal, &order.Tax, &order.Total,
			&order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(address, &order.Address); err != nil {
			return nil, err
		}
		orders = append(orders, &order)
	}

	return orders, rows.Err()
}

func (r *orderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected, next domain.OrderStatus) (bool, error) {
	// Compare-and-swap on status: a late webhook must never regress a
	// newer transition, so the update only applies when the current
	// status still matches.
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, expected, next, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Distinguish a missing order from a lost race
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, &errors.ErrNotFound{Resource: "order", ID: id.String()}
		}
		return false, nil
	}

	return true, nil
}

type paymentAttemptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *paymentAttemptRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_attempts (id, order_id, processor_id, transaction_id, idempotency_key, status, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		attempt.ID, attempt.OrderID, attempt.ProcessorID, attempt.TransactionID,
		attempt.IdempotencyKey, attempt.Status, attempt.Message, attempt.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment attempt", zap.Error(err))
		return err
	}

	return nil
}

const attemptColumns = `id, order_id, processor_id, transaction_id, idempotency_key, status, message, created_at`

func scanAttempt(row interface{ Scan(...interface{}) error }) (*domain.PaymentAttempt, error) {
	var attempt domain.PaymentAttempt
	err := row.Scan(
		&attempt.ID, &attempt.OrderID, &attempt.ProcessorID, &attempt.TransactionID,
		&attempt.IdempotencyKey, &attempt.Status, &attempt.Message, &attempt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *paymentAttemptRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.PaymentAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+attemptColumns+`
		FROM payment_attempts
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		r.logger.Error("Failed to list payment attempts", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var attempts []*domain.PaymentAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

func (r *paymentAttemptRepository) GetByIdempotencyKey(ctx context.Context, orderID uuid.UUID, processorID, key string) (*domain.PaymentAttempt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+attemptColumns+`
		FROM payment_attempts
		WHERE order_id = $1 AND processor_id = $2 AND idempotency_key = $3
	`, orderID, processorID, key)

	attempt, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "payment attempt", ID: key}
	}
	if err != nil {
		r.logger.Error("Failed to get payment attempt by idempotency key", zap.Error(err))
		return nil, err
	}

	return attempt, nil
}

func (r *paymentAttemptRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.PaymentAttempt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+attemptColumns+`
		FROM payment_attempts
		WHERE transaction_id = $1
	`, transactionID)

	attempt, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "payment attempt", ID: transactionID}
	}
	if err != nil {
		r.logger.Error("Failed to get payment attempt by transaction id", zap.Error(err))
		return nil, err
	}

	return attempt, nil
}

type refundRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *refundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if refund.CreatedAt.IsZero() {
		refund.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refunds (id, order_id, transaction_id, refund_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		refund.ID, refund.OrderID, refund.TransactionID, refund.RefundID, refund.Amount, refund.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create refund", zap.Error(err))
		return err
	}

	return nil
}

func (r *refundRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Refund, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, transaction_id, refund_id, amount, created_at
		FROM refunds
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		r.logger.Error("Failed to list refunds", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var refunds []*domain.Refund
	for rows.Next() {
		var refund domain.Refund
		if err := rows.Scan(
			&refund.ID, &refund.OrderID, &refund.TransactionID, &refund.RefundID,
			&refund.Amount, &refund.CreatedAt,
		); err != nil {
			return nil, err
		}
		refunds = append(refunds, &refund)
	}

	return refunds, rows.Err()
}

type orderEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *orderEventRepository) Create(ctx context.Context, event *domain.OrderEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event.EventData)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO order_events (id, order_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, event.OrderID, event.EventType, data, event.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create order event", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderEventRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, event_type, event_data, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at
	`, orderID)
	if err != nil {
		r.logger.Error("Failed to list order events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []*domain.OrderEvent
	for rows.Next() {
		var event domain.OrderEvent
		var data []byte
		if err := rows.Scan(&event.ID, &event.OrderID, &event.EventType, &data, &event.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &event.EventData); err != nil {
				return nil, err
			}
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}

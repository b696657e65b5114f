package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/repository"
)

// NewRepositories creates the postgres-backed repository set
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Product:        &productRepository{db: db, logger: logger},
		Page:           &pageRepository{db: db, logger: logger},
		Media:          &mediaRepository{db: db, logger: logger},
		AdminUser:      &adminUserRepository{db: db, logger: logger},
		Order:          &orderRepository{db: db, logger: logger},
		PaymentAttempt: &paymentAttemptRepository{db: db, logger: logger},
		Refund:         &refundRepository{db: db, logger: logger},
		OrderEvent:     &orderEventRepository{db: db, logger: logger},
	}
}

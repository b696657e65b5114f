package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

type pageRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *pageRepository) Create(ctx context.Context, page *domain.Page) error {
	query := `
		INSERT INTO pages (id, slug, title, body, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now()
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.Slug, page.Title, page.Body, page.Published, page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create page", zap.Error(err))
		return err
	}

	return nil
}

func (r *pageRepository) GetBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	query := `
		SELECT id, slug, title, body, published, created_at, updated_at
		FROM pages
		WHERE slug = $1
	`

	var page domain.Page
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&page.ID, &page.Slug, &page.Title, &page.Body, &page.Published, &page.CreatedAt, &page.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "page", ID: slug}
	}
	if err != nil {
		r.logger.Error("Failed to get page by slug", zap.Error(err))
		return nil, err
	}

	return &page, nil
}

func (r *pageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	query := `
		SELECT id, slug, title, body, published, created_at, updated_at
		FROM pages
		WHERE id = $1
	`

	var page domain.Page
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&page.ID, &page.Slug, &page.Title, &page.Body, &page.Published, &page.CreatedAt, &page.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "page", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get page by ID", zap.Error(err))
		return nil, err
	}

	return &page, nil
}

func (r *pageRepository) List(ctx context.Context) ([]*domain.Page, error) {
	query := `
		SELECT id, slug, title, body, published, created_at, updated_at
		FROM pages
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list pages", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var pages []*domain.Page
	for rows.Next() {
		var page domain.Page
		if err := rows.Scan(
			&page.ID, &page.Slug, &page.Title, &page.Body, &page.Published, &page.CreatedAt, &page.UpdatedAt,
		); err != nil {
			return nil, err
		}
		pages = append(pages, &page)
	}

	return pages, rows.Err()
}

func (r *pageRepository) Update(ctx context.Context, page *domain.Page) error {
	query := `
		UPDATE pages
		SET slug = $2, title = $3, body = $4, published = $5, updated_at = $6
		WHERE id = $1
	`

	page.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, query,
		page.ID, page.Slug, page.Title, page.Body, page.Published, page.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update page", zap.Error(err))
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &errors.ErrNotFound{Resource: "page", ID: page.ID.String()}
	}

	return nil
}

type mediaRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *mediaRepository) Create(ctx context.Context, media *domain.Media) error {
	query := `
		INSERT INTO media (id, filename, url, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	if media.CreatedAt.IsZero() {
		media.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		media.ID, media.Filename, media.URL, media.ContentType, media.SizeBytes, media.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create media", zap.Error(err))
		return err
	}

	return nil
}

func (r *mediaRepository) List(ctx context.Context) ([]*domain.Media, error) {
	query := `
		SELECT id, filename, url, content_type, size_bytes, created_at
		FROM media
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list media", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var media []*domain.Media
	for rows.Next() {
		var m domain.Media
		if err := rows.Scan(&m.ID, &m.Filename, &m.URL, &m.ContentType, &m.SizeBytes, &m.CreatedAt); err != nil {
			return nil, err
		}
		media = append(media, &m)
	}

	return media, rows.Err()
}

type adminUserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func (r *adminUserRepository) Create(ctx context.Context, user *domain.AdminUser) error {
	query := `
		INSERT INTO admin_users (id, email, password_hash, name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	now := time.Now()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create admin user", zap.Error(err))
		return err
	}

	return nil
}

func (r *adminUserRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	query := `
		SELECT id, email, password_hash, name, role, is_active, created_at, updated_at
		FROM admin_users
		WHERE lower(email) = lower($1) AND is_active = true
	`

	var user domain.AdminUser
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "admin user", ID: email}
	}
	if err != nil {
		r.logger.Error("Failed to get admin user by email", zap.Error(err))
		return nil, err
	}

	return &user, nil
}

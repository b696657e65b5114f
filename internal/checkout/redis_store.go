package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a redis-backed session store. The redis TTL doubles
// as the abandonment policy: sessions that never complete simply expire.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) Store {
	return &redisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("checkout:%s", id)
}

func (s *redisStore) Get(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, &errors.ErrNotFound{Resource: "checkout session", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	var session domain.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &session, nil
}

func (s *redisStore) Save(ctx context.Context, session *domain.CheckoutSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkout session: %w", err)
	}
	return nil
}

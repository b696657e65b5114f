package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/greatwhitehope/shopapi/internal/domain"
	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// Store persists checkout sessions between requests. Sessions carry a TTL:
// an expired session is the Abandoned terminal state, and a shopper who
// reloads mid-flow resumes from the stored step as long as the TTL holds.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error)
	Save(ctx context.Context, session *domain.CheckoutSession) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.CheckoutSession
	exp      map[uuid.UUID]time.Time
	ttl      time.Duration
}

// NewMemoryStore creates an in-process session store with lazy expiry
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		sessions: make(map[uuid.UUID]*domain.CheckoutSession),
		exp:      make(map[uuid.UUID]time.Time),
		ttl:      ttl,
	}
}

func (s *memoryStore) Get(_ context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.exp[id]; ok && time.Now().After(exp) {
		delete(s.sessions, id)
		delete(s.exp, id)
	}

	session, ok := s.sessions[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "checkout session", ID: id.String()}
	}
	cp := *session
	cp.Cart = append(session.Cart[:0:0], session.Cart...)
	return &cp, nil
}

func (s *memoryStore) Save(_ context.Context, session *domain.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	cp.Cart = append(session.Cart[:0:0], session.Cart...)
	s.sessions[session.ID] = &cp
	s.exp[session.ID] = time.Now().Add(s.ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.exp, id)
	return nil
}

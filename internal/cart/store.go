package cart

import (
	"context"
	"sync"
	"time"
)

// Store persists carts per session. The cart belongs to one client session
// and is destroyed on explicit clear or successful order placement.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

type memoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
	ttl   time.Duration
	exp   map[string]time.Time
}

// NewMemoryStore creates an in-process cart store. Entries expire lazily
// after ttl so abandoned sessions do not accumulate.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		carts: make(map[string]*Cart),
		exp:   make(map[string]time.Time),
		ttl:   ttl,
	}
}

func (s *memoryStore) Get(_ context.Context, sessionID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.exp[sessionID]; ok && time.Now().After(exp) {
		delete(s.carts, sessionID)
		delete(s.exp, sessionID)
	}

	c, ok := s.carts[sessionID]
	if !ok {
		return New(), nil
	}
	// Return a copy so callers mutate their own view until Save
	return &Cart{Items: append(c.Items[:0:0], c.Items...)}, nil
}

func (s *memoryStore) Save(_ context.Context, sessionID string, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[sessionID] = &Cart{Items: append(c.Items[:0:0], c.Items...)}
	s.exp[sessionID] = time.Now().Add(s.ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	delete(s.exp, sessionID)
	return nil
}

package payment

import (
	"sort"
	"sync"

	"github.com/greatwhitehope/shopapi/pkg/errors"
)

// Registry maps processor identifiers to implementations. It is populated
// explicitly at process start; resolution never depends on load order.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry creates an empty processor registry
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register adds a processor under its own name, replacing any previous
// registration with the same name.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Name()] = p
}

// Resolve returns the processor registered under name
func (r *Registry) Resolve(name string) (Processor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[name]
	if !ok {
		return nil, &errors.ErrProcessorNotFound{Name: name}
	}
	return p, nil
}

// List returns the registered processor names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

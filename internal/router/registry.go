package router

import (
	"fmt"
	"sync"

	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/providers"
)

// Registry holds provider instances by name in registration order. The order
// is the failover priority.
type Registry struct {
	byName map[string]providers.Provider
	order  []string
	mu     sync.RWMutex
}

var _ health.ProbeSource = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]providers.Provider)}
}

// Register appends p at the lowest priority.
func (r *Registry) Register(p providers.Provider) error {
	if p == nil {
		return ErrNilProvider
	}
	name := p.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.byName[name] = p
	r.order = append(r.order, name)
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (providers.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Names returns provider names in priority order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Probe lets the health monitor resolve a provider's health check by name.
func (r *Registry) Probe(name string) (health.Probe, bool) {
	p, ok := r.Get(name)
	if !ok {
		return nil, false
	}
	return p, true
}

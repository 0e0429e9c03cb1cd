// Package trader tracks the strategy configurations currently active in the
// screener. Configurations are owned by an external service; the registry is
// a read-mostly in-memory view.
package trader

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"screener-core/internal/model"
)

// ErrNotFound is returned for unknown trader IDs.
var ErrNotFound = errors.New("trader not found")

// Registry is a concurrency-safe map of trader ID to configuration.
type Registry struct {
	mu      sync.RWMutex
	traders map[string]*model.Trader

	registered   int64
	unregistered int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{traders: make(map[string]*model.Trader)}
}

// Register adds or replaces a trader configuration.
func (r *Registry) Register(t *model.Trader) error {
	if t == nil {
		return fmt.Errorf("cannot register nil trader")
	}
	if t.ID == "" {
		return fmt.Errorf("trader ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replacing := r.traders[t.ID]
	cp := *t
	cp.UpdatedAt = time.Now().UTC()
	r.traders[t.ID] = &cp
	if !replacing {
		r.registered++
	}

	log.Printf("[registry] registered trader %s (%s), %d indicators", t.ID, t.Name, len(t.Indicators))
	return nil
}

// Unregister removes a trader. Unknown IDs return ErrNotFound.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.traders[id]; !ok {
		return fmt.Errorf("trader %s: %w", id, ErrNotFound)
	}
	delete(r.traders, id)
	r.unregistered++

	log.Printf("[registry] unregistered trader %s", id)
	return nil
}

// Get returns a copy of one trader configuration.
func (r *Registry) Get(id string) (*model.Trader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.traders[id]
	if !ok {
		return nil, fmt.Errorf("trader %s: %w", id, ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

// List returns copies of every registered trader, sorted by ID.
func (r *Registry) List() []*model.Trader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Trader, 0, len(r.traders))
	for _, t := range r.traders {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListEnabled returns only traders flagged enabled, sorted by ID.
func (r *Registry) ListEnabled() []*model.Trader {
	all := r.List()
	out := all[:0]
	for _, t := range all {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// RequiredIntervals returns the union of every enabled trader's intervals,
// sorted. This drives the WebSocket subscription set.
func (r *Registry) RequiredIntervals() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, t := range r.traders {
		if !t.Enabled {
			continue
		}
		for _, iv := range t.RequiredIntervals {
			set[iv] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for iv := range set {
		out = append(out, iv)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of registered traders.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.traders)
}

// Stats reports lifetime registration counters.
func (r *Registry) Stats() (registered, unregistered int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registered, r.unregistered
}

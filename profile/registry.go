package profile

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry is the ordered set of known profiles.  It always holds a default
// profile, which is also the fallback when a selection can no longer be
// used.  Persisting the selection is the caller's job.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]*Configuration
	defltID string
}

// NewRegistry returns a registry containing def as its default.
func NewRegistry(def *Configuration) *Registry {
	return &Registry{
		order:   []string{def.ID()},
		byID:    map[string]*Configuration{def.ID(): def},
		defltID: def.ID(),
	}
}

// Default returns the fallback profile.  Never nil.
func (r *Registry) Default() *Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[r.defltID]
}

// SetDefault makes the registered profile id the fallback.
func (r *Registry) SetDefault(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.defltID = id
	return nil
}

// List returns the profiles in insertion order.
func (r *Registry) List() []*Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Configuration, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Get looks up a profile by id.
func (r *Registry) Get(id string) (*Configuration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Add appends c.  Ids are unique.
func (r *Registry) Add(c *Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, c.ID())
	}
	r.order = append(r.order, c.ID())
	r.byID[c.ID()] = c
	return nil
}

// Remove deletes the profile id.  Built-in profiles and the current default
// cannot be removed.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if c.IsBuiltIn() || id == r.defltID {
		return fmt.Errorf("%w: %s", ErrBuiltIn, id)
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// NewID returns an unused profile id.
func (r *Registry) NewID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for {
		id := uuid.New().String()[:8]
		if _, taken := r.byID[id]; !taken {
			return id
		}
	}
}

package detector

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds named detectors for selection by config.
type Registry struct {
	detectors map[string]Detector
	order     []string
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add detectors.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// Register adds a detector under the given name. Registration order is
// preserved for deterministic fan-out.
func (r *Registry) Register(name string, d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.detectors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.detectors[name] = d
}

// Get returns the detector by name, or an error if not found.
func (r *Registry) Get(name string) (Detector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("detector %q not found", name)
	}
	return d, nil
}

// All returns the registered detectors in registration order.
func (r *Registry) All() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Detector, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.detectors[name])
	}
	return out
}

// List returns all registered detector names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.detectors))
	for n := range r.detectors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

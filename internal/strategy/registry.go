package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/tradesim/internal/core"
)

// Constructor builds a predicate from parsed configuration
type Constructor func(cfg Config) (Predicate, error)

// Registry maps strategy names to constructors
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		ctors: make(map[string]Constructor),
	}
}

// Register adds a constructor under name, replacing any previous one
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// New validates cfg and constructs the named predicate
func (r *Registry) New(name string, cfg Config) (Predicate, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, core.WrapError(core.ErrStrategyUnknown, fmt.Errorf("%q", name))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return ctor(cfg)
}

// Names returns registered strategy names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package strategy

import (
	"fmt"
	"sync"
	"time"
)

// StrategyInfo holds runtime info for a registered strategy.
type StrategyInfo struct {
	Name        string
	Enabled     bool
	SignalsSent int64
	LastSignal  *time.Time
	ErrorCount  int64
}

// Registry holds strategies in registration order, which is also the order
// the scheduler evaluates them in. It is safe for concurrent use.
type Registry struct {
	order      []string
	strategies map[string]Strategy
	mu         sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register appends s under its Name. Registering a name twice replaces the
// strategy but keeps its original position.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if _, ok := r.strategies[name]; !ok {
		r.order = append(r.order, name)
	}
	r.strategies[name] = s
}

// Get retrieves a strategy by name. It returns an error when the name is not
// registered.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", name)
	}
	return s, nil
}

// All returns every registered strategy in registration order.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.strategies[n])
	}
	return out
}

// List returns the names of all registered strategies in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// SetEnabled enables or disables the named strategy.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}
	if enabled {
		s.Enable()
	} else {
		s.Disable()
	}
	return nil
}

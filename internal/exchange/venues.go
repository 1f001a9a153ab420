// Package exchange holds the exchange-agnostic plumbing around
// domain.ExchangeAdapter: the ordered venue set, the per-call guard and
// symbol resolution.
package exchange

import (
	"fmt"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Venues is an ordered, name-indexed set of adapters. Order is the
// configuration order and is used as the tie-break order everywhere.
type Venues struct {
	order  []domain.ExchangeAdapter
	byName map[string]domain.ExchangeAdapter
}

// NewVenues builds a set from adapters, rejecting duplicate names.
func NewVenues(adapters ...domain.ExchangeAdapter) (*Venues, error) {
	v := &Venues{byName: make(map[string]domain.ExchangeAdapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := v.byName[a.Name()]; dup {
			return nil, fmt.Errorf("exchange: duplicate venue %q", a.Name())
		}
		v.byName[a.Name()] = a
		v.order = append(v.order, a)
	}
	return v, nil
}

// Get returns the adapter registered under name.
func (v *Venues) Get(name string) (domain.ExchangeAdapter, error) {
	a, ok := v.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownExchange, name)
	}
	return a, nil
}

// All returns the adapters in configuration order.
func (v *Venues) All() []domain.ExchangeAdapter {
	out := make([]domain.ExchangeAdapter, len(v.order))
	copy(out, v.order)
	return out
}

// Names returns the venue names in configuration order.
func (v *Venues) Names() []string {
	names := make([]string, len(v.order))
	for i, a := range v.order {
		names[i] = a.Name()
	}
	return names
}

// Len returns the number of venues.
func (v *Venues) Len() int { return len(v.order) }

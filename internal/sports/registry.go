// Package sports holds the static catalog of refreshable data sets.
// The only runtime-varying fact about a sport is whether it has been
// refreshed today, and that lives in the quota ledger, so the registry
// itself is immutable after construction.
package sports

import (
	"fmt"
	"sort"
)

// Descriptor describes one refreshable sport. Lower Priority means
// more important.
type Descriptor struct {
	Key         string `yaml:"key" json:"key"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	Priority    int    `yaml:"priority" json:"priority"`
	Enabled     bool   `yaml:"enabled" json:"enabled"`
}

// Eligibility is the quota-side check consulted per sport. The ledger
// implements it; its answer already folds in the emergency governor.
type Eligibility interface {
	CanRefreshSport(key string) bool
}

// Registry is the priority-ordered sport catalog.
type Registry struct {
	ordered []Descriptor
	byKey   map[string]Descriptor
}

// NewRegistry builds a registry from the given descriptors. Duplicate
// keys are rejected. The eligibility order is priority ascending with
// ties broken by input order, fixed at construction so NextEligible is
// deterministic.
func NewRegistry(descs []Descriptor) (*Registry, error) {
	ordered := make([]Descriptor, len(descs))
	copy(ordered, descs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	byKey := make(map[string]Descriptor, len(descs))
	for _, d := range descs {
		if d.Key == "" {
			return nil, fmt.Errorf("sport with empty key")
		}
		if _, exists := byKey[d.Key]; exists {
			return nil, fmt.Errorf("sport %s is already registered", d.Key)
		}
		byKey[d.Key] = d
	}

	return &Registry{ordered: ordered, byKey: byKey}, nil
}

// NextEligible returns the highest-priority enabled sport the quota
// side allows refreshing, or nil if there is none. Pure function of
// the registry and the quota state: identical inputs yield the same
// single winner.
func (r *Registry) NextEligible(quota Eligibility) *Descriptor {
	for _, d := range r.ordered {
		if !d.Enabled {
			continue
		}
		if quota.CanRefreshSport(d.Key) {
			desc := d
			return &desc
		}
	}
	return nil
}

// Get retrieves a descriptor by key.
func (r *Registry) Get(key string) (Descriptor, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// All returns the catalog in eligibility order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Count returns the number of registered sports.
func (r *Registry) Count() int {
	return len(r.ordered)
}

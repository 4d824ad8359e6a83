// Package feed adapts upstream news providers to ports.FeedProvider.
package feed

import (
	"fmt"
	"sort"

	"NewsSentiment/internal/ports"
)

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]ports.FeedProvider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]ports.FeedProvider{}}
}

// Register adds or replaces a provider.
func (r *Registry) Register(p ports.FeedProvider) {
	if r.providers == nil {
		r.providers = map[string]ports.FeedProvider{}
	}
	r.providers[p.Name()] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.FeedProvider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("feed provider %s is not registered", name)
}

// Names lists registered providers in a stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many providers are registered.
func (r *Registry) Len() int {
	return len(r.providers)
}

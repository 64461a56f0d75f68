package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/seenimoa/yieldboard/internal/series"
)

// Registry is a thread-safe registry of data providers keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	def       string // default provider name
	now       func() time.Time
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		now:       time.Now,
	}
}

// Register adds a provider to the registry. The first registered provider
// becomes the default. Duplicate registrations overwrite the previous entry.
func (r *Registry) Register(p Provider) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[info.Name] = p
	if r.def == "" {
		r.def = info.Name
	}
	return nil
}

// Get returns a provider by name, or an error if not found.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return p, nil
}

// List returns info about all registered providers, sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// SetDefault selects the provider used when a request names no source.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return &ErrProviderNotFound{Name: name}
	}
	r.def = name
	return nil
}

// Fetch routes req to the provider named by req.Source (or the default).
func (r *Registry) Fetch(ctx context.Context, req Request) (*series.Frame, error) {
	req, err := req.Normalize(r.now())
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	name := req.Source
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	r.mu.RUnlock()

	if !ok || name == "" {
		return nil, &ErrProviderNotFound{Name: name}
	}
	req.Source = name

	frame, err := p.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provider %q fetch: %w", name, err)
	}
	return frame, nil
}

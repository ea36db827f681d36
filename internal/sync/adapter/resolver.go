package adapter

import (
	"sync"

	"github.com/allisson/envsync/internal/sync/domain"
)

// Resolver builds and caches one adapter per platform type so rate limiter
// state is shared across pushes.
type Resolver struct {
	opts Options

	mu       sync.Mutex
	adapters map[domain.PlatformType]Adapter
}

// NewResolver creates a Resolver with the given shared options.
func NewResolver(opts Options) *Resolver {
	return &Resolver{
		opts:     opts,
		adapters: make(map[domain.PlatformType]Adapter),
	}
}

// Resolve returns the adapter for the platform type.
func (r *Resolver) Resolve(platform domain.PlatformType) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.adapters[platform]; ok {
		return a, nil
	}

	a, err := NewAdapter(platform, r.opts)
	if err != nil {
		return nil, err
	}
	r.adapters[platform] = a
	return a, nil
}

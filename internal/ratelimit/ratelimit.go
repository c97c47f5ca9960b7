// Package ratelimit enforces per-resource calls-per-minute ceilings shared
// process-wide by every collaborator that talks to an external service.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Resource names for the external services this system calls.
const (
	ResourceLLM    = "llm"
	ResourceSearch = "search"
	ResourceFetch  = "fetch"
)

// DefaultCeilings returns the default calls-per-minute ceiling per resource.
func DefaultCeilings() map[string]int {
	return map[string]int{
		ResourceLLM:    50,
		ResourceSearch: 60,
		ResourceFetch:  30,
	}
}

// Registry holds one limiter per named resource. A single Registry instance
// is injected into every collaborator so concurrent jobs observe one shared
// quota per resource. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Registry from calls-per-minute ceilings. A ceiling <= 0
// leaves the resource unlimited.
func New(ceilings map[string]int) *Registry {
	r := &Registry{limiters: make(map[string]*rate.Limiter, len(ceilings))}
	for name, perMinute := range ceilings {
		if perMinute <= 0 {
			continue
		}
		// Burst 1 with even inter-call spacing keeps the observed rate over
		// any 60-second window at or under the ceiling.
		r.limiters[name] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
	return r
}

// Wait blocks until a call to the named resource fits under its ceiling, or
// the context is cancelled. Calls are delayed, never dropped. Resources
// without a configured ceiling proceed immediately.
func (r *Registry) Wait(ctx context.Context, resource string) error {
	r.mu.Lock()
	lim := r.limiters[resource]
	r.mu.Unlock()

	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

// Ceiling returns the configured calls-per-minute ceiling for a resource,
// or 0 if the resource is unlimited.
func (r *Registry) Ceiling(resource string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	lim := r.limiters[resource]
	if lim == nil {
		return 0
	}
	return int(float64(lim.Limit()) * 60)
}

package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/resolver"
)

// Resolver is an in-memory resolver.Resolver backed by a destination table.
// Unknown destinations fall back to Default when set, else fail.
// It is safe for concurrent use.
type Resolver struct {
	mu       sync.Mutex
	routes   map[string]resolver.Route
	fallback *resolver.Route
	calls    []resolver.Request
}

func New() *Resolver {
	return &Resolver{routes: make(map[string]resolver.Route)}
}

// NewStatic returns a resolver answering every destination with the same route.
func NewStatic(oneWayMiles float64) *Resolver {
	r := New()
	r.SetDefault(resolver.Route{OneWayMiles: oneWayMiles})
	return r
}

// Set registers the route for a destination (matched case-insensitively).
func (r *Resolver) Set(destination string, route resolver.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[key(destination)] = route
}

func (r *Resolver) SetDefault(route resolver.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = &route
}

// Calls returns the requests seen so far.
func (r *Resolver) Calls() []resolver.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]resolver.Request(nil), r.calls...)
}

func (r *Resolver) Resolve(ctx context.Context, req resolver.Request) (resolver.Route, error) {
	if err := ctx.Err(); err != nil {
		return resolver.Route{}, fmt.Errorf("%w: %w", resolver.ErrResolutionFailed, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	if route, ok := r.routes[key(req.Destination)]; ok {
		return route, nil
	}
	if r.fallback != nil {
		return *r.fallback, nil
	}
	return resolver.Route{}, fmt.Errorf("%w: NOT_FOUND", resolver.ErrResolutionFailed)
}

func key(destination string) string {
	return strings.ToLower(strings.Join(strings.Fields(destination), " "))
}

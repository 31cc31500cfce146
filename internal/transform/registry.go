package transform

import (
	"fmt"
	"sort"
	"sync"
)

// Func is a pure value converter. A returned error marks the conversion as
// failed for the mapping that requested it; it never aborts the batch.
type Func func(v any) (any, error)

// Registry maps transform names to their converter functions.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates a Registry pre-populated with the builtin converters.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	for name, fn := range builtins {
		r.Register(name, fn)
	}
	return r
}

// Register adds a converter. Panics on duplicate name to surface
// misconfiguration early.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		panic(fmt.Sprintf("transform registry: duplicate name %q", name))
	}
	r.funcs[name] = fn
}

// Get returns the converter for the given name.
func (r *Registry) Get(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform %q", name)
	}
	return fn, nil
}

// Has reports whether a converter is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.funcs[name]
	return ok
}

// Names returns all registered transform names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for k := range r.funcs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

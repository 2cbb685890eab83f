package operation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Descriptor summarizes a registered operation for help output.
type Descriptor struct {
	Name        string
	Description string
}

type registryEntry struct {
	op          Operation
	description string
}

// Registry maps names to operations compiled into the binary. The locator of
// a request is ignored.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registryEntry)}
}

// Register adds op under name. Names are case sensitive and must be unique.
func (r *Registry) Register(name, description string, op Operation) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("operation name is required")
	}
	if op == nil {
		return fmt.Errorf("operation %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return Wrap(ErrDuplicateOperation, name, "", "", nil)
	}
	r.entries[name] = registryEntry{op: op, description: strings.TrimSpace(description)}
	return nil
}

// MustRegister is Register for program initialization; it panics on error.
func (r *Registry) MustRegister(name, description string, op Operation) {
	if err := r.Register(name, description, op); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	return entry.op, ok
}

func (r *Registry) Resolve(name, locator string) (Operation, error) {
	if op, ok := r.Lookup(name); ok {
		return op, nil
	}
	return nil, Wrap(ErrOperationNotFound, name, locator, "not registered", nil)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe returns a descriptor per registered operation, sorted by name.
func (r *Registry) Describe() []Descriptor {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		entry, ok := r.entries[name]
		if !ok {
			continue
		}
		out = append(out, Descriptor{Name: name, Description: entry.description})
	}
	return out
}

// Chain consults resolvers in order. The first resolver that knows the name
// wins; a failure other than "not found" stops the search.
type Chain []Resolver

func (c Chain) Resolve(name, locator string) (Operation, error) {
	var misses []error
	for _, resolver := range c {
		if resolver == nil {
			continue
		}
		op, err := resolver.Resolve(name, locator)
		if err == nil {
			return op, nil
		}
		if !errors.Is(err, ErrOperationNotFound) {
			return nil, err
		}
		misses = append(misses, err)
	}
	if len(misses) == 0 {
		return nil, Wrap(ErrOperationNotFound, name, locator, "no resolvers configured", nil)
	}
	return nil, errors.Join(misses...)
}

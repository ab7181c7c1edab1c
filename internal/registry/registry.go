// Package registry binds step function names to their descriptors.
//
// The registry is filled explicitly at process start; nothing is discovered
// at runtime.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"labelledshell/internal/durable"
)

var (
	ErrDuplicate = errors.New("step already registered")
	ErrUnknown   = errors.New("unknown step")
)

// Descriptor is the static metadata and factory of one step type.
type Descriptor interface {
	// FunctionName is the stable name pipelines use to call the step.
	FunctionName() string
	// DisplayName is shown in UIs.
	DisplayName() string
	// ArgumentsToString renders named arguments as a short summary.
	// ok is false when the step has nothing better than its display name.
	ArgumentsToString(namedArgs map[string]any) (summary string, ok bool)
	// New builds a step from named arguments.
	New(namedArgs map[string]any) (durable.Step, error)
}

type Registry struct {
	mu    sync.RWMutex
	descs map[string]Descriptor
}

func New() *Registry {
	return &Registry{descs: make(map[string]Descriptor)}
}

// Register adds d under its function name.
func (r *Registry) Register(d Descriptor) error {
	name := d.FunctionName()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.descs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	r.descs[name] = d
	return nil
}

// Lookup returns the descriptor registered for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	return d, ok
}

// Names returns registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descs))
	for n := range r.descs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds the step registered under name.
func (r *Registry) New(name string, namedArgs map[string]any) (durable.Step, error) {
	d, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	s, err := d.New(namedArgs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// Package prehandlers holds the named pre-handlers hook files can refer to.
package prehandlers

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

var (
	// ErrUnknownPreHandler is returned when a name has no registered pre-handler
	ErrUnknownPreHandler = errors.New("unknown pre-handler")

	// ErrDuplicatePreHandler is returned when a name is registered twice
	ErrDuplicatePreHandler = errors.New("pre-handler already registered")
)

// Library maps pre-handler names to their implementation
type Library struct {
	mu       sync.RWMutex
	handlers map[string]plumbing.PreFunc
}

// NewLibrary creates an empty library
func NewLibrary() *Library {
	return &Library{handlers: make(map[string]plumbing.PreFunc)}
}

// Register adds a named pre-handler
func (l *Library) Register(name string, fn plumbing.PreFunc) error {
	if name == "" {
		return errors.New("pre-handler name is required")
	}
	if fn == nil {
		return fmt.Errorf("pre-handler %s is nil", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePreHandler, name)
	}
	l.handlers[name] = fn
	return nil
}

// Lookup returns the pre-handler registered under name
func (l *Library) Lookup(name string) (plumbing.PreFunc, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fn, ok := l.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreHandler, name)
	}
	return fn, nil
}

// Names returns the registered names in sorted order
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.handlers))
	for name := range l.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

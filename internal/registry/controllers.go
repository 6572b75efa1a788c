// Package registry holds the controllers and services an application
// registers explicitly at startup, grouped by the app or plugin owning them.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

var (
	// ErrDuplicateController is returned when a controller name is registered twice in a group
	ErrDuplicateController = errors.New("duplicate controller")
	// ErrInvalidControllerName is returned for names that do not follow the controller convention
	ErrInvalidControllerName = errors.New("invalid controller name")
)

// Controllers stores controllers per group
type Controllers struct {
	mu     sync.RWMutex
	groups map[string]plumbing.Controllers
}

// NewControllers creates an empty controller registry
func NewControllers() *Controllers {
	return &Controllers{
		groups: make(map[string]plumbing.Controllers),
	}
}

// Register adds a controller to a group. Names must end with _controller
// and must not start with an underscore.
func (c *Controllers) Register(group, name string, controller plumbing.Controller) error {
	name = strings.TrimSpace(name)
	if err := ValidateControllerName(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	controllers, ok := c.groups[group]
	if !ok {
		controllers = make(plumbing.Controllers)
		c.groups[group] = controllers
	}
	if _, exists := controllers[name]; exists {
		return fmt.Errorf("%w: %s in %s", ErrDuplicateController, name, group)
	}
	controllers[name] = controller
	return nil
}

// MustRegister is like Register but panics on error
func (c *Controllers) MustRegister(group, name string, controller plumbing.Controller) {
	if err := c.Register(group, name, controller); err != nil {
		panic(err)
	}
}

// Group returns a copy of a group's controllers
func (c *Controllers) Group(group string) plumbing.Controllers {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(plumbing.Controllers, len(c.groups[group]))
	for name, controller := range c.groups[group] {
		out[name] = controller
	}
	return out
}

// HasGroup reports whether any controller was registered for the group
func (c *Controllers) HasGroup(group string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups[group]) > 0
}

// Groups returns the registered group names, sorted
func (c *Controllers) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateControllerName checks the controller naming convention
func ValidateControllerName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidControllerName)
	}
	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("%w: %s is private (leading underscore)", ErrInvalidControllerName, name)
	}
	if _, ok := plumbing.IDParamName(name); !ok {
		return fmt.Errorf("%w: %s must end with %s", ErrInvalidControllerName, name, plumbing.ControllerSuffix)
	}
	return nil
}

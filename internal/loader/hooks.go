package loader

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

// PreHandlers resolves the pre-handler a hook entry names
type PreHandlers interface {
	Lookup(name string) (plumbing.PreFunc, error)
}

// hookEntry is one entry of a hook file
type hookEntry struct {
	Pre            string   `mapstructure:"pre"`
	Assign         string   `mapstructure:"assign"`
	AvailableAfter string   `mapstructure:"availableAfter"`
	Labels         []string `mapstructure:"labels"`
	Plugins        []string `mapstructure:"plugins"`
}

// LoadHooks reads the hooks key and binds each entry to its pre-handler.
// Entries keep their file order.
func LoadHooks(fs afero.Fs, path string, library PreHandlers, diags *plumbing.Diagnostics) ([]plumbing.Hook, error) {
	v, err := read(fs, path, diags)
	if err != nil || v == nil {
		return nil, err
	}

	var entries []hookEntry
	if err := v.UnmarshalKey("hooks", &entries); err != nil {
		return nil, fmt.Errorf("decode hooks in %s: %w", path, err)
	}

	hooks := make([]plumbing.Hook, 0, len(entries))
	for i, entry := range entries {
		name := strings.TrimSpace(entry.Pre)
		if name == "" {
			return nil, fmt.Errorf("%s: hook %d names no pre-handler", path, i)
		}
		if strings.TrimSpace(entry.Assign) == "" {
			return nil, fmt.Errorf("%s: hook %s has no assign name", path, name)
		}

		fn, err := library.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%s: hook %d: %w", path, i, err)
		}

		hooks = append(hooks, plumbing.Hook{
			Name:           name,
			Method:         fn,
			Assign:         strings.TrimSpace(entry.Assign),
			AvailableAfter: entry.AvailableAfter,
			Labels:         entry.Labels,
			Plugins:        entry.Plugins,
		})
	}
	return hooks, nil
}

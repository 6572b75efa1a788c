package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

// PluginRoutesSuffix marks a route file as belonging to a plugin
const PluginRoutesSuffix = "_routes"

// Plugin is a route file found under the plugins directory
type Plugin struct {
	Name       string
	RoutesFile string
}

// DiscoverPlugins walks dir for <name>_routes.{yml,yaml,json} files. Files
// and directories whose name starts with an underscore are skipped.
func DiscoverPlugins(fs afero.Fs, dir string, diags *plumbing.Diagnostics) ([]Plugin, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !exists {
		diags.Infof(plumbing.CodeMissingOptionalFile, "plugins directory %s not found, no plugins loaded", dir)
		return nil, nil
	}

	seen := make(map[string]string)
	var plugins []Plugin

	err = afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if path != dir && strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, "_") {
			return nil
		}

		ext := filepath.Ext(name)
		if !supportedExts[strings.ToLower(ext)] {
			return nil
		}
		base := strings.TrimSuffix(name, ext)
		if !strings.HasSuffix(base, PluginRoutesSuffix) {
			return nil
		}
		plugin := strings.TrimSuffix(base, PluginRoutesSuffix)
		if plugin == "" {
			return nil
		}

		if other, dup := seen[plugin]; dup {
			return fmt.Errorf("plugin %s declared by both %s and %s", plugin, other, path)
		}
		seen[plugin] = path
		plugins = append(plugins, Plugin{Name: plugin, RoutesFile: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover plugins in %s: %w", dir, err)
	}

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins, nil
}

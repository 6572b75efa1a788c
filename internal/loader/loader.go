// Package loader reads route, hook and plugin declarations from disk.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/conduit-lang/plumber/internal/plumbing"
)

// ErrUnsupportedFormat is returned for files viper cannot decode
var ErrUnsupportedFormat = errors.New("unsupported declaration file format")

var supportedExts = map[string]bool{
	".yml":  true,
	".yaml": true,
	".json": true,
}

// read loads an optional declaration file. A missing file is reported as a
// diagnostic and yields a nil viper instance.
func read(fs afero.Fs, path string, diags *plumbing.Diagnostics) (*viper.Viper, error) {
	if !supportedExts[strings.ToLower(filepath.Ext(path))] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		diags.Warnf(plumbing.CodeMissingOptionalFile, "%s not found, nothing loaded from it", path)
		return nil, nil
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}

// LoadRoutes reads the route declarations listed under the routes key
func LoadRoutes(fs afero.Fs, path string, diags *plumbing.Diagnostics) ([]plumbing.RouteDeclaration, error) {
	v, err := read(fs, path, diags)
	if err != nil || v == nil {
		return nil, err
	}

	var decls []plumbing.RouteDeclaration
	if err := v.UnmarshalKey("routes", &decls); err != nil {
		return nil, fmt.Errorf("decode routes in %s: %w", path, err)
	}
	for i, decl := range decls {
		if strings.TrimSpace(decl.Path) == "" {
			return nil, fmt.Errorf("%s: route %d has no path", path, i)
		}
	}
	return decls, nil
}

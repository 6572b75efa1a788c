package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/registry"
	"github.com/conduit-lang/plumber/internal/web/prehandlers"
)

func noop(w http.ResponseWriter, r *http.Request) {}

func testOptions(t *testing.T, files map[string]string) Options {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	controllers := registry.NewControllers()
	require.NoError(t, controllers.Register("app", "user_controller", plumbing.Controller{
		"index": plumbing.Handle(noop),
		"new":   plumbing.Handle(noop),
	}))

	library := prehandlers.NewLibrary()
	require.NoError(t, library.Register("audit", func(r *http.Request) (any, error) { return nil, nil }))

	return Options{Controllers: controllers, PreHandlers: library, Fs: fs}
}

func run(t *testing.T, opts Options, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(Options{})
	assert.Equal(t, "plumber", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"version", "routes", "serve"})
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("no-color"))
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, Options{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Plumber version: dev")
	assert.Contains(t, out, "Go version:")
}

func TestRoutesCommandTable(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"routes.yml": "routes:\n  - path: /users\n    action: user_controller\n",
		"hooks.yml":  "hooks:\n  - pre: audit\n    assign: audit\n",
	})

	out, _, err := run(t, opts, "routes")
	require.NoError(t, err)

	assert.Contains(t, out, "GROUP")
	assert.Contains(t, out, "/users/new")
	assert.Contains(t, out, "user_controller@index")
	assert.Contains(t, out, "audit:audit")
	assert.Contains(t, out, "[unimplemented_blueprint_action]")
	assert.Contains(t, out, "✓ 2 routes resolved in 1 groups")
}

func TestRoutesCommandJSON(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"routes.yml": "routes:\n  - path: /users\n    action: user_controller@index\n",
	})

	out, _, err := run(t, opts, "routes", "--json")
	require.NoError(t, err)

	var doc struct {
		Routes []struct {
			Pattern string `json:"pattern"`
			Method  string `json:"method"`
			Name    string `json:"name"`
		} `json:"routes"`
		Diagnostics []struct {
			Code     string `json:"code"`
			Severity string `json:"severity"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Routes, 1)
	assert.Equal(t, "/users", doc.Routes[0].Pattern)
	assert.Equal(t, "GET", doc.Routes[0].Method)
	assert.Equal(t, "user_controller@index", doc.Routes[0].Name)
	require.NotEmpty(t, doc.Diagnostics)
}

func TestRoutesCommandSuggestsController(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"routes.yml": "routes:\n  - path: /users\n    action: usr_controller@index\n",
	})

	_, stderr, err := run(t, opts, "routes")
	require.Error(t, err)

	var notFound *plumbing.ControllerNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Contains(t, stderr, "CONTROLLER NOT FOUND")
	assert.Contains(t, stderr, "Did you mean: user_controller?")
}

func TestRoutesCommandSuggestsAction(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"routes.yml": "routes:\n  - path: /users\n    action: user_controller@indx\n",
	})

	_, stderr, err := run(t, opts, "routes")
	require.Error(t, err)
	assert.Contains(t, stderr, "ACTION NOT FOUND")
	assert.Contains(t, stderr, "Did you mean: index?")
	assert.NotContains(t, stderr, "index, new")
}

func TestRoutesCommandBadConfig(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"plumber.yml": "log:\n  level: loud\n",
	})

	_, stderr, err := run(t, opts, "routes")
	require.Error(t, err)
	assert.Contains(t, stderr, "CONFIGURATION ERROR")
}

func TestServeCommandStopsOnCancel(t *testing.T) {
	opts := testOptions(t, map[string]string{
		"plumber.yml": "server:\n  connections:\n    - address: 127.0.0.1:0\n  shutdown_timeout: 1s\n",
		"routes.yml":  "routes:\n  - path: /users\n    action: user_controller@index\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand(opts)
	cmd.SetArgs([]string{"serve", "--no-color"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.NoError(t, cmd.ExecuteContext(ctx))
}

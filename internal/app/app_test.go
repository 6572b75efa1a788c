package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/plumber/internal/cli/config"
	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/registry"
	"github.com/conduit-lang/plumber/internal/web/prehandlers"
	"github.com/conduit-lang/plumber/internal/web/request"
	"github.com/conduit-lang/plumber/internal/web/router"
	"github.com/conduit-lang/plumber/internal/web/server"
)

const routesFile = `
routes:
  - path: /users
    action: user_controller
  - path: /status
    action: status_controller@show
`

const hooksFile = `
hooks:
  - pre: audit
    assign: audit
    availableAfter: /users
  - pre: blog_only
    assign: blog
    plugins: [blog]
`

const blogRoutesFile = `
routes:
  - path: /posts
    action: post_controller@index
`

func writeFiles(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func loadConfig(t *testing.T, fs afero.Fs) *config.Config {
	t.Helper()
	cfg, err := config.Load(fs, "")
	require.NoError(t, err)
	cfg.App.UploadDir = t.TempDir()
	return cfg
}

// echoPre writes every pre-handler result and the payload file size as JSON
func echoPre(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{"action": name, "pre": router.PreValues(r)}
		if body := request.FromContext(r.Context()); body != nil && body.File != nil {
			out["file_size"] = body.File.Size
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func library(t *testing.T) *prehandlers.Library {
	t.Helper()
	lib := prehandlers.NewLibrary()
	require.NoError(t, lib.Register("audit", func(r *http.Request) (any, error) { return "audited", nil }))
	require.NoError(t, lib.Register("blog_only", func(r *http.Request) (any, error) { return "blog", nil }))
	return lib
}

func controllers(t *testing.T) *registry.Controllers {
	t.Helper()
	c := registry.NewControllers()
	require.NoError(t, c.Register("app", "user_controller", plumbing.Controller{
		"index":  plumbing.Handle(echoPre("user.index")),
		"create": plumbing.Handle(echoPre("user.create")),
	}))
	require.NoError(t, c.Register("app", "status_controller", plumbing.Controller{
		"show": plumbing.Handle(echoPre("status.show")),
	}))
	require.NoError(t, c.Register("blog", "post_controller", plumbing.Controller{
		"index": plumbing.Handle(echoPre("post.index")),
	}))
	return c
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestBuildAndServe(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"routes.yml":              routesFile,
		"hooks.yml":               hooksFile,
		"plugins/blog_routes.yml": blogRoutesFile,
	})

	a, err := New(loadConfig(t, fs), WithFs(fs), WithControllers(controllers(t)), WithPreHandlers(library(t)))
	require.NoError(t, err)
	require.NoError(t, a.Build())
	assert.ErrorIs(t, a.Build(), ErrAlreadyBuilt)

	require.Len(t, a.Results(), 2)
	assert.Equal(t, "app", a.Results()[0].Group)
	assert.Equal(t, "blog", a.Results()[1].Group)

	h := a.Handler()

	// availableAfter /users applies to the blueprint routes only
	status, body := do(t, h, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user.index", body["action"])
	assert.Equal(t, map[string]any{"audit": "audited"}, body["pre"])

	status, body = do(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{}, body["pre"])

	// Default payload policy writes create bodies to a file
	status, body = do(t, h, http.MethodPost, "/users/create", `{"name":"ada"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user.create", body["action"])
	assert.Equal(t, float64(len(`{"name":"ada"}`)), body["file_size"])

	// The plugin hook only reaches the plugin's routes
	status, body = do(t, h, http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"blog": "blog"}, body["pre"])

	// Unimplemented blueprint actions are not registered
	status, _ = do(t, h, http.MethodGet, "/users/new", "")
	assert.Equal(t, http.StatusNotFound, status)

	codes := map[string]int{}
	for _, d := range a.Diagnostics() {
		codes[d.Code]++
	}
	assert.Equal(t, 4, codes[plumbing.CodeUnimplementedBlueprintAction])
}

func TestBuildLabelsScopeHooks(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"routes.yml": routesFile,
		"hooks.yml": `
hooks:
  - pre: audit
    assign: admin
    labels: [admin]
  - pre: audit
    assign: web
    labels: [web]
`,
	})

	cfg := loadConfig(t, fs)
	cfg.Server.Connections = []server.Connection{{Address: ":0", Labels: []string{"web"}}}

	a, err := New(cfg, WithFs(fs), WithControllers(controllers(t)), WithPreHandlers(library(t)))
	require.NoError(t, err)
	require.NoError(t, a.Build())

	_, body := do(t, a.Handler(), http.MethodGet, "/status", "")
	assert.Equal(t, map[string]any{"web": "audited"}, body["pre"])
}

func TestBuildFailsOnMissingController(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"routes.yml": "routes:\n  - path: /orders\n    action: order_controller@index\n",
	})

	a, err := New(loadConfig(t, fs), WithFs(fs), WithControllers(controllers(t)))
	require.NoError(t, err)

	err = a.Build()
	var notFound *plumbing.ControllerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "order_controller", notFound.Controller)
	assert.Nil(t, a.Router())

	_, err = a.Server()
	assert.Error(t, err)
}

func TestBuildFailsOnUnknownPreHandler(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"routes.yml": routesFile,
		"hooks.yml":  "hooks:\n  - pre: jwt\n    assign: user\n",
	})

	// No jwt secret configured, so the jwt pre-handler is not available
	a, err := New(loadConfig(t, fs), WithFs(fs), WithControllers(controllers(t)))
	require.NoError(t, err)
	assert.ErrorIs(t, a.Build(), prehandlers.ErrUnknownPreHandler)
}

func TestBuildDuplicateAcrossGroups(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"routes.yml":              "routes:\n  - path: /posts\n    action: status_controller@show\n",
		"plugins/blog_routes.yml": blogRoutesFile,
	})

	a, err := New(loadConfig(t, fs), WithFs(fs), WithControllers(controllers(t)))
	require.NoError(t, err)
	assert.ErrorIs(t, a.Build(), router.ErrRouteExists)
}

func TestBuildWithoutFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := New(loadConfig(t, fs), WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, a.Build())

	codes := map[string]bool{}
	for _, d := range a.Diagnostics() {
		codes[d.Code] = true
	}
	assert.True(t, codes[plumbing.CodeMissingOptionalFile])
	assert.True(t, codes[plumbing.CodeNoRoutes])
	assert.True(t, codes[plumbing.CodeNoHooks])
	assert.Empty(t, a.Router().GetRoutes())
}

func TestBuiltinJWT(t *testing.T) {
	fs := writeFiles(t, map[string]string{
		"routes.yml": routesFile,
		"hooks.yml":  "hooks:\n  - pre: jwt\n    assign: user\n    availableAfter: /users\n",
	})
	cfg := loadConfig(t, fs)
	cfg.Auth.JWTSecret = "secret"

	a, err := New(cfg, WithFs(fs), WithControllers(controllers(t)))
	require.NoError(t, err)
	require.NoError(t, a.Build())
	h := a.Handler()

	status, body := do(t, h, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	token, err := prehandlers.NewTokens("secret", time.Minute).Issue("user-1", nil)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// Routes outside /users are public
	status, _ = do(t, h, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestRoutesEndpoint(t *testing.T) {
	fs := writeFiles(t, map[string]string{"routes.yml": routesFile})
	cfg := loadConfig(t, fs)
	cfg.App.RoutesEndpoint = "/_routes"

	a, err := New(cfg, WithFs(fs), WithControllers(controllers(t)))
	require.NoError(t, err)
	require.NoError(t, a.Build())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_routes", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Routes []router.RouteInfo `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	var names []string
	for _, route := range out.Routes {
		names = append(names, fmt.Sprintf("%s %s", route.Method, route.Pattern))
	}
	assert.Contains(t, names, "GET /users")
	assert.Contains(t, names, "POST /users/create")
	assert.Contains(t, names, "GET /_routes")
}

func TestServicesReachHandlers(t *testing.T) {
	fs := writeFiles(t, map[string]string{"routes.yml": routesFile})

	services := registry.NewServices()
	require.NoError(t, services.Register("billing/invoice", "invoice-svc"))

	c := registry.NewControllers()
	require.NoError(t, c.Register("app", "user_controller", plumbing.Controller{}))
	require.NoError(t, c.Register("app", "status_controller", plumbing.Controller{
		"show": plumbing.Handle(func(w http.ResponseWriter, r *http.Request) {
			svc, err := registry.ServicesFromContext(r.Context()).Lookup("billing/invoice")
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			_, _ = fmt.Fprint(w, svc)
		}),
	}))

	a, err := New(loadConfig(t, fs), WithFs(fs), WithControllers(c), WithServices(services))
	require.NoError(t, err)
	require.NoError(t, a.Build())

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, "invoice-svc", rec.Body.String())
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestCloseWithoutSessions(t *testing.T) {
	a, err := New(loadConfig(t, afero.NewMemMapFs()))
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

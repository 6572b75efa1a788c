package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/plumber/internal/web/server"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.App.Name)
	assert.Equal(t, "routes.yml", cfg.App.RoutesFile)
	assert.Equal(t, "hooks.yml", cfg.App.HooksFile)
	assert.Equal(t, "plugins", cfg.App.PluginsDir)
	assert.Equal(t, os.TempDir(), cfg.App.UploadDir)
	assert.Empty(t, cfg.App.RoutesEndpoint)

	assert.Equal(t, []server.Connection{{Address: ":3000"}}, cfg.Server.Connections)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "plumber:session:", cfg.Redis.SessionPrefix)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "plumber.yml", []byte(`
app:
  name: shop
  routes_file: config/routes.yml
  routes_endpoint: /_routes
server:
  connections:
    - address: ":8080"
      labels: [web]
    - address: ":9090"
      labels: [api, admin]
  shutdown_timeout: 5s
log:
  level: debug
  format: json
auth:
  jwt_secret: s3cret
  basic_users:
    ada: "$2a$10$abcdefghijklmnopqrstuv"
redis:
  addr: localhost:6379
  db: 2
`), 0o644))

	cfg, err := Load(fs, "")
	require.NoError(t, err)

	assert.Equal(t, "shop", cfg.App.Name)
	assert.Equal(t, "config/routes.yml", cfg.App.RoutesFile)
	assert.Equal(t, "/_routes", cfg.App.RoutesEndpoint)
	assert.Equal(t, []server.Connection{
		{Address: ":8080", Labels: []string{"web"}},
		{Address: ":9090", Labels: []string{"api", "admin"}},
	}, cfg.Server.Connections)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Contains(t, cfg.Auth.BasicUsers, "ada")
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadExplicitPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "conf/custom.json", []byte(`{"app":{"name":"custom"}}`), 0o644))

	cfg, err := Load(fs, "conf/custom.json")
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.App.Name)

	_, err = Load(fs, "conf/missing.yml")
	assert.Error(t, err)
}

func TestLoadDefaultFileOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "plumber.json", []byte(`{"app":{"name":"from-json"}}`), 0o644))

	cfg, err := Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "from-json", cfg.App.Name)

	require.NoError(t, afero.WriteFile(fs, "plumber.yaml", []byte("app:\n  name: from-yaml\n"), 0o644))
	cfg, err = Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.App.Name)

	require.NoError(t, afero.WriteFile(fs, "plumber.yml", []byte("app:\n  name: from-yml\n"), 0o644))
	cfg, err = Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "from-yml", cfg.App.Name)
}

func TestLoadInvalidDefaultFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "plumber.yml", []byte("log:\n  level: loud\n"), 0o644))

	_, err := Load(fs, "")
	assert.ErrorContains(t, err, "log.level")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PLUMBER_LOG_LEVEL", "warn")
	t.Setenv("PLUMBER_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Name: "app"},
			Server: ServerConfig{Connections: []server.Connection{{Address: ":3000"}}},
			Log:    LogConfig{Level: "info", Format: "console"},
		}
	}
	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty app name", func(c *Config) { c.App.Name = " " }, "app.name"},
		{"relative routes endpoint", func(c *Config) { c.App.RoutesEndpoint = "routes" }, "app.routes_endpoint"},
		{"no connections", func(c *Config) { c.Server.Connections = nil }, "at least one connection"},
		{"empty address", func(c *Config) { c.Server.Connections[0].Address = "" }, "connections[0].address"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"plain password", func(c *Config) { c.Auth.BasicUsers = map[string]string{"ada": "hunter2"} }, "bcrypt hash"},
		{"negative redis db", func(c *Config) { c.Redis.DB = -1 }, "redis.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, validateConfig(cfg), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewLogger(LogConfig{Level: "error", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(0))

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}

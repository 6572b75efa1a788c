package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/plumber/internal/web/server"
)

// EnvPrefix prefixes every environment override, e.g. PLUMBER_LOG_LEVEL
const EnvPrefix = "PLUMBER"

// Config represents the plumber configuration
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// AppConfig locates the application's declaration files
type AppConfig struct {
	Name       string `mapstructure:"name"`
	RoutesFile string `mapstructure:"routes_file"`
	HooksFile  string `mapstructure:"hooks_file"`
	PluginsDir string `mapstructure:"plugins_dir"`
	UploadDir  string `mapstructure:"upload_dir"`
	// RoutesEndpoint serves the resolved route table as JSON when set
	RoutesEndpoint string `mapstructure:"routes_endpoint"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Connections       []server.Connection `mapstructure:"connections"`
	ReadTimeout       time.Duration       `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration       `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration       `mapstructure:"idle_timeout"`
	ReadHeaderTimeout time.Duration       `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration       `mapstructure:"shutdown_timeout"`
}

// LogConfig selects the logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// AuthConfig configures the authentication pre-handlers
type AuthConfig struct {
	JWTSecret  string            `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration     `mapstructure:"token_ttl"`
	BasicRealm string            `mapstructure:"basic_realm"`
	BasicUsers map[string]string `mapstructure:"basic_users"` // username to bcrypt hash
}

// RedisConfig configures the session pre-handler. Sessions are disabled
// when Addr is empty.
type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	SessionPrefix string        `mapstructure:"session_prefix"`
	SessionCookie string        `mapstructure:"session_cookie"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "app")
	v.SetDefault("app.routes_file", "routes.yml")
	v.SetDefault("app.hooks_file", "hooks.yml")
	v.SetDefault("app.plugins_dir", "plugins")
	v.SetDefault("app.upload_dir", os.TempDir())
	v.SetDefault("app.routes_endpoint", "")

	v.SetDefault("server.connections", []map[string]any{{"address": ":3000"}})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.basic_realm", "plumber")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_prefix", "plumber:session:")
	v.SetDefault("redis.session_cookie", "plumber_session")
	v.SetDefault("redis.session_ttl", 24*time.Hour)
}

// DefaultFiles are looked up in order when no config path is given
var DefaultFiles = []string{"plumber.yml", "plumber.yaml", "plumber.json"}

// Load reads plumber.yml (or .yaml/.json) from the working directory of fs,
// or the file at path when one is given. A missing default file is not an
// error.
func Load(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	configFile := path
	if configFile == "" {
		found, err := findDefaultFile(fs)
		if err != nil {
			return nil, err
		}
		configFile = found
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// No config file - use defaults
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.App.Name) == "" {
		return fmt.Errorf("app.name must not be empty")
	}
	if cfg.App.RoutesEndpoint != "" && !strings.HasPrefix(cfg.App.RoutesEndpoint, "/") {
		return fmt.Errorf("app.routes_endpoint must start with '/', got: %s", cfg.App.RoutesEndpoint)
	}

	if len(cfg.Server.Connections) == 0 {
		return fmt.Errorf("server.connections must declare at least one connection")
	}
	for i, conn := range cfg.Server.Connections {
		if strings.TrimSpace(conn.Address) == "" {
			return fmt.Errorf("server.connections[%d].address must not be empty", i)
		}
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	for user, hash := range cfg.Auth.BasicUsers {
		if !strings.HasPrefix(hash, "$2") {
			return fmt.Errorf("auth.basic_users.%s must be a bcrypt hash", user)
		}
	}

	if cfg.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative, got: %d", cfg.Redis.DB)
	}

	return nil
}

// NewLogger builds the logger described by the log section
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// findDefaultFile returns the first of DefaultFiles present on fs, or ""
func findDefaultFile(fs afero.Fs) (string, error) {
	for _, name := range DefaultFiles {
		exists, err := afero.Exists(fs, name)
		if err != nil {
			return "", fmt.Errorf("check config file %s: %w", name, err)
		}
		if exists {
			return name, nil
		}
	}
	return "", nil
}

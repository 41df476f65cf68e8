package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by the service.
const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvDBServer       = "DB_SERVER"
	EnvDBPort         = "DB_PORT"
	EnvDBUser         = "DB_USER"
	EnvDBPassword     = "DB_PASSWORD"
	EnvDBName         = "DB_NAME"
	EnvConnectTimeout = "DB_CONNECT_TIMEOUT"
	EnvRequestTimeout = "DB_REQUEST_TIMEOUT"
	EnvSupabaseURL    = "SUPABASE_URL"
	EnvSupabaseKey    = "SUPABASE_SERVICE_ROLE_KEY"
	EnvPort           = "PORT"
	EnvLoginRateLimit = "LOGIN_RATE_LIMIT"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
)

// Development fallbacks. Production deployments must set the environment
// explicitly; these exist so a local checkout runs without any setup.
const (
	defaultDSN            = "file:accountd.db?cache=shared"
	defaultPort           = 30900
	defaultConnectTimeout = 30 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultIdentityURL    = "http://localhost:54321"
)

// Config holds resolved service configuration.
type Config struct {
	DSN            string        // Database connection string.
	Port           int           // HTTP listen port.
	ConnectTimeout time.Duration // Database dial timeout.
	RequestTimeout time.Duration // Per-request database timeout.

	IdentityBaseURL string // Identity provider base URL.
	IdentityKey     string // Identity provider service credential.

	LoginRateLimit int    // Login attempts allowed per IP per second, 0 disables.
	RedisAddr      string // Optional redis backend for the login limiter.
	RedisPassword  string // Redis credential.
}

// fileConfig maps the optional YAML config file.
type fileConfig struct {
	DatabaseDSN string `yaml:"database-dsn"`
	Database    struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Port     int `yaml:"port"`
	Identity struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
	} `yaml:"identity"`
	LoginRateLimit int    `yaml:"login-rate-limit"`
	RedisAddr      string `yaml:"redis-addr"`
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load builds the service configuration from the environment, falling back to
// the YAML config file at configPath and finally to development defaults.
func Load(configPath string) (Config, error) {
	cfg := Config{
		Port:            defaultPort,
		ConnectTimeout:  defaultConnectTimeout,
		RequestTimeout:  defaultRequestTimeout,
		IdentityBaseURL: defaultIdentityURL,
	}

	var file fileConfig
	if data, errRead := os.ReadFile(ResolveConfigPath(configPath)); errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, &file); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", configPath, errUnmarshal)
		}
	}

	cfg.DSN = firstNonEmpty(
		os.Getenv(EnvDBConnection),
		dsnFromParts(),
		file.DatabaseDSN,
		file.Database.DSN,
		defaultDSN,
	)
	if file.Port > 0 {
		cfg.Port = file.Port
	}
	if port, ok := intFromEnv(EnvPort); ok {
		cfg.Port = port
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid port: %d", cfg.Port)
	}

	if timeout, ok := durationFromEnv(EnvConnectTimeout); ok {
		cfg.ConnectTimeout = timeout
	}
	if timeout, ok := durationFromEnv(EnvRequestTimeout); ok {
		cfg.RequestTimeout = timeout
	}

	cfg.IdentityBaseURL = firstNonEmpty(os.Getenv(EnvSupabaseURL), file.Identity.URL, cfg.IdentityBaseURL)
	cfg.IdentityKey = firstNonEmpty(os.Getenv(EnvSupabaseKey), file.Identity.Key)

	cfg.LoginRateLimit = file.LoginRateLimit
	if limit, ok := intFromEnv(EnvLoginRateLimit); ok {
		cfg.LoginRateLimit = limit
	}
	cfg.RedisAddr = firstNonEmpty(os.Getenv(EnvRedisAddr), file.RedisAddr)
	cfg.RedisPassword = os.Getenv(EnvRedisPassword)

	return cfg, nil
}

// dsnFromParts assembles a Postgres DSN from discrete DB_* variables, or
// returns empty when the host is not set.
func dsnFromParts() string {
	host := strings.TrimSpace(os.Getenv(EnvDBServer))
	if host == "" {
		return ""
	}
	port := strings.TrimSpace(os.Getenv(EnvDBPort))
	if port == "" {
		port = "5432"
	}
	user := strings.TrimSpace(os.Getenv(EnvDBUser))
	password := strings.TrimSpace(os.Getenv(EnvDBPassword))
	name := strings.TrimSpace(os.Getenv(EnvDBName))
	if name == "" {
		name = "accountd"
	}

	parts := []string{
		"host=" + host,
		"port=" + port,
		"dbname=" + name,
	}
	if user != "" {
		parts = append(parts, "user="+user)
	}
	if password != "" {
		parts = append(parts, "password="+password)
	}
	return strings.Join(parts, " ")
}

// firstNonEmpty returns the first value with non-blank content.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// intFromEnv parses an integer environment variable.
func intFromEnv(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	value, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return 0, false
	}
	return value, true
}

// durationFromEnv parses a duration environment variable. Bare integers are
// treated as seconds to match the original deployment's millisecond-free form.
func durationFromEnv(key string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	if seconds, errParse := strconv.Atoi(raw); errParse == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if parsed, errParse := time.ParseDuration(raw); errParse == nil && parsed > 0 {
		return parsed, true
	}
	return 0, false
}

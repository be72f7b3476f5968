package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "LoanForm"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultDBPort        = "5432"
	defaultKeyPath       = "/var/lib/loanform/encryption.key"
	defaultUploadDir     = "uploads"
	defaultMXCacheTTL    = 10 * time.Minute
	defaultSubmitPerMin  = 10

	// EnvFileVar overrides where the key-value config file is read from.
	EnvFileVar = "LOANFORM_ENV_FILE"

	defaultEnvFile = ".env"
)

// Config captures application runtime configuration. Values come from a
// KEY=VALUE config file overlaid by process environment variables; the
// environment wins on conflict.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DBHost         string
	DBPort         string
	DBName         string
	DBUser         string
	DBPass         string
	RedisURL       string
	KeyPath        string
	UploadDir      string
	ShutdownPeriod time.Duration
	MXCacheTTL     time.Duration
	SubmitPerMin   int

	values map[string]string
}

// Load reads the config file (if present), overlays the environment and
// validates the result. Database settings are required; the service refuses
// to start with a partial database configuration.
func Load() (Config, error) {
	path := os.Getenv(EnvFileVar)
	if path == "" {
		path = defaultEnvFile
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (Config, error) {
	values, err := parseFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{values: values}
	cfg.AppName = cfg.Get("APP_NAME", defaultAppName)
	cfg.AppEnv = cfg.Get("APP_ENV", defaultAppEnv)
	cfg.Port = cfg.Get("PORT", defaultPort)
	cfg.LogLevel = strings.ToLower(cfg.Get("LOG_LEVEL", defaultLogLevel))
	cfg.DBHost = cfg.Get("DB_HOST", "")
	cfg.DBPort = cfg.Get("DB_PORT", defaultDBPort)
	cfg.DBName = cfg.Get("DB_NAME", "")
	cfg.DBUser = cfg.Get("DB_USER", "")
	cfg.DBPass = cfg.Get("DB_PASS", "")
	cfg.RedisURL = cfg.Get("REDIS_URL", "")
	cfg.KeyPath = cfg.Get("ENCRYPTION_KEY_PATH", defaultKeyPath)
	cfg.UploadDir = cfg.Get("UPLOAD_DIR", defaultUploadDir)
	cfg.ShutdownPeriod = defaultShutdownDelay
	cfg.MXCacheTTL = defaultMXCacheTTL
	cfg.SubmitPerMin = defaultSubmitPerMin

	if v := cfg.Get("SHUTDOWN_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := cfg.Get("MX_CACHE_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MX_CACHE_TTL: %w", err)
		}
		cfg.MXCacheTTL = d
	}

	if v := cfg.Get("SUBMIT_RATE_PER_MIN", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SUBMIT_RATE_PER_MIN: %w", err)
		}
		cfg.SubmitPerMin = n
	}

	if cfg.DBHost == "" || cfg.DBName == "" || cfg.DBUser == "" || cfg.DBPass == "" {
		return Config{}, fmt.Errorf("database configuration is not set properly: DB_HOST, DB_NAME, DB_USER and DB_PASS are required")
	}
	if _, err := strconv.Atoi(cfg.DBPort); err != nil {
		return Config{}, fmt.Errorf("invalid DB_PORT %q: %w", cfg.DBPort, err)
	}

	return cfg, nil
}

// Get returns the named value, the process environment taking precedence over
// the config file. The fallback is returned when the key is absent in both.
func (c Config) Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := c.values[key]; ok && v != "" {
		return v
	}
	return fallback
}

// DatabaseURL assembles the pgx connection string from the discrete settings.
func (c Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPass), c.DBHost, c.DBPort, c.DBName)
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// parseFile reads KEY=VALUE lines. Blank lines and #-comments are skipped and
// surrounding quotes on values are stripped. A missing file is not an error;
// the environment alone may carry the configuration.
func parseFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		values[strings.TrimSpace(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	return values, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Interview InterviewConfig `yaml:"interview"`
	Report    ReportConfig    `yaml:"report"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// TrustProxy resolves client addresses from forwarding headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// TransportConfig selects between MCP over stdio and the HTTP server.
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig controls bearer-token authentication on the HTTP transport.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

type InterviewConfig struct {
	// CatalogPath points to a YAML catalog; empty uses the built-in one.
	CatalogPath     string `yaml:"catalog_path"`
	MaxWriteRetries int    `yaml:"max_write_retries"`
}

type ReportConfig struct {
	CacheSize int `yaml:"cache_size"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "imre.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: TransportHTTP,
		},
		Auth: AuthConfig{
			Enabled:   false,
			JWTIssuer: "imre",
		},
		Interview: InterviewConfig{
			MaxWriteRetries: 3,
		},
		Report: ReportConfig{
			CacheSize: 256,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML
// file and environment variables, in increasing precedence.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("IMRE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport mode %q: want stdio or http", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Interview.MaxWriteRetries < 0 {
		return fmt.Errorf("interview.max_write_retries must not be negative")
	}
	if c.Report.CacheSize <= 0 {
		return fmt.Errorf("report.cache_size must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_second and burst")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("IMRE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if err := envInt("IMRE_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := envBool("IMRE_TRUST_PROXY", &cfg.Server.TrustProxy); err != nil {
		return err
	}
	if dbPath := os.Getenv("IMRE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("IMRE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
	if logPath := os.Getenv("IMRE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("IMRE_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(mode)
	}
	if err := envBool("IMRE_AUTH_ENABLED", &cfg.Auth.Enabled); err != nil {
		return err
	}
	if secret := os.Getenv("IMRE_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if issuer := os.Getenv("IMRE_JWT_ISSUER"); issuer != "" {
		cfg.Auth.JWTIssuer = issuer
	}
	if path := os.Getenv("IMRE_CATALOG_PATH"); path != "" {
		cfg.Interview.CatalogPath = path
	}
	if err := envInt("IMRE_MAX_WRITE_RETRIES", &cfg.Interview.MaxWriteRetries); err != nil {
		return err
	}
	if err := envInt("IMRE_REPORT_CACHE_SIZE", &cfg.Report.CacheSize); err != nil {
		return err
	}
	if err := envBool("IMRE_RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled); err != nil {
		return err
	}
	if v := os.Getenv("IMRE_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid IMRE_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RequestsPerSecond = rps
	}
	return envInt("IMRE_RATE_LIMIT_BURST", &cfg.RateLimit.Burst)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

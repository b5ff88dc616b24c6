package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	Provision ProvisionConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Auth      AuthConfig
	Features  FeaturesConfig
	XMPP      XMPPConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// ProvisionConfig controls the remote trust configuration fetch.
type ProvisionConfig struct {
	URL         string        // remote config endpoint; overridable at startup
	Disabled    bool          // kill switch: baseline-only mode, no fetching
	Interval    time.Duration // periodic refresh interval
	Timeout     time.Duration // per-request network timeout
	MaxAttempts int           // attempts per fetch cycle, including the first
	CachePath   string        // disk mirror of the last validated config
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

// AuthConfig covers the admin surface: ops tooling exchanges the admin API
// key for a short-lived JWT.
type AuthConfig struct {
	JWTSecret       string
	TokenExpiry     time.Duration
	AdminKeyHash    string // bcrypt hash of the admin API key
	RateLimitMax    int    // token endpoint requests per window per IP
	RateLimitWindow int    // window in seconds
}

// FeaturesConfig holds the boolean flags consumed by the UI command table.
type FeaturesConfig struct {
	AssistantPanel bool
	CompareView    bool
}

// XMPPConfig configures the optional ops alert channel.
type XMPPConfig struct {
	ComponentName   string
	ComponentSecret string
	Host            string
	Port            int
	AlertJID        string // recipient of degraded/recovered alerts; empty disables
}

func (c XMPPConfig) ComponentAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		Provision: ProvisionConfig{
			URL:         k.String("provision.url"),
			Disabled:    k.Bool("provision.disabled"),
			MaxAttempts: k.Int("provision.max.attempts"),
			CachePath:   k.String("provision.cache.path"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		Auth: AuthConfig{
			JWTSecret:       k.String("auth.jwt.secret"),
			AdminKeyHash:    k.String("auth.admin.key.hash"),
			RateLimitMax:    k.Int("auth.ratelimit.max"),
			RateLimitWindow: k.Int("auth.ratelimit.window"),
		},
		Features: FeaturesConfig{
			AssistantPanel: k.Bool("features.assistant.panel"),
			CompareView:    k.Bool("features.compare.view"),
		},
		XMPP: XMPPConfig{
			ComponentName:   k.String("xmpp.component.name"),
			ComponentSecret: k.String("xmpp.component.secret"),
			Host:            k.String("xmpp.host"),
			Port:            k.Int("xmpp.port"),
			AlertJID:        k.String("xmpp.alert.jid"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Provision.URL == "" {
		cfg.Provision.URL = "https://config.extgov.dev/v1/extensions.json"
	}
	if cfg.Provision.MaxAttempts == 0 {
		cfg.Provision.MaxAttempts = 3
	}
	if cfg.Provision.CachePath == "" {
		cfg.Provision.CachePath = "/var/lib/extgov/remote-config.json"
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "extgov"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "extgov"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Auth.RateLimitMax == 0 {
		cfg.Auth.RateLimitMax = 10
	}
	if cfg.Auth.RateLimitWindow == 0 {
		cfg.Auth.RateLimitWindow = 60
	}
	if cfg.XMPP.Port == 0 {
		cfg.XMPP.Port = 5347
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	intervalStr := k.String("provision.interval")
	if intervalStr == "" {
		intervalStr = "6h"
	}
	cfg.Provision.Interval, err = time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("parsing provision interval: %w", err)
	}

	timeoutStr := k.String("provision.timeout")
	if timeoutStr == "" {
		timeoutStr = "30s"
	}
	cfg.Provision.Timeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing provision timeout: %w", err)
	}

	tokenExpStr := k.String("auth.token.expiry")
	if tokenExpStr == "" {
		tokenExpStr = "1h"
	}
	cfg.Auth.TokenExpiry, err = time.ParseDuration(tokenExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing auth token expiry: %w", err)
	}

	return cfg, nil
}

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Provision: ProvisionConfig{
			URL:         "https://config.extgov.dev/v1/extensions.json",
			Interval:    6 * time.Hour,
			Timeout:     30 * time.Second,
			MaxAttempts: 3,
			CachePath:   "/var/lib/extgov/remote-config.json",
		},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "extgov",
			Password: "secret", Name: "extgov", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth: AuthConfig{
			JWTSecret:    "jwt-secret-that-is-at-least-32-chars-ok!",
			TokenExpiry:  time.Hour,
			AdminKeyHash: "$2a$12$C6UzMDM.H6dfI/f/IKcEeO5nPjWf1a5Yy3cMqtU0yq4wTpF3K6bQm",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_ProvisionURLRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Provision.URL = "not a url"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "PROVISION_URL") {
		t.Fatalf("expected PROVISION_URL error, got: %v", err)
	}
}

func TestValidate_ProvisionURLMustBeHTTPS(t *testing.T) {
	cfg := validConfig()
	cfg.Provision.URL = "http://config.example.com/extensions.json"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "https") {
		t.Fatalf("expected https error, got: %v", err)
	}
}

func TestValidate_ProvisionURLLocalhostHTTPAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Provision.URL = "http://localhost:9090/extensions.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected localhost http to be allowed, got: %v", err)
	}
}

func TestValidate_ProvisionMaxAttempts(t *testing.T) {
	cfg := validConfig()
	cfg.Provision.MaxAttempts = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "PROVISION_MAX_ATTEMPTS") {
		t.Fatalf("expected PROVISION_MAX_ATTEMPTS error, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AUTH_JWT_SECRET") {
		t.Fatalf("expected AUTH_JWT_SECRET error, got: %v", err)
	}
}

func TestValidate_AdminKeyHashRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.AdminKeyHash = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AUTH_ADMIN_KEY_HASH is required") {
		t.Fatalf("expected AUTH_ADMIN_KEY_HASH required error, got: %v", err)
	}
}

func TestValidate_AdminKeyHashMustBeBcrypt(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.AdminKeyHash = "plaintext-key"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "bcrypt") {
		t.Fatalf("expected bcrypt error, got: %v", err)
	}
}

func TestValidate_DBPasswordRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD") {
		t.Fatalf("expected DB_PASSWORD error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.DB.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PORT") {
		t.Errorf("expected DB_PORT error in: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 0},
		Provision: ProvisionConfig{URL: "https://config.example.com/x.json", Interval: time.Hour, Timeout: time.Second, MaxAttempts: 3},
		DB:        DBConfig{Port: 5432},
		Redis:     RedisConfig{Port: 6379},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"AUTH_JWT_SECRET", "AUTH_ADMIN_KEY_HASH", "DB_PASSWORD", "SERVER_PORT"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}

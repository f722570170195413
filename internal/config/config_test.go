package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Port:          "8081",
		SQLiteDBPath:  "./test.db",
		SessionSecret: "0123456789abcdef",
		SessionTTL:    168 * time.Hour,
		RateLimitRPM:  60,
		CacheTTL:      5 * time.Minute,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "empty database path",
			mutate:      func(c *Config) { c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name:        "missing session secret",
			mutate:      func(c *Config) { c.SessionSecret = "" },
			wantErr:     true,
			errorString: "SESSION_SECRET is required",
		},
		{
			name:        "short session secret",
			mutate:      func(c *Config) { c.SessionSecret = "short" },
			wantErr:     true,
			errorString: "SESSION_SECRET must be at least 16 characters",
		},
		{
			name:        "session TTL too small",
			mutate:      func(c *Config) { c.SessionTTL = time.Second },
			wantErr:     true,
			errorString: "must be at least 1 minute",
		},
		{
			name:        "rate limit too small",
			mutate:      func(c *Config) { c.RateLimitRPM = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errorString)
			}
		})
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Addr(); got != ":8081" {
		t.Errorf("Addr() = %q, want %q", got, ":8081")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8081" {
		t.Errorf("default port = %q, want 8081", cfg.Port)
	}
	if cfg.SessionTTL != 168*time.Hour {
		t.Errorf("default session TTL = %v, want 168h", cfg.SessionTTL)
	}
}

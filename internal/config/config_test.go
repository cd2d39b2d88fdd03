package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "community")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DB.Host != "127.0.0.1" || cfg.DB.Port != "3306" {
		t.Fatalf("unexpected db address %s:%s", cfg.DB.Host, cfg.DB.Port)
	}
	if cfg.DB.LockWaitTimeout != 5 {
		t.Fatalf("expected lock wait timeout 5, got %d", cfg.DB.LockWaitTimeout)
	}
	if cfg.Cache.TTL != 60*time.Second {
		t.Fatalf("expected cache ttl 60s, got %s", cfg.Cache.TTL)
	}
	if cfg.AMQP.Enabled {
		t.Fatalf("expected amqp disabled by default")
	}
	if cfg.AMQP.Queue != "event.seats.changed" {
		t.Fatalf("unexpected queue %q", cfg.AMQP.Queue)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected dev environment by default")
	}
}

func TestParseMissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "community")

	if _, err := Parse(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is missing")
	}
}

func TestParseOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DB_LOCK_WAIT_TIMEOUT", "2")
	t.Setenv("CACHE_TTL", "15s")
	t.Setenv("MAINTENANCE_ENABLED", "true")
	t.Setenv("MAINTENANCE_BYPASS_TOKEN", "letmein")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.IsDev() {
		t.Fatalf("expected prod environment")
	}
	if cfg.DB.LockWaitTimeout != 2 {
		t.Fatalf("expected lock wait timeout 2, got %d", cfg.DB.LockWaitTimeout)
	}
	if cfg.Cache.TTL != 15*time.Second {
		t.Fatalf("expected cache ttl 15s, got %s", cfg.Cache.TTL)
	}
	if !cfg.Maintenance.Enabled || cfg.Maintenance.BypassToken != "letmein" {
		t.Fatalf("unexpected maintenance config %+v", cfg.Maintenance)
	}
}

func TestRateLimitNormalize(t *testing.T) {
	r := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: time.Second}
	r.normalize()
	if r.Capacity != 1 || r.RefillTokens != 1 {
		t.Fatalf("expected capacity and refill floored at 1, got %+v", r)
	}
	if r.RefillInterval != time.Second {
		t.Fatalf("expected refill interval 1s, got %s", r.RefillInterval)
	}
	if r.TTL != 5*time.Second {
		t.Fatalf("expected ttl raised to 5s, got %s", r.TTL)
	}
}

func TestRedisAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  RedisConfig
		want string
	}{
		{name: "default", cfg: RedisConfig{}, want: "localhost:6379"},
		{name: "addr", cfg: RedisConfig{Addr: "cache:6380"}, want: "cache:6380"},
		{name: "host and port win", cfg: RedisConfig{Addr: "cache:6380", Host: "redis", Port: "6379"}, want: "redis:6379"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Address(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

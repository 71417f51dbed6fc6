package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROYALIQ_UPSTREAM_BASE_URL", "http://localhost:9000")
	t.Setenv("ROYALIQ_VISITOR_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if !cfg.App.IsDev() {
		t.Fatalf("expected dev default, got %q", cfg.App.Env)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("expected sqlite default driver, got %q", cfg.DB.Driver)
	}
	if cfg.Localstore.UseRedis() {
		t.Fatal("expected db localstore default")
	}
	if cfg.Catalog.CacheTTL != time.Minute {
		t.Fatalf("unexpected catalog cache ttl %s", cfg.Catalog.CacheTTL)
	}
	if cfg.Upstream.CookieName != "royal_customer" {
		t.Fatalf("unexpected upstream cookie %q", cfg.Upstream.CookieName)
	}
}

func TestLoadRejectsUnknownLocalstoreBackend(t *testing.T) {
	t.Setenv("ROYALIQ_UPSTREAM_BASE_URL", "http://localhost:9000")
	t.Setenv("ROYALIQ_VISITOR_SECRET", "test-secret")
	t.Setenv("ROYALIQ_LOCALSTORE_BACKEND", "s3")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown localstore backend")
	}
}

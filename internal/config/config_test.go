package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PG_HOST", "")
	t.Setenv("PG_DATABASE", "")
	t.Setenv("ERP_URL", "")
	t.Setenv("ERP_BATCH_SIZE", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.NodeEnv != "development" {
		t.Errorf("Expected development, got %q", cfg.NodeEnv)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Database != "eckmrp" {
		t.Errorf("Unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.ERP.Enabled() {
		t.Error("Expected ERP disabled without ERP_URL")
	}
	if cfg.ERP.BatchSize != 500 {
		t.Errorf("Expected batch size 500, got %d", cfg.ERP.BatchSize)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Expected console logs in development, got %q", cfg.Log.Format)
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error without JWT_SECRET in production")
	}

	t.Setenv("JWT_SECRET", "secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Expected json logs in production, got %q", cfg.Log.Format)
	}
}

func TestLoadERP(t *testing.T) {
	t.Setenv("ERP_URL", "https://erp.example.com")
	t.Setenv("ERP_DATABASE", "prod")
	t.Setenv("ERP_SYNC_SCHEDULE", "@every 15m")
	t.Setenv("ERP_BATCH_SIZE", "abc")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for invalid ERP_BATCH_SIZE")
	}

	t.Setenv("ERP_BATCH_SIZE", "100")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.ERP.Enabled() || cfg.ERP.SyncSchedule != "@every 15m" || cfg.ERP.BatchSize != 100 {
		t.Errorf("Unexpected ERP config: %+v", cfg.ERP)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folio.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
db:
  dsn: postgres://localhost/folio
  max_conns: 8
eodhd:
  api_key: demo
  min_spacing: 500ms
portfolio:
  ledger_file: /var/lib/folio/transactions.jsonl
factor:
  lookback_days: 90
`)

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB.DSN != "postgres://localhost/folio" {
		t.Errorf("db.dsn = %q", cfg.DB.DSN)
	}
	if cfg.DB.MaxConns != 8 {
		t.Errorf("db.max_conns = %d", cfg.DB.MaxConns)
	}
	if cfg.EODHD.MinSpacing != 500*time.Millisecond {
		t.Errorf("eodhd.min_spacing = %v", cfg.EODHD.MinSpacing)
	}
	if cfg.Factor.LookbackDays != 90 {
		t.Errorf("factor.lookback_days = %d", cfg.Factor.LookbackDays)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.EODHD.MinSpacing != 250*time.Millisecond {
		t.Errorf("default eodhd.min_spacing = %v", cfg.EODHD.MinSpacing)
	}
	if cfg.Factor.LookbackDays != 60 {
		t.Errorf("default factor.lookback_days = %d", cfg.Factor.LookbackDays)
	}
	if cfg.Cron.FactorJob == "" || cfg.Cron.SnapshotJob == "" {
		t.Error("default cron schedules must not be empty")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("FOLIO_DB_DSN", "postgres://override/folio")
	t.Setenv("FOLIO_EODHD_API_KEY", "env-key")

	cfg, err := Load(writeConfig(t, "db:\n  dsn: postgres://file/folio\n"), false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB.DSN != "postgres://override/folio" {
		t.Errorf("db.dsn = %q, want the environment override", cfg.DB.DSN)
	}
	if cfg.EODHD.APIKey != "env-key" {
		t.Errorf("eodhd.api_key = %q, want the environment value", cfg.EODHD.APIKey)
	}
}

func TestEnvOnlySkipsFile(t *testing.T) {
	t.Setenv("FOLIO_DB_DSN", "postgres://envonly/folio")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), true)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB.DSN != "postgres://envonly/folio" {
		t.Errorf("db.dsn = %q", cfg.DB.DSN)
	}
}

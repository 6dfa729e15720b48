package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
source:
  dir: ./data
symbols:
  - BTCUSDT
  - ETHUSDT
postgres:
  database: midas
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Pattern != "{symbol}_1m.csv" {
		t.Fatalf("unexpected pattern %q", cfg.Source.Pattern)
	}
	if cfg.Source.ReorderWindow != 64 {
		t.Fatalf("unexpected reorder window %d", cfg.Source.ReorderWindow)
	}
	if cfg.Ingest.BatchSize != 1000 {
		t.Fatalf("unexpected batch size %d", cfg.Ingest.BatchSize)
	}
	// empty intervals derive the full default grid
	if len(cfg.Intervals) != 15 {
		t.Fatalf("expected 15 default intervals, got %d", len(cfg.Intervals))
	}
	if cfg.ExchangeTimezone != "UTC" {
		t.Fatalf("unexpected timezone %q", cfg.ExchangeTimezone)
	}
}

func TestLoadRejectsMissingSymbols(t *testing.T) {
	body := `
source:
  dir: ./data
postgres:
  database: midas
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	body := minimalConfig + `
intervals:
  - 1m
  - 7x
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected interval parse error")
	}
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	body := minimalConfig + `
exchange_timezone: Mars/Olympus
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "SOLUSDT,ADAUSDT")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "SOLUSDT" {
		t.Fatalf("unexpected symbols %v", cfg.Symbols)
	}
	if cfg.Postgres.Host != "db.internal" {
		t.Fatalf("unexpected host %q", cfg.Postgres.Host)
	}
}

func TestWorkerCount(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.WorkerCount(); got != cfg.Postgres.MaxConns {
		t.Fatalf("expected pool-sized workers, got %d", got)
	}
	cfg.Ingest.Workers = 3
	if got := cfg.WorkerCount(); got != 3 {
		t.Fatalf("expected 3 workers, got %d", got)
	}
}

package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("OBRA_PROJECT", "rampa-norte")
	t.Setenv("LABOR_MARKERS", " Mano de Obra , ,subcontrata MO")
	t.Setenv("MONEY_DECIMALS", "not-a-number")
	t.Setenv("IMAP_SECURE", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project != "rampa-norte" {
		t.Fatalf("project=%q", cfg.Project)
	}
	if len(cfg.LaborMarkers) != 2 || cfg.LaborMarkers[0] != "Mano de Obra" || cfg.LaborMarkers[1] != "subcontrata MO" {
		t.Fatalf("markers=%v", cfg.LaborMarkers)
	}
	if cfg.MoneyDecimals != 2 {
		t.Fatalf("decimals=%d", cfg.MoneyDecimals)
	}
	if cfg.IMAPSecure {
		t.Fatal("IMAP_SECURE=off should disable tls")
	}
	if cfg.StoreBackend != "sqlite" {
		t.Fatalf("backend=%q", cfg.StoreBackend)
	}
}

func TestRequire(t *testing.T) {
	cfg := Config{}
	if err := cfg.Require("IMAP_HOST", "  "); err == nil {
		t.Fatal("expected error for blank value")
	}
	if err := cfg.Require("IMAP_HOST", "mail.example.com"); err != nil {
		t.Fatal(err)
	}
}

func TestSetupLoggerJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := setupLogger(&buf, "debug", "json")
	logger.Debug("budget imported", "lines", 3)
	if !strings.Contains(buf.String(), `"lines":3`) {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}

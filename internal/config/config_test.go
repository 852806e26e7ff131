package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CachePath != DefaultCachePath || cfg.CredentialsPath != DefaultCredentialsPath {
		t.Fatalf("paths=%q %q", cfg.CachePath, cfg.CredentialsPath)
	}
	if cfg.Provider.URL != DefaultProviderURL {
		t.Fatalf("url=%q", cfg.Provider.URL)
	}
	if cfg.Provider.RetryDelay() != time.Minute {
		t.Fatalf("retry delay=%v", cfg.Provider.RetryDelay())
	}
	if cfg.Server.RefreshAt != "08:30" || !cfg.Server.Refresh() {
		t.Fatalf("server=%+v", cfg.Server)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("log=%+v", cfg.Log)
	}
}

func TestLoadValues(t *testing.T) {
	p := writeFile(t, strings.Join([]string{
		"cache_path: /tmp/cal.db",
		"provider:",
		"  retry_delay_seconds: -1",
		"  rate_per_minute: 120",
		"server:",
		"  addr: :9000",
		"  refresh_at: \"17:05\"",
		"  refresh_enabled: false",
		"log:",
		"  level: DEBUG",
		"  format: json",
	}, "\n"))
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CachePath != "/tmp/cal.db" || cfg.Provider.RatePerMinute != 120 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Provider.RetryDelay() >= 0 {
		t.Fatalf("negative retry delay not preserved: %v", cfg.Provider.RetryDelay())
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.RefreshAt != "17:05" || cfg.Server.Refresh() {
		t.Fatalf("server=%+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("log=%+v", cfg.Log)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADECAL_CACHE_PATH", "/env/cal.parquet")
	t.Setenv("TUSHARE_API_URL", "http://localhost:1")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeFile(t, "cache_path: /file/cal.parquet\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CachePath != "/env/cal.parquet" || cfg.Provider.URL != "http://localhost:1" || cfg.Log.Level != "warn" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.CachePath != DefaultCachePath {
		t.Fatalf("cache=%q", cfg.CachePath)
	}
}

func TestValidate(t *testing.T) {
	cases := []string{
		"server:\n  refresh_at: \"8:30\"\n",
		"server:\n  refresh_at: \"25:00\"\n",
		"log:\n  format: xml\n",
		"log:\n  level: loud\n",
		"provider:\n  max_attempts: -2\n",
		"provider:\n  rate_per_minute: -1\n",
	}
	for _, body := range cases {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.yaml")
	cfg, _ := LoadOrDefault(p)
	cfg.Server.RefreshAt = "09:00"
	if err := Save(p, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Server.RefreshAt != "09:00" {
		t.Fatalf("refresh_at=%q", got.Server.RefreshAt)
	}
}

func TestReadFileIsRaw(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := ReadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || cfg.CachePath != "" || cfg.Log.Level != "" {
		t.Fatalf("missing file: cfg=%+v err=%v", cfg, err)
	}

	cfg, err = ReadFile(writeFile(t, "server:\n  refresh_at: \"09:10\"\n"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if cfg.Server.RefreshAt != "09:10" || cfg.Server.Addr != "" || cfg.Log.Level != "" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/invoice"
)

func mapLookup(values map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	geom, err := cfg.Geometry()
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	if geom.Width != 210 || geom.Margin != 10 {
		t.Fatalf("unexpected geometry %+v", geom)
	}
	if cfg.Export.SettleDelay != invoice.DefaultSettleDelay {
		t.Fatalf("expected default settle delay, got %s", cfg.Export.SettleDelay)
	}
}

func TestLoadYAMLAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "invoices.yaml")
	yamlBody := `
server:
  address: ":9090"
  cors_origins: ["https://dash.example"]
api:
  base_url: "https://api.example/api"
  timeout: 5s
export:
  page_size: A5
  margin: 1cm
  busy_policy: wait
  settle_delay: 250ms
notifications:
  recipients: ["ops@example.com"]
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("INVOICES_EXPORT_DIR="+filepath.Join(dir, "out")+"\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("INVOICES_EXPORT_DIR") })
	t.Setenv("INVOICES_API_TIMEOUT", "7s")

	cfg, err := Load(yamlPath, envPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9090" || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.API.BaseURL != "https://api.example/api" || cfg.API.Timeout != 7*time.Second {
		t.Fatalf("unexpected api config %+v", cfg.API)
	}
	if cfg.Export.PageSize != "A5" || cfg.Export.BusyPolicy != "wait" || cfg.Export.SettleDelay != 250*time.Millisecond {
		t.Fatalf("unexpected export config %+v", cfg.Export)
	}
	if cfg.Export.Dir != filepath.Join(dir, "out") {
		t.Fatalf("expected export dir from .env, got %q", cfg.Export.Dir)
	}
	if cfg.Server.AppName != "invoicedash" {
		t.Fatalf("unset keys should keep defaults, got %q", cfg.Server.AppName)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	var ge *errorslib.Error
	if !errors.As(err, &ge) || ge.TextCode != "CONFIG_READ" {
		t.Fatalf("expected CONFIG_READ, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"VITE_API_BASE_URL":          "http://vite.local/api",
		"CHROME_BIN":                 "/usr/bin/chromium",
		"INVOICES_HEADLESS":          "false",
		"INVOICES_CAPTURE_SCALE":     "1.5",
		"INVOICES_NOTIFY_RECIPIENTS": "a@example.com, b@example.com,",
		"INVOICES_EXPORT_RETENTION":  "72h",
	}))
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.API.BaseURL != "http://vite.local/api" {
		t.Fatalf("expected VITE_API_BASE_URL to apply, got %q", cfg.API.BaseURL)
	}
	if cfg.Browser.Path != "/usr/bin/chromium" || cfg.Browser.Headless {
		t.Fatalf("unexpected browser config %+v", cfg.Browser)
	}
	if cfg.Export.Scale != 1.5 || cfg.Export.Retention != 72*time.Hour {
		t.Fatalf("unexpected export config %+v", cfg.Export)
	}
	if len(cfg.Notifications.Recipients) != 2 || cfg.Notifications.Recipients[1] != "b@example.com" {
		t.Fatalf("unexpected recipients %v", cfg.Notifications.Recipients)
	}

	cfg = Defaults()
	err = cfg.applyEnv(mapLookup(map[string]string{
		"VITE_API_BASE_URL":        "http://vite.local/api",
		"INVOICES_API_BASE_URL":    "http://explicit.local/api",
		"INVOICES_REQUIRE_SESSION": "nope",
	}))
	if cfg.API.BaseURL != "http://explicit.local/api" {
		t.Fatalf("prefixed variable should win, got %q", cfg.API.BaseURL)
	}
	var ge *errorslib.Error
	if !errors.As(err, &ge) || ge.TextCode != "CONFIG_ENV_INVALID" {
		t.Fatalf("expected CONFIG_ENV_INVALID, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"address", func(c *Config) { c.Server.Address = "" }},
		{"api", func(c *Config) { c.API.BaseURL = " " }},
		{"page size", func(c *Config) { c.Export.PageSize = "B9" }},
		{"margin", func(c *Config) { c.Export.Margin = "ten" }},
		{"busy policy", func(c *Config) { c.Export.BusyPolicy = "queue" }},
		{"scale", func(c *Config) { c.Export.Scale = -1 }},
		{"retention", func(c *Config) { c.Export.Retention = -time.Hour }},
		{"prune every", func(c *Config) { c.Export.PruneEvery = -time.Minute }},
		{"dir", func(c *Config) { c.Export.Dir = "" }},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mutate(&cfg)
		err := cfg.Validate()
		var ge *errorslib.Error
		if !errors.As(err, &ge) || ge.Category != errorslib.CategoryValidation {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestCaptureOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Export.Scale = 3
	cfg.Browser.BlockExternalAssets = false
	opts := cfg.CaptureOptions()
	if opts.Scale != 3 || !opts.AllowExternalAssets || !opts.ForceVisible {
		t.Fatalf("unexpected capture options %+v", opts)
	}
}

// Package config loads the invoice dashboard settings. Values come from
// built-in defaults, an optional YAML file, an optional .env file and
// INVOICES_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/invoice"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INVOICES_"

// Config is the dashboard configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	API           APIConfig           `yaml:"api"`
	Session       SessionConfig       `yaml:"session"`
	Browser       BrowserConfig       `yaml:"browser"`
	Export        ExportConfig        `yaml:"export"`
	History       HistoryConfig       `yaml:"history"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	AppName        string   `yaml:"app_name"`
	BasePath       string   `yaml:"base_path"`
	CORSOrigins    []string `yaml:"cors_origins"`
	RequireSession bool     `yaml:"require_session"`
}

// APIConfig points at the remote invoice API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig configures where the logged-in session is persisted. An
// empty file keeps the session in memory.
type SessionConfig struct {
	File string `yaml:"file"`
}

// BrowserConfig configures the headless Chromium render surface.
type BrowserConfig struct {
	Path                string        `yaml:"path"`
	Headless            bool          `yaml:"headless"`
	Args                []string      `yaml:"args"`
	Timeout             time.Duration `yaml:"timeout"`
	BlockExternalAssets bool          `yaml:"block_external_assets"`
}

// ExportConfig configures the PDF pipeline.
type ExportConfig struct {
	Dir         string        `yaml:"dir"`
	PageSize    string        `yaml:"page_size"`
	Margin      string        `yaml:"margin"`
	Scale       float64       `yaml:"scale"`
	Background  string        `yaml:"background"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	BusyPolicy  string        `yaml:"busy_policy"`
	Timeout     time.Duration `yaml:"timeout"`
	Retention   time.Duration `yaml:"retention"`
	// PruneCron is advertised to external schedulers. PruneEvery drives the
	// in-process loop; zero disables it.
	PruneCron  string        `yaml:"prune_cron"`
	PruneEvery time.Duration `yaml:"prune_every"`
}

// HistoryConfig configures the export history database.
type HistoryConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationsConfig configures the go-notifications bridge. With no
// recipients the bridge is not wired.
type NotificationsConfig struct {
	Recipients []string `yaml:"recipients"`
	Channels   []string `yaml:"channels"`
	Locale     string   `yaml:"locale"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Address:        ":8080",
			AppName:        "invoicedash",
			BasePath:       "/api",
			CORSOrigins:    []string{"http://localhost:5173"},
			RequireSession: true,
		},
		API: APIConfig{
			BaseURL: "http://127.0.0.1:3000/api",
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{File: "var/session.json"},
		Browser: BrowserConfig{
			Headless:            true,
			Timeout:             30 * time.Second,
			BlockExternalAssets: true,
		},
		Export: ExportConfig{
			Dir:         "var/exports",
			PageSize:    invoice.DefaultPageSize,
			Margin:      "10mm",
			Scale:       2,
			Background:  "#ffffff",
			SettleDelay: invoice.DefaultSettleDelay,
			BusyPolicy:  string(invoice.BusyReject),
			Timeout:     30 * time.Second,
			Retention:   30 * 24 * time.Hour,
			PruneCron:   "0 3 * * *",
			PruneEvery:  24 * time.Hour,
		},
		History: HistoryConfig{DSN: "file:var/history.db?cache=shared&_pragma=busy_timeout(5000)"},
		Notifications: NotificationsConfig{
			Channels: []string{"email"},
			Locale:   "ar",
		},
	}
}

// Load builds the configuration. path names an optional YAML file; envFile
// names an optional .env file and defaults to ".env" in the working
// directory. A missing default .env is not an error.
func Load(path string, envFile ...string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryInternal, "read config file").
				WithTextCode("CONFIG_READ")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryValidation, "parse config file").
				WithTextCode("CONFIG_PARSE")
		}
	}

	if len(envFile) > 0 && envFile[0] != "" {
		if err := godotenv.Load(envFile[0]); err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryInternal, "load env file").
				WithTextCode("CONFIG_ENV")
		}
	} else {
		_ = godotenv.Load()
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at wiring time.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Server.Address) == "" {
		problems = append(problems, "server.address is required")
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		problems = append(problems, "api.base_url is required")
	}
	if _, err := invoice.NewGeometry(c.Export.PageSize, c.Export.Margin); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := invoice.ParseBusyPolicy(c.Export.BusyPolicy); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Export.Scale < 0 {
		problems = append(problems, "export.scale must not be negative")
	}
	if c.Export.Retention < 0 {
		problems = append(problems, "export.retention must not be negative")
	}
	if c.Export.PruneEvery < 0 {
		problems = append(problems, "export.prune_every must not be negative")
	}
	if strings.TrimSpace(c.Export.Dir) == "" {
		problems = append(problems, "export.dir is required")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: "+strings.Join(problems, "; "), errors.CategoryValidation).
			WithTextCode("CONFIG_INVALID")
	}
	return nil
}

// Geometry returns the configured page layout.
func (c Config) Geometry() (invoice.PageGeometry, error) {
	return invoice.NewGeometry(c.Export.PageSize, c.Export.Margin)
}

// CaptureOptions returns the configured raster settings.
func (c Config) CaptureOptions() invoice.CaptureOptions {
	opts := invoice.DefaultCaptureOptions()
	if c.Export.Scale > 0 {
		opts.Scale = c.Export.Scale
	}
	if c.Export.Background != "" {
		opts.Background = c.Export.Background
	}
	opts.AllowExternalAssets = !c.Browser.BlockExternalAssets
	return opts
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("ADDR", &c.Server.Address)
	env.str("APP_NAME", &c.Server.AppName)
	env.str("BASE_PATH", &c.Server.BasePath)
	env.list("CORS_ORIGINS", &c.Server.CORSOrigins)
	env.boolean("REQUIRE_SESSION", &c.Server.RequireSession)

	// The frontend build variable is honored so one .env serves both.
	if v, ok := lookup("VITE_API_BASE_URL"); ok && strings.TrimSpace(v) != "" {
		c.API.BaseURL = strings.TrimSpace(v)
	}
	env.str("API_BASE_URL", &c.API.BaseURL)
	env.duration("API_TIMEOUT", &c.API.Timeout)

	env.str("SESSION_FILE", &c.Session.File)

	if v, ok := lookup("CHROME_BIN"); ok && strings.TrimSpace(v) != "" {
		c.Browser.Path = strings.TrimSpace(v)
	}
	env.str("CHROME_PATH", &c.Browser.Path)
	env.boolean("HEADLESS", &c.Browser.Headless)
	env.list("CHROME_ARGS", &c.Browser.Args)
	env.duration("BROWSER_TIMEOUT", &c.Browser.Timeout)
	env.boolean("BLOCK_EXTERNAL_ASSETS", &c.Browser.BlockExternalAssets)

	env.str("EXPORT_DIR", &c.Export.Dir)
	env.str("PAGE_SIZE", &c.Export.PageSize)
	env.str("PAGE_MARGIN", &c.Export.Margin)
	env.float("CAPTURE_SCALE", &c.Export.Scale)
	env.str("CAPTURE_BACKGROUND", &c.Export.Background)
	env.duration("SETTLE_DELAY", &c.Export.SettleDelay)
	env.str("BUSY_POLICY", &c.Export.BusyPolicy)
	env.duration("EXPORT_TIMEOUT", &c.Export.Timeout)
	env.duration("EXPORT_RETENTION", &c.Export.Retention)
	env.str("PRUNE_CRON", &c.Export.PruneCron)
	env.duration("PRUNE_EVERY", &c.Export.PruneEvery)

	env.str("HISTORY_DSN", &c.History.DSN)

	env.list("NOTIFY_RECIPIENTS", &c.Notifications.Recipients)
	env.list("NOTIFY_CHANNELS", &c.Notifications.Channels)
	env.str("NOTIFY_LOCALE", &c.Notifications.Locale)

	return env.err()
}

type envReader struct {
	lookup lookupFunc
	errs   []string
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok && v != "" {
		*dst = v
	}
}

func (r *envReader) list(key string, dst *[]string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok || v == "" {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s%s: invalid boolean %q", EnvPrefix, key, v))
		return
	}
	*dst = parsed
}

func (r *envReader) float(key string, dst *float64) {
	v, ok := r.get(key)
	if !ok || v == "" {
		return
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s%s: invalid number %q", EnvPrefix, key, v))
		return
	}
	*dst = parsed
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok || v == "" {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s%s: invalid duration %q", EnvPrefix, key, v))
		return
	}
	*dst = parsed
}

func (r *envReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return errors.New("invalid environment: "+strings.Join(r.errs, "; "), errors.CategoryValidation).
		WithTextCode("CONFIG_ENV_INVALID")
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/estimatelens/estimatelens/internal/extract"
	"github.com/estimatelens/estimatelens/internal/window"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort       = 8080
	DefaultWindow         = window.PastMonth
	DefaultStreamInterval = 5 * time.Second
	DefaultSnapshotTTL    = 7 * 24 * time.Hour
	DefaultSchedule       = "*/15 * * * *"
	DefaultTimezone       = "UTC"
	DefaultPageSize       = 100
	DefaultMaxIssues      = 5000
	DefaultAPIKeyHeader   = "X-API-Key"
)

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Refresh RefreshConfig `yaml:"refresh"`
	Sources []Source      `yaml:"sources"`
	Extract ExtractConfig `yaml:"extract"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// DefaultWindow is used when a request names no window, and for alerts
	// and /metrics.
	DefaultWindow string `yaml:"default_window"`

	// StreamInterval is how often each websocket client gets a fresh dashboard.
	StreamInterval time.Duration `yaml:"stream_interval"`

	// SnapshotTTL evicts source snapshots that have not been refreshed.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	// Auth configures how the server authenticates incoming REST API requests.
	Auth ServerAuthConfig `yaml:"auth"`
}

// Window returns the parsed default window. Load has already validated it.
func (s ServerConfig) Window() window.Window {
	w, err := window.Parse(s.DefaultWindow)
	if err != nil {
		return DefaultWindow
	}
	return w
}

// ServerAuthConfig configures REST API authentication.
type ServerAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the request header carrying the key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected API key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the server API key resolved from the environment.
func (a ServerAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// RefreshConfig controls when sources are re-fetched.
type RefreshConfig struct {
	// Schedule is a standard five-field cron expression.
	Schedule string `yaml:"schedule"`

	// OnStart fetches every source once before the schedule first fires.
	OnStart bool `yaml:"on_start"`

	// Timezone is an IANA zone name the schedule is evaluated in.
	Timezone string `yaml:"timezone"`
}

// Location returns the schedule's time zone.
func (r RefreshConfig) Location() (*time.Location, error) {
	if r.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(r.Timezone)
}

// Source describes one issue source.
type Source struct {
	// ID is a unique, human-readable identifier for this source.
	ID string `yaml:"id"`

	// Type is the source type: jira | file.
	Type string `yaml:"type"`

	// Endpoint is the Jira base URL (jira sources).
	Endpoint string `yaml:"endpoint"`

	// JQL filters the issues fetched (jira sources).
	JQL string `yaml:"jql"`

	// PageSize is the maxResults sent per search request.
	PageSize int `yaml:"page_size"`

	// MaxIssues caps the issues fetched per refresh.
	MaxIssues int `yaml:"max_issues"`

	// Path is the JSON export file (file sources).
	Path string `yaml:"path"`

	// Auth configures how requests to this source authenticate.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for a source.
type AuthConfig struct {
	// Mode is one of: basic | bearer | apikey | none.
	Mode string `yaml:"mode"`

	// Basic auth fields — used when Mode == "basic".
	// Username is the literal username (safe to store in config).
	Username string `yaml:"username"`
	// PasswordEnv is the name of the environment variable that holds the
	// password or Jira API token.
	PasswordEnv string `yaml:"password_env"`

	// Bearer token fields — used when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// API key fields — used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ExtractConfig tunes how estimates are located in raw issues.
type ExtractConfig struct {
	EstimateFields     []string `yaml:"estimate_fields"`
	CustomFieldPattern string   `yaml:"custom_field_pattern"`
	Heuristic          bool     `yaml:"heuristic"`
}

// Options converts the section into extractor options.
func (e ExtractConfig) Options() extract.Options {
	return extract.Options{
		EstimateFields:     e.EstimateFields,
		CustomFieldPattern: e.CustomFieldPattern,
		Heuristic:          e.Heuristic,
	}
}

// AlertsConfig holds all alerting rules and webhook targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines a threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier.
	Name string `yaml:"name"`

	// Condition is an expression like "high_deviation_groups > 0" or
	// "trend == none".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applySourceDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			DefaultWindow:  string(DefaultWindow),
			StreamInterval: DefaultStreamInterval,
			SnapshotTTL:    DefaultSnapshotTTL,
			Auth:           ServerAuthConfig{Mode: "none", Header: DefaultAPIKeyHeader},
		},
		Refresh: RefreshConfig{
			Schedule: DefaultSchedule,
			OnStart:  true,
			Timezone: DefaultTimezone,
		},
		Extract: ExtractConfig{Heuristic: true},
	}
}

// applySourceDefaults fills per-source fields that yaml leaves zero.
func applySourceDefaults(cfg *Config) {
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.PageSize <= 0 {
			src.PageSize = DefaultPageSize
		}
		if src.MaxIssues <= 0 {
			src.MaxIssues = DefaultMaxIssues
		}
		if src.Auth.Mode == "apikey" && src.Auth.Header == "" {
			src.Auth.Header = DefaultAPIKeyHeader
		}
	}
	if cfg.Server.Auth.Header == "" {
		cfg.Server.Auth.Header = DefaultAPIKeyHeader
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d out of range", cfg.Server.HTTPPort)
	}
	if _, err := window.Parse(cfg.Server.DefaultWindow); err != nil {
		return fmt.Errorf("server.default_window: %w", err)
	}
	if cfg.Server.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}
	if cfg.Server.SnapshotTTL <= 0 {
		return fmt.Errorf("server.snapshot_ttl must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth: unknown mode %q", cfg.Server.Auth.Mode)
	}

	if _, err := cron.ParseStandard(cfg.Refresh.Schedule); err != nil {
		return fmt.Errorf("refresh.schedule %q: %w", cfg.Refresh.Schedule, err)
	}
	if _, err := cfg.Refresh.Location(); err != nil {
		return fmt.Errorf("refresh.timezone: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true
		switch src.Type {
		case "jira":
			if src.Endpoint == "" {
				return fmt.Errorf("sources[%d] %q: endpoint is required", i, src.ID)
			}
		case "file":
			if src.Path == "" {
				return fmt.Errorf("sources[%d] %q: path is required", i, src.ID)
			}
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}
		switch src.Auth.Mode {
		case "basic", "bearer", "apikey", "none", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown auth mode %q", i, src.ID, src.Auth.Mode)
		}
	}

	if cfg.Extract.CustomFieldPattern != "" {
		if _, err := regexp.Compile(cfg.Extract.CustomFieldPattern); err != nil {
			return fmt.Errorf("extract.custom_field_pattern: %w", err)
		}
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("alerts.rules[%d]: name and condition are required", i)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}
	return nil
}

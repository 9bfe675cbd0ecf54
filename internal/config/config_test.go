package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/estimatelens/estimatelens/internal/window"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
server:
  http_port: 9090
  default_window: past_week
  stream_interval: 10s
  auth:
    mode: apikey
    key_env: EL_KEY
refresh:
  schedule: "0 * * * *"
  on_start: false
  timezone: Europe/Berlin
sources:
  - id: jira-core
    type: jira
    endpoint: "https://example.atlassian.net"
    jql: "project = CORE"
    page_size: 50
    auth:
      mode: basic
      username: bot@example.com
      password_env: JIRA_TOKEN
  - id: export
    type: file
    path: ./issues.json
extract:
  estimate_fields: [customfield_10016, story_points]
  heuristic: false
alerts:
  rules:
    - name: drift
      condition: "high_deviation_groups > 0"
      severity: warning
      cooldown: 1h
  webhooks:
    - type: slack
      url_env: SLACK_URL
`
	cfg := loadFromString(t, yaml)

	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("http_port: got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.Window() != window.PastWeek {
		t.Errorf("default_window: got %q", cfg.Server.Window())
	}
	if cfg.Server.StreamInterval != 10*time.Second {
		t.Errorf("stream_interval: got %v", cfg.Server.StreamInterval)
	}
	if cfg.Server.Auth.Header != DefaultAPIKeyHeader {
		t.Errorf("auth header default: got %q", cfg.Server.Auth.Header)
	}
	if cfg.Refresh.OnStart {
		t.Error("on_start: got true, want false")
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("sources: got %d, want 2", len(cfg.Sources))
	}
	src := cfg.Sources[0]
	if src.ID != "jira-core" || src.Type != "jira" || src.PageSize != 50 {
		t.Errorf("source[0]: got %+v", src)
	}
	if src.MaxIssues != DefaultMaxIssues {
		t.Errorf("max_issues default: got %d", src.MaxIssues)
	}
	if cfg.Extract.Heuristic {
		t.Error("heuristic: got true, want false")
	}
	opts := cfg.Extract.Options()
	if len(opts.EstimateFields) != 2 || opts.EstimateFields[0] != "customfield_10016" {
		t.Errorf("estimate_fields: got %v", opts.EstimateFields)
	}
	if len(cfg.Alerts.Rules) != 1 || cfg.Alerts.Rules[0].Cooldown != time.Hour {
		t.Errorf("alerts: got %+v", cfg.Alerts.Rules)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "sources: []\n")

	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("default http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Window() != DefaultWindow {
		t.Errorf("default window: got %q, want %q", cfg.Server.Window(), DefaultWindow)
	}
	if cfg.Server.SnapshotTTL != DefaultSnapshotTTL {
		t.Errorf("default snapshot_ttl: got %v", cfg.Server.SnapshotTTL)
	}
	if cfg.Refresh.Schedule != DefaultSchedule || !cfg.Refresh.OnStart {
		t.Errorf("default refresh: got %+v", cfg.Refresh)
	}
	if !cfg.Extract.Heuristic {
		t.Error("default heuristic: got false, want true")
	}
	loc, err := cfg.Refresh.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("Location(): got %v, %v", loc, err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown source type", `
sources:
  - id: mystery
    type: gitlab
    endpoint: "http://localhost"
`},
		{"jira without endpoint", `
sources:
  - id: j
    type: jira
`},
		{"file without path", `
sources:
  - id: f
    type: file
`},
		{"missing id", `
sources:
  - type: file
    path: x.json
`},
		{"duplicate id", `
sources:
  - {id: a, type: file, path: a.json}
  - {id: a, type: file, path: b.json}
`},
		{"unknown auth mode", `
sources:
  - id: j
    type: jira
    endpoint: "http://localhost"
    auth:
      mode: mtls
`},
		{"bad window", `
server:
  default_window: fortnight
`},
		{"bad cron", `
refresh:
  schedule: "every now and then"
`},
		{"bad timezone", `
refresh:
  timezone: Mars/Olympus
`},
		{"bad pattern", `
extract:
  custom_field_pattern: "customfield_("
`},
		{"rule without condition", `
alerts:
  rules:
    - name: empty
`},
		{"unknown webhook", `
alerts:
  webhooks:
    - type: pagerduty
      url_env: PD
`},
		{"bad port", `
server:
  http_port: 70000
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAuthConfig_Secrets(t *testing.T) {
	t.Setenv("TEST_API_KEY", "supersecret")
	t.Setenv("TEST_BEARER_TOKEN", "mytoken")
	t.Setenv("TEST_PASSWORD", "hunter2")
	a := AuthConfig{KeyEnv: "TEST_API_KEY", TokenEnv: "TEST_BEARER_TOKEN", PasswordEnv: "TEST_PASSWORD"}
	if got := a.Key(); got != "supersecret" {
		t.Errorf("Key(): got %q", got)
	}
	if got := a.Token(); got != "mytoken" {
		t.Errorf("Token(): got %q", got)
	}
	if got := a.Password(); got != "hunter2" {
		t.Errorf("Password(): got %q", got)
	}
	if got := (AuthConfig{}).Key(); got != "" {
		t.Errorf("Key() with no KeyEnv: got %q, want empty", got)
	}
}

func TestWebhookConfig_URL(t *testing.T) {
	t.Setenv("TEAMS_URL", "https://teams.example.com/webhook")
	w := WebhookConfig{Type: "teams", URLEnv: "TEAMS_URL"}
	if got := w.URL(); got != "https://teams.example.com/webhook" {
		t.Errorf("URL(): got %q", got)
	}
}

func TestWatch_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  default_window: past_week\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, func(c *Config) { got <- c }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("server:\n  default_window: past_day\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// A truncating write can surface an intermediate empty file first.
	deadline := time.After(5 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-got:
			reloaded = c.Server.Window() == window.PastDay
		case <-deadline:
			t.Fatal("no reload to past_day within 5s")
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() returned %v", err)
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}

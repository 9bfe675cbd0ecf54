package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/estimatelens/estimatelens/internal/compute"
)

const exportJSON = `{"issues": [
  {"id": "1", "fields": {"story_points": 1, "timespent": 7200,  "updated": "2026-01-01T10:00:00Z"}},
  {"id": "2", "fields": {"story_points": 1, "timespent": 10800, "updated": "2026-01-01T09:00:00Z"}},
  {"id": "3", "fields": {"story_points": 1, "timespent": 14400, "updated": "2025-12-20T09:00:00Z"}},
  {"id": "4", "fields": {"story_points": 3, "timespent": 32400, "updated": "2025-12-20T09:00:00Z"}},
  {"fields": {"story_points": 5}}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReport_JSON(t *testing.T) {
	input := writeFile(t, "export.json", exportJSON)

	tests := []struct {
		name        string
		args        []string
		wantWindow  string
		wantRecords int
	}{
		{"all by default", nil, "all", 4},
		{"named window", []string{"--window", "past_week"}, "past_week", 2},
		{"since overrides window", []string{"--window", "past_week", "--since", "30d"}, "720h0m0s", 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"report", "--input", input, "--now", "2026-01-02T00:00:00Z", "--format", "json"}, tc.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			var d compute.Dashboard
			if err := json.Unmarshal([]byte(out), &d); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if d.RecordCount != tc.wantRecords {
				t.Errorf("records: got %d, want %d", d.RecordCount, tc.wantRecords)
			}
			if d.SkippedCount != 1 {
				t.Errorf("skipped: got %d, want 1", d.SkippedCount)
			}
			if d.Window != tc.wantWindow {
				t.Errorf("window: got %q, want %q", d.Window, tc.wantWindow)
			}
		})
	}
}

func TestReport_Table(t *testing.T) {
	input := writeFile(t, "export.json", exportJSON)
	out, err := execute(t, "report", "-i", input, "--now", "2026-01-02T00:00:00Z")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "Expected hours per point: 3.00") {
		t.Errorf("table output:\n%s", out)
	}
}

func TestReport_UsesConfigExtractor(t *testing.T) {
	input := writeFile(t, "export.json", `[
	  {"id": "1", "fields": {"customfield_55555": 2, "timespent": 3600, "updated": "2026-01-01T10:00:00Z"}}
	]`)
	cfgPath := writeFile(t, "config.yaml", `
server:
  default_window: past_day
extract:
  estimate_fields: [customfield_55555]
  heuristic: false
`)
	out, err := execute(t, "report", "--config", cfgPath, "--input", input, "--now", "2026-01-02T00:00:00Z", "--format", "json")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var d compute.Dashboard
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if d.Window != "past_day" {
		t.Errorf("window: got %q, want past_day from config", d.Window)
	}
	if len(d.Summaries) != 1 || d.Summaries[0].EstimateValue != 2 {
		t.Errorf("summaries: %+v", d.Summaries)
	}
}

func TestReport_Errors(t *testing.T) {
	input := writeFile(t, "export.json", exportJSON)
	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"report"}},
		{"unreadable input", []string{"report", "--input", filepath.Join(t.TempDir(), "nope.json")}},
		{"bad window", []string{"report", "--input", input, "--window", "fortnight"}},
		{"bad since", []string{"report", "--input", input, "--since", "soon"}},
		{"bad now", []string{"report", "--input", input, "--now", "tomorrow"}},
		{"bad format", []string{"report", "--input", input, "--format", "csv"}},
		{"bad log level", []string{"report", "--input", input, "--log-level", "loud"}},
		{"missing env file", []string{"report", "--input", input, "--env-file", filepath.Join(t.TempDir(), ".env")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := execute(t, tc.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, "test.env", "ESTIMATELENS_TEST_TOKEN=from-dotenv\n")
	t.Setenv("ESTIMATELENS_TEST_TOKEN", "")
	os.Unsetenv("ESTIMATELENS_TEST_TOKEN")

	opts := &rootOptions{envFile: path}
	if err := opts.loadEnv(); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	if got := os.Getenv("ESTIMATELENS_TEST_TOKEN"); got != "from-dotenv" {
		t.Errorf("ESTIMATELENS_TEST_TOKEN = %q, want from-dotenv", got)
	}
}

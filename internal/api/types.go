package api

import (
	"time"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/stats"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// Status is "ok", "degraded" (some source failing) or "empty" (no issues).
	Status         string `json:"status"`
	DefaultWindow  string `json:"default_window"`
	SourceCount    int    `json:"source_count"`
	FailingSources int    `json:"failing_sources"`
	IssueCount     int    `json:"issue_count"`
	AlertCount     int    `json:"alert_count"`
	LastRefresh    string `json:"last_refresh,omitempty"` // RFC3339
	NextRefresh    string `json:"next_refresh,omitempty"` // RFC3339
}

// ChartResponse is the payload for GET /api/v1/charts/{name}.
type ChartResponse struct {
	Name        string             `json:"name"`
	Window      string             `json:"window"`
	GeneratedAt time.Time          `json:"generated_at"`
	RecordCount int                `json:"record_count"`
	Chart       compute.Chart      `json:"chart"`
	Trend       *compute.TrendInfo `json:"trend,omitempty"` // scatter only
}

// SummaryResponse is the payload for GET /api/v1/summary.
type SummaryResponse struct {
	Window                string            `json:"window"`
	GeneratedAt           time.Time         `json:"generated_at"`
	RecordCount           int               `json:"record_count"`
	ExpectedHoursPerPoint *float64          `json:"expected_hours_per_point"`
	Thresholds            Thresholds        `json:"thresholds"`
	Summaries             []compute.Summary `json:"summaries"`
}

// Thresholds echoes the classification bands so the UI can render a legend.
type Thresholds struct {
	Moderate float64 `json:"moderate"`
	High     float64 `json:"high"`
}

var thresholds = Thresholds{Moderate: stats.ThresholdModerate, High: stats.ThresholdHigh}

// SourceResponse is one entry in GET /api/v1/sources.
type SourceResponse struct {
	SourceID   string `json:"source_id"`
	Status     string `json:"status"` // "ok" | "error"
	IssueCount int    `json:"issue_count"`
	FetchedAt  string `json:"fetched_at,omitempty"` // RFC3339, last success
	UpdatedAt  string `json:"updated_at"`           // RFC3339, last attempt
	Error      string `json:"error,omitempty"`
}

// DiagnosticsResponse is the payload for GET /api/v1/diagnostics.
type DiagnosticsResponse struct {
	Window string           `json:"window"`
	Hints  []DiagnosticHint `json:"hints"`
}

// RefreshResponse is the payload for POST /api/v1/refresh.
type RefreshResponse struct {
	Status string      `json:"status"` // "accepted" | "done" | "busy"
	Result interface{} `json:"result,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

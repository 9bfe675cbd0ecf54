package api

import (
	"fmt"
	"sort"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/stats"
	"github.com/estimatelens/estimatelens/internal/store"
)

// Hint levels, most severe first.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
	LevelOK       = "ok"
)

var levelRank = map[string]int{LevelCritical: 0, LevelWarning: 1, LevelInfo: 2, LevelOK: 3}

// DiagnosticHint is one human-readable insight about the estimate data.
// The UI displays these as chips above the charts; clicking one shows Detail.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from a dashboard and the source states.
// Hints are ordered: critical first, then warnings, then info.
func computeDiagnostics(d *compute.Dashboard, sources []store.Entry) []DiagnosticHint {
	var hints []DiagnosticHint

	// ── Source failures ──────────────────────────────────────────────────────
	for _, e := range sources {
		if e.Err == "" {
			continue
		}
		level := LevelWarning
		detail := fmt.Sprintf(
			"The last fetch from %q failed with: %q. Figures still include the issues "+
				"fetched before the failure, so they may be out of date.", e.SourceID, e.Err)
		if e.FetchedAt.IsZero() {
			level = LevelCritical
			detail = fmt.Sprintf(
				"estimatelens has never fetched issues from %q. The last attempt failed with: %q. "+
					"Check the endpoint, the JQL and that the credential environment variable is set.",
				e.SourceID, e.Err)
		}
		hints = append(hints, DiagnosticHint{
			Key:    "source_failed_" + e.SourceID,
			Level:  level,
			Title:  "Source fetch failing",
			Detail: detail,
		})
	}

	// ── No data ──────────────────────────────────────────────────────────────
	if d.Empty {
		hints = append(hints, DiagnosticHint{
			Key:   "no_data",
			Level: LevelInfo,
			Title: "No issues in window",
			Detail: fmt.Sprintf(
				"No issue with an estimate or logged time was updated in the %s window. "+
					"Try a wider window or check that the sources have fetched.", d.Window),
		})
		return sortHints(hints)
	}

	// ── Skipped issues ───────────────────────────────────────────────────────
	if d.SkippedCount > 0 {
		v := float64(d.SkippedCount)
		hints = append(hints, DiagnosticHint{
			Key:   "skipped",
			Level: LevelWarning,
			Title: fmt.Sprintf("%d issues skipped", d.SkippedCount),
			Detail: fmt.Sprintf(
				"%d of %d raw issues had no id or no updated timestamp and were left out. "+
					"This usually means an export was trimmed or a custom JSON file is missing fields.",
				d.SkippedCount, d.InputCount),
			Value: &v,
		})
	}

	// ── Ungrouped records ────────────────────────────────────────────────────
	grouped := 0
	for _, s := range d.Summaries {
		grouped += s.Count
	}
	if ungrouped := d.RecordCount - grouped; ungrouped > 0 {
		v := float64(ungrouped)
		hints = append(hints, DiagnosticHint{
			Key:   "ungrouped",
			Level: LevelInfo,
			Title: fmt.Sprintf("%d without estimate or time", ungrouped),
			Detail: fmt.Sprintf(
				"%d issues carry either an estimate or logged time but not both. They appear "+
					"in the histogram's ungrouped series but not in the boxplot or trend. If estimates "+
					"live in a custom field, add it to extract.estimate_fields.", ungrouped),
			Value: &v,
		})
	}

	// ── Per-group deviation ──────────────────────────────────────────────────
	for _, s := range d.Summaries {
		if s.PercentDiff == nil {
			continue
		}
		pct := *s.PercentDiff * 100
		var level string
		switch s.Classification {
		case stats.High:
			level = LevelWarning
		case stats.Moderate:
			level = LevelInfo
		default:
			continue
		}
		expected := s.EstimateValue * *d.ExpectedHoursPerPoint
		direction := "over"
		if s.MeanHours < expected {
			direction = "under"
		}
		v := pct
		hints = append(hints, DiagnosticHint{
			Key:   "deviation_" + stats.FormatEstimate(s.EstimateValue),
			Level: level,
			Title: fmt.Sprintf("%s pts %.0f%% %s", stats.FormatEstimate(s.EstimateValue), pct, direction),
			Detail: fmt.Sprintf(
				"Issues estimated at %s points took %.1fh on average across %d issues, while the "+
					"team-wide rate of %.2fh per point predicts %.1fh. That is %.0f%% %s. "+
					"Estimates at this size are calibrated differently from the rest.",
				stats.FormatEstimate(s.EstimateValue), s.MeanHours, s.Count,
				*d.ExpectedHoursPerPoint, expected, pct, direction),
			Value: &v,
		})
	}

	// ── Trend ────────────────────────────────────────────────────────────────
	if !d.Trend.Available {
		hints = append(hints, DiagnosticHint{
			Key:   "no_trend",
			Level: LevelInfo,
			Title: "No trend line",
			Detail: fmt.Sprintf("A trend line needs issues at two or more estimate values (%s).",
				d.Trend.Reason),
		})
	} else if d.Trend.Slope <= 0 {
		v := d.Trend.Slope
		hints = append(hints, DiagnosticHint{
			Key:   "flat_trend",
			Level: LevelWarning,
			Title: "Estimates not predictive",
			Detail: fmt.Sprintf(
				"Across %d issues, logged hours do not grow with the estimate (slope %.2fh per point). "+
					"Larger estimates are not taking longer, so point values carry little information here.",
				d.Trend.N, d.Trend.Slope),
			Value: &v,
		})
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "on_target",
			Level: LevelOK,
			Title: "Estimates on target",
			Detail: fmt.Sprintf(
				"Every estimate group is within %.0f%% of the expected hours for its size.",
				stats.ThresholdModerate*100),
		})
	}
	return sortHints(hints)
}

func sortHints(hints []DiagnosticHint) []DiagnosticHint {
	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}

package compute

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/estimatelens/estimatelens/internal/extract"
	"github.com/estimatelens/estimatelens/internal/stats"
	"github.com/estimatelens/estimatelens/internal/window"
	"github.com/estimatelens/estimatelens/pkg/types"
)

// Reasons reported in TrendInfo when no regression line is drawn.
const (
	ReasonNoData        = "no grouped records"
	ReasonDegenerateFit = "fewer than two distinct estimate values"
)

// Dashboard is the complete statistics bundle for one window.
type Dashboard struct {
	Window       string         `json:"window"`
	GeneratedAt  time.Time      `json:"generated_at"`
	InputCount   int            `json:"input_count"`
	SkippedCount int            `json:"skipped_count"`
	Skipped      []extract.Skip `json:"skipped,omitempty"`
	RecordCount  int            `json:"record_count"`
	Empty        bool           `json:"empty"`

	Boxplot   Chart `json:"boxplot"`
	Scatter   Chart `json:"scatter"`
	Histogram Chart `json:"histogram"`

	Trend                 TrendInfo `json:"trend"`
	ExpectedHoursPerPoint *float64  `json:"expected_hours_per_point"`
	Summaries             []Summary `json:"summaries"`
}

// TrendInfo is the OLS trend across grouped records. When Available is false
// every numeric field is zero and Reason explains why.
type TrendInfo struct {
	Available bool    `json:"available"`
	Reason    string  `json:"reason,omitempty"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	N         int     `json:"n"`

	// Display segment endpoints.
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Summary is the per-estimate-group summary box.
type Summary struct {
	EstimateValue  float64     `json:"estimate_value"`
	MeanHours      float64     `json:"mean_hours"`
	StdDevHours    float64     `json:"std_dev_hours"`
	Count          int         `json:"count"`
	PercentDiff    *float64    `json:"percent_diff"` // fraction; nil when undefined
	Classification stats.Class `json:"classification"`
}

// Engine recomputes dashboards from raw issues. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	ex *extract.Extractor
}

// NewEngine returns an Engine using ex, or the default extractor when ex is nil.
func NewEngine(ex *extract.Extractor) *Engine {
	if ex == nil {
		ex = extract.Default()
	}
	return &Engine{ex: ex}
}

// Recompute extracts records from raws, keeps those inside the named window
// relative to now, and derives every statistic.
//
// now is passed explicitly so callers (and tests) control the clock. Returns an
// error wrapping window.ErrInvalidArgument for an unknown window.
func (e *Engine) Recompute(raws []types.RawIssue, w window.Window, now time.Time) (*Dashboard, error) {
	return e.RecomputeSelection(raws, window.Named(w), now)
}

// RecomputeSince is Recompute with an arbitrary look-back duration instead of
// a named window.
func (e *Engine) RecomputeSince(raws []types.RawIssue, d time.Duration, now time.Time) (*Dashboard, error) {
	if d < 0 {
		return nil, fmt.Errorf("compute: %w: negative duration %s", window.ErrInvalidArgument, d)
	}
	return e.RecomputeSelection(raws, window.Selection{Since: d, Custom: true}, now)
}

// RecomputeSelection is Recompute for a resolved request selection.
func (e *Engine) RecomputeSelection(raws []types.RawIssue, sel window.Selection, now time.Time) (*Dashboard, error) {
	if !sel.Custom && !sel.Named.Valid() {
		return nil, fmt.Errorf("compute: %w: unknown window %q", window.ErrInvalidArgument, string(sel.Named))
	}
	batch := e.ex.Batch(raws)
	records, err := sel.Apply(batch.Records, now)
	if err != nil {
		return nil, err
	}
	return assemble(sel.Label(), len(raws), batch.Skipped, records, now), nil
}

// FromRecords derives a dashboard from already-extracted, already-filtered
// records. label is reported as Dashboard.Window.
func FromRecords(label string, records []types.Record, now time.Time) *Dashboard {
	return assemble(label, len(records), nil, records, now)
}

func assemble(label string, inputCount int, skipped []extract.Skip, records []types.Record, now time.Time) *Dashboard {
	kept := make([]types.Record, 0, len(records))
	for _, r := range records {
		if r.Signal() {
			kept = append(kept, r)
		}
	}

	d := &Dashboard{
		Window:       label,
		GeneratedAt:  now,
		InputCount:   inputCount,
		SkippedCount: len(skipped),
		Skipped:      skipped,
		RecordCount:  len(kept),
		Empty:        len(kept) == 0,
		Summaries:    []Summary{},
	}

	groups := stats.GroupByEstimate(kept)
	boxes := make([]stats.Box, len(groups))
	for i, g := range groups {
		b, err := stats.Boxplot(g.Hours)
		if err != nil {
			// GroupByEstimate never yields empty groups.
			slog.Error("compute: boxplot on empty group", "estimate", g.Estimate)
			continue
		}
		boxes[i] = b
	}

	d.Trend = trendInfo(kept)
	d.Boxplot = boxplotChart(groups, boxes)
	d.Scatter = scatterChart(kept, d.Trend)
	d.Histogram = histogramChart(kept)

	perPoint, ok := stats.ExpectedHoursPerPoint(groups)
	if ok {
		d.ExpectedHoursPerPoint = &perPoint
	}
	for i, g := range groups {
		b := boxes[i]
		s := Summary{
			EstimateValue: g.Estimate,
			MeanHours:     b.Mean,
			StdDevHours:   b.StdDev,
			Count:         b.Count,
		}
		pct, class := stats.Deviation(b.Mean, g.Estimate, perPoint)
		s.Classification = class
		if class != stats.Undefined {
			s.PercentDiff = &pct
		}
		d.Summaries = append(d.Summaries, s)
	}
	return d
}

func trendInfo(records []types.Record) TrendInfo {
	points := stats.Points(records)
	if len(points) == 0 {
		return TrendInfo{Reason: ReasonNoData}
	}
	t, err := stats.Regress(points)
	if err != nil {
		return TrendInfo{Reason: ReasonDegenerateFit, N: len(points)}
	}
	seg := stats.DisplaySegment(t, points)
	return TrendInfo{
		Available: true,
		Slope:     t.Slope,
		Intercept: t.Intercept,
		N:         t.N,
		X0:        seg.X0,
		Y0:        seg.Y0,
		X1:        seg.X1,
		Y1:        seg.Y1,
	}
}

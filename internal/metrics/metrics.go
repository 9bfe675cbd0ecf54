package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/stats"
)

const namespace = "estimatelens"

// Defaulter computes the default-window dashboard. *compute.Service satisfies it.
type Defaulter interface {
	Default() (*compute.Dashboard, error)
}

// family accumulates samples for one gauge.
type family struct {
	name, help string
	metrics    []*dto.Metric
}

func (f *family) add(v float64, labels ...string) {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: &v}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{Name: str(labels[i]), Value: str(labels[i+1])})
	}
	f.metrics = append(f.metrics, m)
}

func (f *family) build() *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   str(f.name),
		Help:   str(f.help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: f.metrics,
	}
}

func str(s string) *string { return &s }

// Families converts d into gauge families sorted by name. Families without
// samples are omitted.
func Families(d *compute.Dashboard) []*dto.MetricFamily {
	win := d.Window
	newFamily := func(name, help string) *family {
		return &family{name: namespace + "_" + name, help: help}
	}

	records := newFamily("records", "Records with an estimate or logged effort inside the window.")
	records.add(float64(d.RecordCount), "window", win)
	skipped := newFamily("skipped_records", "Raw issues skipped as malformed.")
	skipped.add(float64(d.SkippedCount), "window", win)

	groupRecords := newFamily("group_records", "Records per estimate group.")
	groupMean := newFamily("group_mean_hours", "Mean logged hours per estimate group.")
	groupStd := newFamily("group_stddev_hours", "Population standard deviation of logged hours per estimate group.")
	groupDiff := newFamily("group_percent_diff", "Fractional deviation of mean hours from expected hours.")
	for _, s := range d.Summaries {
		labels := []string{"window", win, "estimate", stats.FormatEstimate(s.EstimateValue), "classification", string(s.Classification)}
		groupRecords.add(float64(s.Count), labels...)
		groupMean.add(s.MeanHours, labels...)
		groupStd.add(s.StdDevHours, labels...)
		if s.PercentDiff != nil {
			groupDiff.add(*s.PercentDiff, labels...)
		}
	}

	slope := newFamily("trend_slope", "OLS slope of logged hours over estimate.")
	intercept := newFamily("trend_intercept", "OLS intercept of logged hours over estimate.")
	if d.Trend.Available {
		slope.add(d.Trend.Slope, "window", win)
		intercept.add(d.Trend.Intercept, "window", win)
	}

	perPoint := newFamily("expected_hours_per_point", "Total logged hours divided by total estimated points.")
	if d.ExpectedHoursPerPoint != nil {
		perPoint.add(*d.ExpectedHoursPerPoint, "window", win)
	}

	hist := newFamily("histogram_records", "Records per effort bucket and estimate series.")
	for _, s := range d.Histogram.Series {
		for i, label := range d.Histogram.Labels {
			hist.add(s.Values[i], "window", win, "bucket", label, "series", s.Name)
		}
	}

	all := []*family{records, skipped, groupRecords, groupMean, groupStd, groupDiff, slope, intercept, perPoint, hist}
	out := make([]*dto.MetricFamily, 0, len(all))
	for _, f := range all {
		if len(f.metrics) > 0 {
			out = append(out, f.build())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// Write encodes d in the Prometheus text format.
func Write(w io.Writer, d *compute.Dashboard) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range Families(d) {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler serves GET /metrics from src.
func Handler(src Defaulter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		d, err := src.Default()
		if err != nil {
			slog.Error("metrics: build dashboard", "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := Write(w, d); err != nil {
			slog.Error("metrics: write", "err", err)
		}
	})
}

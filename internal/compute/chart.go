package compute

import (
	"github.com/estimatelens/estimatelens/internal/stats"
	"github.com/estimatelens/estimatelens/pkg/types"
)

// Series names used in the boxplot chart.
const (
	SeriesMin          = "min"
	SeriesLowerWhisker = "lower_whisker"
	SeriesQ1           = "q1"
	SeriesMedian       = "median"
	SeriesQ3           = "q3"
	SeriesUpperWhisker = "upper_whisker"
	SeriesMax          = "max"
	SeriesCount        = "count"
	SeriesOutliers     = "outliers"
)

// Series names used in the scatter chart.
const (
	SeriesEstimate    = "estimate"
	SeriesActualHours = "actual_hours"
	SeriesTrend       = "trend"
)

// Chart is the rendering-agnostic chart payload.
type Chart struct {
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Series is one named row of values aligned with Chart.Labels.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Meta   any       `json:"meta,omitempty"`
}

// TrendMeta annotates the scatter chart's trend series.
type TrendMeta struct {
	X         []float64 `json:"x"`
	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
}

// Find looks up a series by name.
func (c Chart) Find(name string) (Series, bool) {
	for _, s := range c.Series {
		if s.Name == name {
			return s, true
		}
	}
	return Series{}, false
}

func emptyChart() Chart {
	return Chart{Labels: []string{}, Series: []Series{}}
}

// boxplotChart lays out one column per estimate group.
func boxplotChart(groups []stats.Group, boxes []stats.Box) Chart {
	c := emptyChart()
	if len(groups) == 0 {
		return c
	}

	names := []string{
		SeriesMin, SeriesLowerWhisker, SeriesQ1, SeriesMedian,
		SeriesQ3, SeriesUpperWhisker, SeriesMax, SeriesCount,
	}
	rows := make(map[string][]float64, len(names))
	outliers := make([][]float64, 0, len(groups))
	var outlierCounts []float64

	for i, g := range groups {
		b := boxes[i]
		c.Labels = append(c.Labels, g.Label())
		rows[SeriesMin] = append(rows[SeriesMin], b.Min)
		rows[SeriesLowerWhisker] = append(rows[SeriesLowerWhisker], b.LowerWhisker)
		rows[SeriesQ1] = append(rows[SeriesQ1], b.Q1)
		rows[SeriesMedian] = append(rows[SeriesMedian], b.Median)
		rows[SeriesQ3] = append(rows[SeriesQ3], b.Q3)
		rows[SeriesUpperWhisker] = append(rows[SeriesUpperWhisker], b.UpperWhisker)
		rows[SeriesMax] = append(rows[SeriesMax], b.Max)
		rows[SeriesCount] = append(rows[SeriesCount], float64(b.Count))
		outliers = append(outliers, b.Outliers)
		outlierCounts = append(outlierCounts, float64(len(b.Outliers)))
	}

	for _, n := range names {
		c.Series = append(c.Series, Series{Name: n, Values: rows[n]})
	}
	c.Series = append(c.Series, Series{Name: SeriesOutliers, Values: outlierCounts, Meta: outliers})
	return c
}

// scatterChart plots every grouped record, labelled by record ID, and adds
// the trend line when one is available.
func scatterChart(records []types.Record, trend TrendInfo) Chart {
	c := emptyChart()
	var xs, ys []float64
	for _, r := range records {
		if !r.Grouped() {
			continue
		}
		c.Labels = append(c.Labels, r.ID)
		xs = append(xs, r.Estimate)
		ys = append(ys, r.ActualHours)
	}
	if len(xs) == 0 {
		return c
	}
	c.Series = append(c.Series,
		Series{Name: SeriesEstimate, Values: xs},
		Series{Name: SeriesActualHours, Values: ys},
	)
	if trend.Available {
		c.Series = append(c.Series, Series{
			Name:   SeriesTrend,
			Values: []float64{trend.Y0, trend.Y1},
			Meta: TrendMeta{
				X:         []float64{trend.X0, trend.X1},
				Slope:     trend.Slope,
				Intercept: trend.Intercept,
			},
		})
	}
	return c
}

// histogramChart emits one series per non-empty estimate group plus the
// ungrouped series, each aligned with the fixed bucket labels.
func histogramChart(records []types.Record) Chart {
	buckets := stats.Histogram(records)
	keys := stats.SeriesKeys(records, buckets)
	c := emptyChart()
	if len(keys) == 0 {
		return c
	}
	for _, b := range buckets {
		c.Labels = append(c.Labels, b.Label)
	}
	for _, k := range keys {
		vals := make([]float64, len(buckets))
		for i, b := range buckets {
			vals[i] = float64(b.Counts[k])
		}
		c.Series = append(c.Series, Series{Name: k, Values: vals})
	}
	return c
}

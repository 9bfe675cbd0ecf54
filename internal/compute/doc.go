// Package compute is the aggregation facade: it runs extraction, window
// filtering and every statistic in one pass and shapes the results into
// chart-ready series plus per-group summary boxes.
//
// engine.go provides Engine.Recompute(raws, window, now). The Engine holds
// only its extractor configuration; each call recomputes everything from the
// input, so two calls with identical arguments return deep-equal Dashboards.
//
// chart.go provides the generic chart shape consumed by the dashboard UI:
//
//	{ labels: [string], series: [{ name, values: [number], meta? }] }
//
// A degenerate regression never produces NaN: Dashboard.Trend.Available is
// false and Trend.Reason says why. An empty filtered set yields Empty=true
// and empty (non-nil) charts.
package compute

// Package metrics exposes the default-window dashboard in the Prometheus text
// exposition format at GET /metrics, so estimate drift can be graphed and
// alerted on from an existing Prometheus stack.
//
// Every sample is a gauge recomputed on scrape and labelled with the window.
// Per-group gauges carry estimate and classification labels; histogram gauges carry bucket and
// series labels matching the dashboard histogram chart.
package metrics

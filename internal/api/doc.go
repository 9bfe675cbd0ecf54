// Package api implements the HTTP REST API for estimatelens.
//
// New(Deps) returns an http.Handler that serves:
//
//	GET  /api/v1/health            — overall status, source and alert counts
//	GET  /api/v1/dashboard         — full compute.Dashboard for the window
//	GET  /api/v1/charts/{name}     — one chart: boxplot | scatter | histogram
//	GET  /api/v1/summary           — per-estimate summaries + hours per point
//	GET  /api/v1/diagnostics       — plain-English hints about the data
//	GET  /api/v1/sources           — per-source fetch status
//	GET  /api/v1/alerts            — firing and recently resolved alerts
//	POST /api/v1/refresh           — trigger a refresh (202; ?wait=true → 200)
//
// Window selection: ?window=past_week (default: configured default window) or
// ?since=36h / ?since=14d. An unknown window or bad duration returns 400.
//
// All endpoints respond with Content-Type: application/json and return 405 for
// the wrong method. JSON types are defined in types.go. No external HTTP
// framework is used.
package api

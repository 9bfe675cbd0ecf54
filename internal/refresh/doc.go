// Package refresh re-fetches every configured source on a cron schedule
// (robfig/cron/v3) and writes the results into the store.
//
// RunOnce fetches sources sequentially. A source error is recorded on its
// store entry and logged; it never aborts the remaining sources. Overlapping
// runs (a manual POST /api/v1/refresh while the schedule fires) are skipped,
// not queued. The OnRefresh hook runs after every completed pass; the server
// uses it to evaluate alerts and push dashboards to websocket clients.
package refresh

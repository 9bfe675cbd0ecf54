// Package config loads and watches the estimatelens configuration file
// (config.yaml).
//
// Top-level types:
//   - Config{Server, Refresh, Sources, Extract, Alerts} — full config tree
//   - ServerConfig — http_port, default_window, stream_interval, snapshot_ttl, auth
//   - RefreshConfig — cron schedule, on_start, timezone
//   - Source — id, type (jira|file), endpoint, jql, page_size, max_issues,
//     path, auth, tls
//   - AuthConfig — mode (basic|bearer|apikey|none), username, header and the
//     *_env names; Password(), Token() and Key() resolve from the environment
//   - ExtractConfig — estimate field list, custom field pattern, heuristic toggle
//   - AlertsConfig — alert rules and webhook targets
//
// Load(path) reads the YAML file, applies defaults (port 8080, past_month
// window, 5s stream, 168h TTL, refresh every 15 minutes, page size 100), then
// validates required fields, enums, the cron schedule and the timezone.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after each
// event so atomic-save editors (vim, VS Code) keep working.
package config

// Package source fetches raw issues from the systems that hold them.
//
// Source is the capability every fetcher implements: ID() and
// Fetch(ctx) ([]types.RawIssue, error). New(config.Source) picks the
// implementation by type and builds its HTTP client once.
//
//   - jira: pages through {endpoint}/rest/api/2/search with startAt and
//     maxResults until total is reached, a short page comes back, or
//     max_issues is hit. fields=*all so custom estimate fields are present.
//   - file: reads a JSON export holding either an array of issues or an
//     object with an "issues" array (the Jira search response shape).
//
// Outbound auth (basic | bearer | apikey) is injected by authRoundTripper so
// fetch code never touches credentials. Secrets come from environment
// variables named in config; nothing is cached on the source.
package source

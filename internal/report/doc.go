// Package report renders a computed dashboard for the terminal.
//
// The table format prints the run header, the per-estimate summary with the
// classification column colored by severity, and the histogram counts. The
// json format writes the dashboard exactly as the REST API serves it.
//
// Colors come from a lipgloss renderer bound to the output writer, so
// redirected output and NO_COLOR produce plain text.
package report

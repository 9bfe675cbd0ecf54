// Package window restricts records to a trailing time window.
//
// Filter(records, w, now) keeps records whose UpdatedAt is at or after
// now minus the window's duration. Window All is the identity: it performs no
// timestamp comparison, so records with an unparseable (zero) UpdatedAt
// survive it. Every other window excludes them.
//
// now is always passed in; nothing here reads the wall clock.
package window

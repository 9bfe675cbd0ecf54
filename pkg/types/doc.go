// Package types defines the record shapes shared by the extractor, the
// statistics engine and the outer surfaces (API, websocket hub, report).
// RawIssue is the loosely-typed issue as decoded from the tracker; Record is
// the normalised value object every statistic is computed from.
package types

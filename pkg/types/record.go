package types

import "time"

// RawIssue is one issue as decoded from JSON. Jira-shaped issues carry
// identity at the top level and everything else under "fields"; flat maps
// are accepted too.
type RawIssue = map[string]any

// Record is the normalised (estimate, effort, updated) tuple for one issue.
// Records are values; nothing downstream modifies them.
type Record struct {
	// ID is the tracker's stable identifier (falls back to Key).
	ID string `json:"id"`

	// Key is the human-readable issue key, e.g. "CORE-142". May be empty.
	Key string `json:"key,omitempty"`

	// Estimate is the story-point value. Zero means absent.
	Estimate float64 `json:"estimate"`

	// ActualHours is logged effort in hours. Zero means none logged.
	ActualHours float64 `json:"actual_hours"`

	// UpdatedAt is the last-updated timestamp, used only for windowing.
	// Zero when the source timestamp could not be parsed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Grouped reports whether the record carries both an estimate and effort,
// which is required for boxplot and scatter statistics.
func (r Record) Grouped() bool {
	return r.Estimate > 0 && r.ActualHours > 0
}

// HasEffort reports whether the record counts towards the effort histogram.
func (r Record) HasEffort() bool {
	return r.ActualHours > 0
}

// Signal reports whether the record carries any usable value at all.
func (r Record) Signal() bool {
	return r.Estimate > 0 || r.ActualHours > 0
}

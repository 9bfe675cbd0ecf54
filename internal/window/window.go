package window

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// ErrInvalidArgument marks contract violations: unknown windows and
// negative durations.
var ErrInvalidArgument = errors.New("invalid argument")

// Window is a named trailing time range.
type Window string

// Supported windows.
const (
	All         Window = "all"
	PastHour    Window = "past_hour"
	PastDay     Window = "past_day"
	PastWeek    Window = "past_week"
	PastMonth   Window = "past_month"
	Past3Months Window = "past_3_months"
)

const day = 24 * time.Hour

// durations maps every bounded window to its length. All is absent.
var durations = map[Window]time.Duration{
	PastHour:    time.Hour,
	PastDay:     day,
	PastWeek:    7 * day,
	PastMonth:   30 * day,
	Past3Months: 90 * day,
}

// Windows lists every window from widest to narrowest.
func Windows() []Window {
	return []Window{All, Past3Months, PastMonth, PastWeek, PastDay, PastHour}
}

// Parse accepts the canonical names case-insensitively, with '-' or ' ' in
// place of '_'. The empty string parses as All.
func Parse(s string) (Window, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "" {
		return All, nil
	}
	w := Window(norm)
	if w.Valid() {
		return w, nil
	}
	return "", fmt.Errorf("window: unknown window %q: %w", s, ErrInvalidArgument)
}

// Valid reports whether w is one of the supported windows.
func (w Window) Valid() bool {
	if w == All {
		return true
	}
	_, ok := durations[w]
	return ok
}

// Duration returns the window length. ok is false for All and unknown windows.
func (w Window) Duration() (d time.Duration, ok bool) {
	d, ok = durations[w]
	return d, ok
}

func (w Window) String() string { return string(w) }

// Filter returns the records inside w as of now. The input slice is never
// modified; for All it is returned as-is.
func Filter(records []types.Record, w Window, now time.Time) ([]types.Record, error) {
	if w == All {
		return records, nil
	}
	d, ok := w.Duration()
	if !ok {
		return nil, fmt.Errorf("window: unknown window %q: %w", string(w), ErrInvalidArgument)
	}
	return FilterDuration(records, d, now)
}

// FilterDuration keeps records updated within d of now. Records with a zero
// UpdatedAt are excluded.
func FilterDuration(records []types.Record, d time.Duration, now time.Time) ([]types.Record, error) {
	if d < 0 {
		return nil, fmt.Errorf("window: negative duration %s: %w", d, ErrInvalidArgument)
	}
	cutoff := now.Add(-d)
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if r.UpdatedAt.IsZero() {
			continue
		}
		if !r.UpdatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

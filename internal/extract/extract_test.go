package extract

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/estimatelens/estimatelens/pkg/types"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// jiraIssue builds a Jira-shaped issue with the given fields merged in.
func jiraIssue(id string, fields map[string]any) types.RawIssue {
	f := map[string]any{"updated": "2024-03-10T12:00:00.000+0000"}
	for k, v := range fields {
		f[k] = v
	}
	return types.RawIssue{"id": id, "key": "CORE-" + id, "fields": f}
}

func TestRecord_EstimateFieldOrder(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   float64
	}{
		{"story_points wins over customfield", map[string]any{"story_points": 3.0, "customfield_10016": 8.0}, 3},
		{"zero first field falls through", map[string]any{"story_points": 0.0, "customfield_10016": 5.0}, 5},
		{"numeric string accepted", map[string]any{"points": "2.5"}, 2.5},
		{"json.Number accepted", map[string]any{"estimate": json.Number("13")}, 13},
		{"negative ignored", map[string]any{"estimate": -4.0}, 0},
		{"nothing present", map[string]any{"summary": "x"}, 0},
	}

	ex := Default()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := ex.Record(jiraIssue("1", tc.fields))
			if err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			if rec.Estimate != tc.want {
				t.Errorf("Estimate = %v, want %v", rec.Estimate, tc.want)
			}
		})
	}
}

func TestRecord_HeuristicCustomFieldScan(t *testing.T) {
	fields := map[string]any{
		"customfield_20500": 5.0,
		"customfield_10100": 250.0, // out of range
		"customfield_10300": "n/a",
		"customfield_10200": 2.0,
		"summary":           7.0, // does not match the pattern
	}

	rec, err := Default().Record(jiraIssue("1", fields))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// customfield_10200 is the lowest-numbered in-range candidate.
	if rec.Estimate != 2 {
		t.Errorf("Estimate = %v, want 2", rec.Estimate)
	}

	// Same input, many runs: must not depend on map iteration order.
	for i := 0; i < 50; i++ {
		again, _ := Default().Record(jiraIssue("1", fields))
		if again.Estimate != rec.Estimate {
			t.Fatalf("run %d: Estimate = %v, want %v", i, again.Estimate, rec.Estimate)
		}
	}
}

func TestRecord_HeuristicDisabled(t *testing.T) {
	ex, err := New(Options{Heuristic: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec, err := ex.Record(jiraIssue("1", map[string]any{"customfield_20500": 5.0}))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.Estimate != 0 {
		t.Errorf("Estimate = %v, want 0 with heuristic off", rec.Estimate)
	}
}

func TestRecord_ConfiguredFields(t *testing.T) {
	ex, err := New(Options{EstimateFields: []string{"customfield_99999"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec, _ := ex.Record(jiraIssue("1", map[string]any{
		"story_points":      3.0,
		"customfield_99999": 8.0,
	}))
	if rec.Estimate != 8 {
		t.Errorf("Estimate = %v, want 8", rec.Estimate)
	}
}

func TestRecord_EffortSources(t *testing.T) {
	worklogs := map[string]any{"worklogs": []any{
		map[string]any{"timeSpentSeconds": 3600.0},
		map[string]any{"timeSpentSeconds": 1800.0},
	}}

	tests := []struct {
		name   string
		fields map[string]any
		want   float64
	}{
		{"direct timespent", map[string]any{"timespent": 7200.0}, 2},
		{"direct wins over worklogs, no summing", map[string]any{"timespent": 7200.0, "worklog": worklogs}, 2},
		{"timetracking summary", map[string]any{"timetracking": map[string]any{"timeSpentSeconds": 5400.0}}, 1.5},
		{"zero direct falls through to timetracking", map[string]any{
			"timespent":    0.0,
			"timetracking": map[string]any{"timeSpentSeconds": 3600.0},
		}, 1},
		{"worklog sum", map[string]any{"worklog": worklogs}, 1.5},
		{"none", map[string]any{}, 0},
	}

	ex := Default()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := ex.Record(jiraIssue("1", tc.fields))
			if err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			if !almostEqual(rec.ActualHours, tc.want, 1e-9) {
				t.Errorf("ActualHours = %v, want %v", rec.ActualHours, tc.want)
			}
		})
	}
}

func TestRecord_FlatRecord(t *testing.T) {
	raw := types.RawIssue{
		"id":           42.0,
		"updated":      "2024-03-10T12:00:00Z",
		"story_points": 2.0,
		"worklogs":     []any{map[string]any{"timeSpentSeconds": 36000.0}},
	}
	rec, err := Default().Record(raw)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.ID != "42" {
		t.Errorf("ID = %q, want 42", rec.ID)
	}
	if rec.ActualHours != 10 {
		t.Errorf("ActualHours = %v, want 10", rec.ActualHours)
	}
	want := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if !rec.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, want)
	}
}

func TestRecord_Timestamps(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-10T12:00:00.000+0000", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10T14:00:00+0200", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10T12:00:00Z", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"last tuesday", time.Time{}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			rec, err := Default().Record(types.RawIssue{"id": "1", "updated": tc.in})
			if err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			if !rec.UpdatedAt.Equal(tc.want) {
				t.Errorf("UpdatedAt = %v, want %v", rec.UpdatedAt, tc.want)
			}
		})
	}
}

func TestRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  types.RawIssue
	}{
		{"nil", nil},
		{"missing id and key", types.RawIssue{"updated": "2024-03-10"}},
		{"missing updated", types.RawIssue{"id": "1", "fields": map[string]any{"timespent": 3600.0}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Default().Record(tc.raw)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestRecord_KeyUsedWhenIDMissing(t *testing.T) {
	rec, err := Default().Record(types.RawIssue{"key": "CORE-9", "updated": "2024-03-10"})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.ID != "CORE-9" || rec.Key != "CORE-9" {
		t.Errorf("ID/Key = %q/%q, want CORE-9/CORE-9", rec.ID, rec.Key)
	}
}

func TestBatch_SkipsMalformedAndContinues(t *testing.T) {
	raws := []types.RawIssue{
		jiraIssue("1", map[string]any{"story_points": 1.0, "timespent": 3600.0}),
		{"key": ""},
		jiraIssue("3", map[string]any{"story_points": 2.0}),
	}

	b := Default().Batch(raws)
	if len(b.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(b.Records))
	}
	if len(b.Skipped) != 1 {
		t.Fatalf("Skipped = %d, want 1", len(b.Skipped))
	}
	if b.Skipped[0].Index != 1 {
		t.Errorf("Skipped[0].Index = %d, want 1", b.Skipped[0].Index)
	}
	if b.Records[1].ID != "3" {
		t.Errorf("Records[1].ID = %q, want 3", b.Records[1].ID)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	if _, err := New(Options{CustomFieldPattern: "("}); err == nil {
		t.Fatal("New() with invalid pattern: expected error")
	}
}

package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// ErrMalformed is returned for issues missing an identifier or an "updated"
// timestamp. Batch skips such issues and keeps going.
var ErrMalformed = errors.New("malformed issue")

// maxHeuristicEstimate bounds the values the custom-field scan accepts.
const maxHeuristicEstimate = 100.0

const secondsPerHour = 3600.0

// DefaultEstimateFields is the ordered list of field names that commonly hold
// story points across Jira Cloud, Jira Server and flat exports.
var DefaultEstimateFields = []string{
	"story_points",
	"storyPoints",
	"Story Points",
	"customfield_10016",
	"customfield_10026",
	"customfield_10028",
	"customfield_10002",
	"customfield_10004",
	"estimate",
	"points",
}

// DefaultCustomFieldPattern matches Jira custom field IDs.
const DefaultCustomFieldPattern = `^customfield_\d+$`

// directEffortFields hold a total number of seconds.
var directEffortFields = []string{"timespent", "aggregatetimespent", "timeSpentSeconds"}

// timeLayouts are tried in order when parsing "updated".
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

// Options configures an Extractor.
type Options struct {
	// EstimateFields is tried in order. Empty means DefaultEstimateFields.
	EstimateFields []string

	// CustomFieldPattern selects the fields scanned by the heuristic.
	// Empty means DefaultCustomFieldPattern.
	CustomFieldPattern string

	// Heuristic enables the custom-field scan fallback.
	Heuristic bool
}

// Extractor turns raw issues into records. It holds only immutable
// configuration and is safe for concurrent use.
type Extractor struct {
	fields  []string
	pattern *regexp.Regexp
	scan    bool
}

// New returns an Extractor for opts. An invalid CustomFieldPattern is an error.
func New(opts Options) (*Extractor, error) {
	fields := opts.EstimateFields
	if len(fields) == 0 {
		fields = DefaultEstimateFields
	}
	pat := opts.CustomFieldPattern
	if pat == "" {
		pat = DefaultCustomFieldPattern
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("extract: custom field pattern: %w", err)
	}
	return &Extractor{
		fields:  append([]string(nil), fields...),
		pattern: re,
		scan:    opts.Heuristic,
	}, nil
}

// Default returns an Extractor with the default field list and the heuristic on.
func Default() *Extractor {
	ex, _ := New(Options{Heuristic: true})
	return ex
}

// Skip describes one issue Batch could not use.
type Skip struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Batch is the result of extracting a slice of issues.
type Batch struct {
	Records []types.Record
	Skipped []Skip
}

// Batch extracts every issue in raws. Malformed issues are skipped with a
// warning and reported in Batch.Skipped; they never abort the batch.
func (e *Extractor) Batch(raws []types.RawIssue) Batch {
	out := Batch{Records: make([]types.Record, 0, len(raws))}
	for i, raw := range raws {
		rec, err := e.Record(raw)
		if err != nil {
			slog.Warn("extract: skipping issue", "index", i, "err", err)
			out.Skipped = append(out.Skipped, Skip{Index: i, Reason: err.Error()})
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// Record extracts a single issue.
func (e *Extractor) Record(raw types.RawIssue) (types.Record, error) {
	if raw == nil {
		return types.Record{}, fmt.Errorf("%w: nil issue", ErrMalformed)
	}
	fields := fieldsOf(raw)

	id := stringOf(raw["id"])
	key := stringOf(raw["key"])
	if id == "" {
		id = key
	}
	if id == "" {
		return types.Record{}, fmt.Errorf("%w: missing id", ErrMalformed)
	}

	updatedRaw, ok := lookup(raw, fields, "updated")
	if !ok || updatedRaw == nil {
		return types.Record{}, fmt.Errorf("%w: %s: missing updated timestamp", ErrMalformed, id)
	}

	return types.Record{
		ID:          id,
		Key:         key,
		Estimate:    e.estimate(raw, fields),
		ActualHours: effortSeconds(raw, fields) / secondsPerHour,
		UpdatedAt:   parseTime(stringOf(updatedRaw)),
	}, nil
}

// estimate returns the first positive configured field, then falls back to
// the custom-field scan. Zero means no usable estimate.
func (e *Extractor) estimate(raw, fields map[string]any) float64 {
	for _, name := range e.fields {
		v, ok := lookup(raw, fields, name)
		if !ok {
			continue
		}
		if f, ok := toFloat(v); ok && f > 0 {
			return f
		}
	}
	if !e.scan {
		return 0
	}
	return e.scanCustomFields(fields)
}

// scanCustomFields is the best-effort fallback. See the package doc.
func (e *Extractor) scanCustomFields(fields map[string]any) float64 {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if e.pattern.MatchString(name) {
			names = append(names, name)
		}
	}
	sortFieldNames(names)
	for _, name := range names {
		f, ok := toFloat(fields[name])
		if ok && f > 0 && f <= maxHeuristicEstimate {
			return f
		}
	}
	return 0
}

// sortFieldNames orders by trailing number (customfield_10002 before
// customfield_10016), then lexically.
func sortFieldNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ni, iok := trailingNumber(names[i])
		nj, jok := trailingNumber(names[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		if iok != jok {
			return iok
		}
		return names[i] < names[j]
	})
}

func trailingNumber(s string) (int64, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s[i:], 10, 64)
	return n, err == nil
}

// effortSeconds returns logged seconds from the first positive source.
func effortSeconds(raw, fields map[string]any) float64 {
	for _, name := range directEffortFields {
		if v, ok := lookup(raw, fields, name); ok {
			if f, ok := toFloat(v); ok && f > 0 {
				return f
			}
		}
	}

	if tt, ok := lookup(raw, fields, "timetracking"); ok {
		if m, ok := tt.(map[string]any); ok {
			if f, ok := toFloat(m["timeSpentSeconds"]); ok && f > 0 {
				return f
			}
		}
	}

	if total := worklogSeconds(raw, fields); total > 0 {
		return total
	}
	return 0
}

// worklogSeconds sums timeSpentSeconds over the issue's work-log entries.
func worklogSeconds(raw, fields map[string]any) float64 {
	var entries []any
	if wl, ok := lookup(raw, fields, "worklog"); ok {
		switch v := wl.(type) {
		case map[string]any:
			entries, _ = v["worklogs"].([]any)
		case []any:
			entries = v
		}
	}
	if len(entries) == 0 {
		if wl, ok := lookup(raw, fields, "worklogs"); ok {
			entries, _ = wl.([]any)
		}
	}

	var total float64
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if f, ok := toFloat(m["timeSpentSeconds"]); ok && f > 0 {
			total += f
		}
	}
	return total
}

// fieldsOf returns the nested "fields" map of a Jira issue, or raw itself
// for flat records.
func fieldsOf(raw map[string]any) map[string]any {
	if f, ok := raw["fields"].(map[string]any); ok {
		return f
	}
	return raw
}

// lookup finds name in fields first, then at the top level.
func lookup(raw, fields map[string]any, name string) (any, bool) {
	if v, ok := fields[name]; ok && v != nil {
		return v, true
	}
	v, ok := raw[name]
	return v, ok && v != nil
}

// toFloat coerces the numeric shapes JSON decoders and exports produce.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprint(s)
	}
}

// parseTime returns the zero time when s matches none of timeLayouts.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

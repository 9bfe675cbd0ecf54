package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/stats"
)

// Output formats accepted by Render.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// ErrUnknownFormat is returned by Render for any format other than
// FormatTable or FormatJSON.
var ErrUnknownFormat = errors.New("report: unknown format")

// Formats lists the accepted formats, for flag help.
func Formats() []string { return []string{FormatTable, FormatJSON} }

// Render writes d to w in the given format. An empty format means table.
func Render(w io.Writer, d *compute.Dashboard, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatTable:
		_, err := io.WriteString(w, newTable(w).render(d))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	default:
		return fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// table holds the styles for one output writer.
type table struct {
	header lipgloss.Style
	dim    lipgloss.Style
	class  map[stats.Class]lipgloss.Style
}

func newTable(w io.Writer) *table {
	r := lipgloss.NewRenderer(w)
	return &table{
		header: r.NewStyle().Bold(true),
		dim:    r.NewStyle().Faint(true),
		class: map[stats.Class]lipgloss.Style{
			stats.OnTarget:  r.NewStyle().Foreground(lipgloss.Color("2")),
			stats.Moderate:  r.NewStyle().Foreground(lipgloss.Color("3")),
			stats.High:      r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			stats.Undefined: r.NewStyle().Faint(true),
		},
	}
}

func (t *table) render(d *compute.Dashboard) string {
	var sb strings.Builder

	sb.WriteString(t.header.Render("estimatelens · " + d.Window))
	sb.WriteByte('\n')
	sb.WriteString(t.dim.Render(fmt.Sprintf("generated %s  ·  %d issues in, %d skipped, %d in window",
		d.GeneratedAt.UTC().Format(time.RFC3339), d.InputCount, d.SkippedCount, d.RecordCount)))
	sb.WriteByte('\n')

	if d.Empty {
		sb.WriteByte('\n')
		sb.WriteString(t.dim.Render("  No issues with an estimate or logged time in this window"))
		sb.WriteByte('\n')
		return sb.String()
	}

	sb.WriteByte('\n')
	sb.WriteString("  Trend: ")
	if d.Trend.Available {
		sb.WriteString(fmt.Sprintf("hours = %.2f × points %+.2f  (n=%d)", d.Trend.Slope, d.Trend.Intercept, d.Trend.N))
	} else {
		sb.WriteString(t.dim.Render("none (" + d.Trend.Reason + ")"))
	}
	sb.WriteByte('\n')
	sb.WriteString("  Expected hours per point: ")
	if d.ExpectedHoursPerPoint != nil {
		sb.WriteString(fmt.Sprintf("%.2f", *d.ExpectedHoursPerPoint))
	} else {
		sb.WriteString(t.dim.Render("n/a"))
	}
	sb.WriteByte('\n')

	t.writeSummaries(&sb, d)
	t.writeHistogram(&sb, d)
	return sb.String()
}

func (t *table) writeSummaries(sb *strings.Builder, d *compute.Dashboard) {
	if len(d.Summaries) == 0 {
		return
	}
	sb.WriteByte('\n')
	sb.WriteString(t.header.Render(fmt.Sprintf("  %-9s %6s %10s %10s %8s  %s",
		"Estimate", "Count", "Mean h", "StdDev h", "Diff", "Class")))
	sb.WriteByte('\n')
	sb.WriteString(t.dim.Render("  " + strings.Repeat("─", 64)))
	sb.WriteByte('\n')

	for _, s := range d.Summaries {
		diff := "n/a"
		if s.PercentDiff != nil {
			diff = fmt.Sprintf("%.1f%%", *s.PercentDiff*100)
		}
		style, ok := t.class[s.Classification]
		if !ok {
			style = t.dim
		}
		sb.WriteString(fmt.Sprintf("  %-9s %6d %10.2f %10.2f %8s  %s",
			stats.FormatEstimate(s.EstimateValue), s.Count, s.MeanHours, s.StdDevHours, diff,
			style.Render(string(s.Classification))))
		sb.WriteByte('\n')
	}
}

func (t *table) writeHistogram(sb *strings.Builder, d *compute.Dashboard) {
	h := d.Histogram
	if len(h.Series) == 0 {
		return
	}
	width := len("Series")
	for _, s := range h.Series {
		width = max(width, lipgloss.Width(s.Name))
	}

	sb.WriteByte('\n')
	head := fmt.Sprintf("  %-*s", width, "Series")
	for _, l := range h.Labels {
		head += fmt.Sprintf(" %7s", l)
	}
	sb.WriteString(t.header.Render(head))
	sb.WriteByte('\n')
	sb.WriteString(t.dim.Render("  " + strings.Repeat("─", width+8*len(h.Labels))))
	sb.WriteByte('\n')

	for _, s := range h.Series {
		sb.WriteString(fmt.Sprintf("  %-*s", width, s.Name))
		for _, v := range s.Values {
			sb.WriteString(fmt.Sprintf(" %7.0f", v))
		}
		sb.WriteByte('\n')
	}
}

package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/estimatelens/estimatelens/internal/config"
)

// fact is one name/value line shown under an alert in chat notifications.
type fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// facts lists the dashboard context of a in display order.
func facts(a *Alert) []fact {
	s := a.Snapshot
	out := []fact{
		{"Window", a.Window},
		{"Condition", a.Condition},
		{"Value", formatValue(a.Value)},
		{"Records", fmt.Sprintf("%d (%d skipped)", s.Records, s.Skipped)},
		{"Estimate groups", fmt.Sprintf("%d on target, %d moderate, %d high, %d undefined",
			s.OnTarget, s.Moderate, s.High, s.Undefined)},
	}
	if s.HoursPerPoint != nil {
		out = append(out, fact{"Hours per point", fmt.Sprintf("%.2f", *s.HoursPerPoint)})
	}
	if s.TrendSlope != nil {
		out = append(out, fact{"Trend slope", fmt.Sprintf("%.2f h/pt", *s.TrendSlope)})
	} else {
		out = append(out, fact{"Trend slope", "none"})
	}
	return out
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// headline is the one-line summary used as chat text and card title.
func headline(a *Alert) string {
	verb := "fired"
	if a.State == StateResolved {
		verb = "resolved"
	}
	return fmt.Sprintf("estimatelens %s %s: %s on %s", strings.ToUpper(a.Severity), verb, a.RuleName, a.Window)
}

// deliver posts a to every target with a resolvable URL. Failures are logged.
func (e *Engine) deliver(webhooks []config.WebhookConfig, a *Alert) {
	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}
		var payload any
		switch wh.Type {
		case "slack":
			payload = slackPayload(a)
		case "teams":
			payload = teamsPayload(a)
		case "http":
			payload = map[string]any{"alert": a}
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}
		if err := e.post(url, payload); err != nil {
			slog.Error("alerts: webhook delivery failed", "type", wh.Type, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered", "type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

// slackPayload is an incoming-webhook message with one attachment whose
// fields carry the dashboard facts.
func slackPayload(a *Alert) map[string]any {
	fields := make([]map[string]any, 0, 8)
	for _, f := range facts(a) {
		fields = append(fields, map[string]any{
			"title": f.Name,
			"value": f.Value,
			"short": f.Name != "Estimate groups" && f.Name != "Condition",
		})
	}
	return map[string]any{
		"text": "*" + headline(a) + "*",
		"attachments": []map[string]any{{
			"color":  "#" + stateColor(a),
			"text":   a.Message,
			"fields": fields,
			"ts":     a.FiredAt.Unix(),
		}},
	}
}

// teamsPayload is a connector MessageCard with the facts in one section.
func teamsPayload(a *Alert) map[string]any {
	return map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": stateColor(a),
		"summary":    headline(a),
		"title":      headline(a),
		"sections": []map[string]any{{
			"activityTitle":    a.RuleName,
			"activitySubtitle": a.Message,
			"facts":            facts(a),
		}},
	}
}

func (e *Engine) post(url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// stateColor is green for resolved alerts, else keyed by severity.
func stateColor(a *Alert) string {
	if a.State == StateResolved {
		return "2EB67D"
	}
	switch a.Severity {
	case "critical":
		return "E01E5A"
	case "warning":
		return "ECB22E"
	default:
		return "36C5F0"
	}
}

package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/config"
	"github.com/estimatelens/estimatelens/internal/stats"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
	recentWindow    = time.Hour
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Condition  string     `json:"condition"`
	Window     string     `json:"window"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"`
	// Snapshot is the dashboard state at the last fire or resolve.
	Snapshot Snapshot `json:"snapshot"`
}

// Snapshot summarises the dashboard an alert was evaluated against.
type Snapshot struct {
	Records       int      `json:"records"`
	Skipped       int      `json:"skipped"`
	OnTarget      int      `json:"on_target_groups"`
	Moderate      int      `json:"moderate_deviation_groups"`
	High          int      `json:"high_deviation_groups"`
	Undefined     int      `json:"undefined_groups"`
	HoursPerPoint *float64 `json:"hours_per_point,omitempty"`
	TrendSlope    *float64 `json:"trend_slope,omitempty"`
}

func snapshotOf(d *compute.Dashboard) Snapshot {
	s := Snapshot{
		Records:       d.RecordCount,
		Skipped:       d.SkippedCount,
		OnTarget:      countClass(d, stats.OnTarget),
		Moderate:      countClass(d, stats.Moderate),
		High:          countClass(d, stats.High),
		Undefined:     countClass(d, stats.Undefined),
		HoursPerPoint: d.ExpectedHoursPerPoint,
	}
	if d.Trend.Available {
		slope := d.Trend.Slope
		s.TrendSlope = &slope
	}
	return s
}

// rule is a config rule with its parsed condition.
type rule struct {
	config.AlertRule
	cond condition
}

// Engine evaluates alert rules against dashboards and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []rule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts

	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates an Engine from the alert configuration. Every rule condition is
// parsed up front; the first invalid one is returned as an error.
// An Engine with no rules is valid and Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) (*Engine, error) {
	e := &Engine{
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	if err := e.SetConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// SetConfig replaces rules and webhooks. Active alerts for rules that no
// longer exist are dropped. On error the previous configuration stays.
func (e *Engine) SetConfig(cfg config.AlertsConfig) error {
	rules := make([]rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		c, err := parseCondition(r.Condition)
		if err != nil {
			return fmt.Errorf("alerts: rule %q: %w", r.Name, err)
		}
		rules = append(rules, rule{AlertRule: r, cond: c})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
	e.webhooks = cfg.Webhooks
	keep := make(map[string]bool, len(rules))
	for _, r := range rules {
		keep[r.Name] = true
	}
	for name := range e.active {
		if !keep[name] {
			delete(e.active, name)
		}
	}
	return nil
}

// Evaluate tests all configured rules against d.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(d *compute.Dashboard) {
	e.mu.Lock()
	rules := e.rules
	e.mu.Unlock()
	if len(rules) == 0 || d == nil {
		return
	}

	now := e.now()
	snap := snapshotOf(d)
	for _, r := range rules {
		fires, value := r.cond.eval(d)
		if fires {
			e.fire(r, d.Window, value, snap, now)
		} else {
			e.resolve(r, snap, now)
		}
	}
}

func (e *Engine) fire(r rule, win string, value float64, snap Snapshot, now time.Time) {
	e.mu.Lock()
	if a, firing := e.active[r.Name]; firing {
		a.Value = value
		a.Snapshot = snap
		e.mu.Unlock()
		return
	}
	cooldown := r.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[r.Name]; ok && now.Sub(last) < cooldown {
		e.mu.Unlock()
		return
	}

	sev := r.Severity
	if sev == "" {
		sev = "warning"
	}
	a := &Alert{
		ID:        uuid.NewString(),
		RuleName:  r.Name,
		Condition: r.Condition,
		Window:    win,
		Severity:  sev,
		Value:     value,
		Message: fmt.Sprintf("[%s] %s fired for window %s: %s (value %.2f)",
			sev, r.Name, win, r.Condition, value),
		FiredAt:  now,
		State:    StateFiring,
		Snapshot: snap,
	}
	e.active[r.Name] = a
	e.lastFire[r.Name] = now
	alertCopy := *a
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Warn("alerts: fired", "rule", r.Name, "window", win, "value", value, "severity", sev)
	e.dispatch(webhooks, &alertCopy)
}

func (e *Engine) resolve(r rule, snap Snapshot, now time.Time) {
	e.mu.Lock()
	a, ok := e.active[r.Name]
	if !ok {
		e.mu.Unlock()
		return
	}
	resolved := now
	a.State = StateResolved
	a.ResolvedAt = &resolved
	a.Snapshot = snap
	delete(e.active, r.Name)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	alertCopy := *a
	webhooks := e.webhooks
	e.mu.Unlock()

	slog.Info("alerts: resolved", "rule", r.Name)
	e.dispatch(webhooks, &alertCopy)
}

func (e *Engine) dispatch(webhooks []config.WebhookConfig, a *Alert) {
	if len(webhooks) == 0 {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(webhooks, a)
	}()
}

// Wait blocks until in-flight webhook deliveries finish.
func (e *Engine) Wait() { e.wg.Wait() }

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindow)
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, *a)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FiredAt.Equal(out[j].FiredAt) {
			return out[i].FiredAt.After(out[j].FiredAt)
		}
		return out[i].RuleName < out[j].RuleName
	})
	return out
}

// FiringCount returns the number of currently firing alerts.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/estimatelens/estimatelens/internal/alerts"
	"github.com/estimatelens/estimatelens/internal/compute"
	"github.com/estimatelens/estimatelens/internal/refresh"
	"github.com/estimatelens/estimatelens/internal/store"
	"github.com/estimatelens/estimatelens/internal/window"
)

// Chart names served under /api/v1/charts/.
const (
	ChartBoxplot   = "boxplot"
	ChartScatter   = "scatter"
	ChartHistogram = "histogram"
)

const refreshTimeout = 10 * time.Minute

// AlertLister is the read side of the alert engine.
type AlertLister interface {
	Active() []alerts.Alert
	FiringCount() int
}

// Refresher triggers source refreshes.
type Refresher interface {
	RunOnce(ctx context.Context) (refresh.Result, error)
	Next() time.Time
}

// Deps are the components the API reads from. Alerts and Refresher are
// optional.
type Deps struct {
	Service   *compute.Service
	Store     *store.Store
	Alerts    AlertLister
	Refresher Refresher
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a Handler wired to deps and registers all routes.
func New(deps Deps) http.Handler {
	h := &Handler{deps: deps, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/dashboard", h.dashboard)
	h.mux.HandleFunc("/api/v1/charts/", h.chart) // subtree — extracts {name}
	h.mux.HandleFunc("/api/v1/summary", h.summary)
	h.mux.HandleFunc("/api/v1/diagnostics", h.diagnostics)
	h.mux.HandleFunc("/api/v1/sources", h.sources)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/refresh", h.refresh)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	entries := h.deps.Store.List()
	resp := HealthResponse{
		DefaultWindow: h.deps.Service.DefaultWindow().String(),
		SourceCount:   len(entries),
		IssueCount:    len(h.deps.Store.Issues()),
	}
	for _, e := range entries {
		if e.Err != "" {
			resp.FailingSources++
		}
	}
	if last := h.deps.Store.LastRefresh(); !last.IsZero() {
		resp.LastRefresh = last.UTC().Format(time.RFC3339)
	}
	if h.deps.Refresher != nil {
		if next := h.deps.Refresher.Next(); !next.IsZero() {
			resp.NextRefresh = next.UTC().Format(time.RFC3339)
		}
	}
	if h.deps.Alerts != nil {
		resp.AlertCount = h.deps.Alerts.FiringCount()
	}

	switch {
	case resp.IssueCount == 0:
		resp.Status = "empty"
	case resp.FailingSources > 0:
		resp.Status = "degraded"
	default:
		resp.Status = "ok"
	}
	jsonResp(w, http.StatusOK, resp)
}

// dashboard returns GET /api/v1/dashboard — the full statistics bundle.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	d, ok := h.compute(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, d)
}

// chart returns GET /api/v1/charts/{name}.
func (h *Handler) chart(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/charts/"), "/")
	switch name {
	case ChartBoxplot, ChartScatter, ChartHistogram:
	default:
		jsonErr(w, http.StatusNotFound, "unknown chart "+strings.TrimSpace(name))
		return
	}

	d, ok := h.compute(w, r)
	if !ok {
		return
	}
	resp := ChartResponse{
		Name:        name,
		Window:      d.Window,
		GeneratedAt: d.GeneratedAt,
		RecordCount: d.RecordCount,
	}
	switch name {
	case ChartBoxplot:
		resp.Chart = d.Boxplot
	case ChartScatter:
		resp.Chart = d.Scatter
		trend := d.Trend
		resp.Trend = &trend
	case ChartHistogram:
		resp.Chart = d.Histogram
	}
	jsonResp(w, http.StatusOK, resp)
}

// summary returns GET /api/v1/summary — the per-estimate summary boxes.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	d, ok := h.compute(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, SummaryResponse{
		Window:                d.Window,
		GeneratedAt:           d.GeneratedAt,
		RecordCount:           d.RecordCount,
		ExpectedHoursPerPoint: d.ExpectedHoursPerPoint,
		Thresholds:            thresholds,
		Summaries:             d.Summaries,
	})
}

// diagnostics returns GET /api/v1/diagnostics.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	d, ok := h.compute(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, DiagnosticsResponse{
		Window: d.Window,
		Hints:  computeDiagnostics(d, h.deps.Store.List()),
	})
}

// sources returns GET /api/v1/sources — fetch status per live source.
func (h *Handler) sources(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	entries := h.deps.Store.List()
	out := make([]SourceResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toSourceResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// alerts returns GET /api/v1/alerts — firing and recently resolved alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if h.deps.Alerts == nil {
		jsonResp(w, http.StatusOK, []alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Alerts.Active())
}

// refresh handles POST /api/v1/refresh. By default the pass runs in the
// background and 202 is returned; ?wait=true blocks and returns the result.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if h.deps.Refresher == nil {
		jsonErr(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		res, err := h.deps.Refresher.RunOnce(r.Context())
		switch {
		case errors.Is(err, refresh.ErrBusy):
			jsonResp(w, http.StatusConflict, RefreshResponse{Status: "busy"})
		case err != nil:
			jsonErr(w, http.StatusInternalServerError, err.Error())
		default:
			jsonResp(w, http.StatusOK, RefreshResponse{Status: "done", Result: res})
		}
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if _, err := h.deps.Refresher.RunOnce(ctx); err != nil {
			slog.Warn("api: triggered refresh", "err", err)
		}
	}()
	jsonResp(w, http.StatusAccepted, RefreshResponse{Status: "accepted"})
}

// --- helpers ----------------------------------------------------------------

// compute resolves the request's window and recomputes. On failure it has
// already written the error response.
func (h *Handler) compute(w http.ResponseWriter, r *http.Request) (*compute.Dashboard, bool) {
	q := r.URL.Query()
	sel, err := window.Select(q.Get("window"), q.Get("since"), h.deps.Service.DefaultWindow())
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	d, err := h.deps.Service.Dashboard(sel)
	if err != nil {
		if errors.Is(err, window.ErrInvalidArgument) {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		slog.Error("api: recompute failed", "window", sel.Label(), "err", err)
		jsonErr(w, http.StatusInternalServerError, "recompute failed")
		return nil, false
	}
	return d, true
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// toSourceResponse maps a store.Entry to its JSON representation.
func toSourceResponse(e store.Entry) SourceResponse {
	resp := SourceResponse{
		SourceID:   e.SourceID,
		Status:     "ok",
		IssueCount: e.Count,
		UpdatedAt:  e.UpdatedAt.UTC().Format(time.RFC3339),
		Error:      e.Err,
	}
	if e.Err != "" {
		resp.Status = "error"
	}
	if !e.FetchedAt.IsZero() {
		resp.FetchedAt = e.FetchedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

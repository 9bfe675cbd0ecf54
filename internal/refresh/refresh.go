package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/estimatelens/estimatelens/internal/source"
	"github.com/estimatelens/estimatelens/internal/store"
)

// ErrBusy is returned by RunOnce when another pass is still running.
var ErrBusy = errors.New("refresh: already running")

const defaultFetchTimeout = 5 * time.Minute

// Result summarises one refresh pass.
type Result struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Sources   int           `json:"sources"`
	Failed    int           `json:"failed"`
	Issues    int           `json:"issues"`
}

// Options configures a Refresher.
type Options struct {
	// OnRefresh is called after every pass. Optional.
	OnRefresh func(Result)

	// FetchTimeout bounds each source fetch. Zero means 5 minutes.
	FetchTimeout time.Duration
}

// Refresher drives periodic source fetches.
type Refresher struct {
	st   *store.Store
	opts Options
	now  func() time.Time

	srcMu   sync.RWMutex
	sources []source.Source

	running sync.Mutex

	cronMu sync.Mutex
	cron   *cron.Cron
}

// New returns a Refresher for sources writing into st.
func New(sources []source.Source, st *store.Store, opts Options) *Refresher {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Refresher{
		st:      st,
		opts:    opts,
		now:     time.Now,
		sources: sources,
	}
}

// SetSources replaces the source list, taking effect on the next pass.
func (r *Refresher) SetSources(sources []source.Source) {
	r.srcMu.Lock()
	defer r.srcMu.Unlock()
	r.sources = sources
}

// RunOnce fetches every source once. It returns ErrBusy without fetching if
// a pass is already in progress.
func (r *Refresher) RunOnce(ctx context.Context) (Result, error) {
	if !r.running.TryLock() {
		return Result{}, ErrBusy
	}
	defer r.running.Unlock()

	r.srcMu.RLock()
	sources := r.sources
	r.srcMu.RUnlock()

	res := Result{StartedAt: r.now(), Sources: len(sources)}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := r.fetch(ctx, src)
		if err != nil {
			res.Failed++
			r.st.PutError(src.ID(), err)
			slog.Warn("refresh: fetch failed", "source", src.ID(), "err", err)
			continue
		}
		res.Issues += n
	}
	res.Duration = r.now().Sub(res.StartedAt)

	slog.Info("refresh: pass complete", "sources", res.Sources, "failed", res.Failed,
		"issues", res.Issues, "duration", res.Duration)

	if r.opts.OnRefresh != nil {
		r.opts.OnRefresh(res)
	}
	return res, nil
}

func (r *Refresher) fetch(ctx context.Context, src source.Source) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()
	issues, err := src.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	r.st.Put(src.ID(), issues)
	return len(issues), nil
}

// Start schedules RunOnce on spec (standard five-field cron) in loc.
// Calling Start again replaces the previous schedule.
func (r *Refresher) Start(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { r.scheduled(ctx) }); err != nil {
		return fmt.Errorf("refresh: schedule %q: %w", spec, err)
	}

	r.cronMu.Lock()
	prev := r.cron
	r.cron = c
	r.cronMu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	c.Start()
	slog.Info("refresh: scheduled", "spec", spec, "tz", loc.String())
	return nil
}

// Next returns the next scheduled run, or the zero time when not started.
func (r *Refresher) Next() time.Time {
	r.cronMu.Lock()
	defer r.cronMu.Unlock()
	if r.cron == nil {
		return time.Time{}
	}
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop halts the schedule and waits for a running pass to finish.
func (r *Refresher) Stop() {
	r.cronMu.Lock()
	c := r.cron
	r.cron = nil
	r.cronMu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (r *Refresher) scheduled(ctx context.Context) {
	if _, err := r.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrBusy) {
			slog.Info("refresh: previous pass still running, skipping")
			return
		}
		slog.Error("refresh: scheduled pass failed", "err", err)
	}
}

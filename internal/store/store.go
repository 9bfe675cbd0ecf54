package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/estimatelens/estimatelens/pkg/types"
)

// Entry is the fetch state of one source.
type Entry struct {
	SourceID string           `json:"source_id"`
	Issues   []types.RawIssue `json:"-"`
	Count    int              `json:"issue_count"`

	// FetchedAt is the last successful fetch; UpdatedAt the last attempt.
	FetchedAt time.Time `json:"fetched_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Err is the message of the last failed fetch, cleared on success.
	Err string `json:"error,omitempty"`
}

// Store is a thread-safe in-memory issue store, keyed by source ID.
// A background goroutine (Run) periodically evicts entries that have not
// been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the issues for sourceID and clears any error.
// Callers must not modify issues after calling Put.
func (s *Store) Put(sourceID string, issues []types.RawIssue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.data[sourceID] = &Entry{
		SourceID:  sourceID,
		Issues:    issues,
		Count:     len(issues),
		FetchedAt: now,
		UpdatedAt: now,
	}
}

// PutError records a failed fetch. Previously fetched issues are kept.
func (s *Store) PutError(sourceID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[sourceID]
	if !ok {
		e = &Entry{SourceID: sourceID}
		s.data[sourceID] = e
	}
	e.UpdatedAt = s.now()
	e.Err = err.Error()
}

// Get returns a copy of the Entry for sourceID and whether one was found.
// The entry may be stale if TTL has elapsed.
func (s *Store) Get(sourceID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[sourceID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns copies of all entries updated within the TTL, sorted by ID.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}

// Issues flattens the issues of every source fetched successfully within the
// TTL, ordered by source ID so repeated calls yield identical slices.
func (s *Store) Issues() []types.RawIssue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)

	ids := make([]string, 0, len(s.data))
	total := 0
	for id, e := range s.data {
		if e.FetchedAt.After(cutoff) {
			ids = append(ids, id)
			total += len(e.Issues)
		}
	}
	sort.Strings(ids)

	out := make([]types.RawIssue, 0, total)
	for _, id := range ids {
		out = append(out, s.data[id].Issues...)
	}
	return out
}

// LastRefresh returns the most recent fetch attempt across all sources.
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last time.Time
	for _, e := range s.data {
		if e.UpdatedAt.After(last) {
			last = e.UpdatedAt
		}
	}
	return last
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries whose UpdatedAt is older than now minus TTL and
// releases issues whose FetchedAt is older. It returns the number of entries
// removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
			continue
		}
		if e.Issues != nil && !e.FetchedAt.After(cutoff) {
			e.Issues = nil
			e.Count = 0
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so entries are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale sources", "count", n)
			}
		}
	}
}

package compute

import (
	"sync"
	"time"

	"github.com/estimatelens/estimatelens/internal/extract"
	"github.com/estimatelens/estimatelens/internal/window"
	"github.com/estimatelens/estimatelens/pkg/types"
)

// IssueSource supplies the raw issues a Service recomputes over.
// *store.Store satisfies it.
type IssueSource interface {
	Issues() []types.RawIssue
}

// Service binds an Engine to a live issue source and a default window. It is
// what the HTTP, websocket, alert and metrics layers call. Settings can be
// swapped at runtime on config reload.
//
// All exported methods are safe for concurrent use.
type Service struct {
	issues IssueSource
	now    func() time.Time

	mu     sync.RWMutex
	engine *Engine
	def    window.Window
}

// NewService returns a Service over issues. A nil engine means NewEngine(nil).
func NewService(issues IssueSource, engine *Engine, def window.Window) *Service {
	if engine == nil {
		engine = NewEngine(nil)
	}
	if !def.Valid() {
		def = window.All
	}
	return &Service{issues: issues, now: time.Now, engine: engine, def: def}
}

// DefaultWindow returns the window used when a caller names none.
func (s *Service) DefaultWindow() window.Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.def
}

// SetDefaultWindow replaces the default window. Invalid windows are ignored.
func (s *Service) SetDefaultWindow(w window.Window) {
	if !w.Valid() {
		return
	}
	s.mu.Lock()
	s.def = w
	s.mu.Unlock()
}

// SetExtractor swaps the extractor used for subsequent recomputes.
func (s *Service) SetExtractor(ex *extract.Extractor) {
	s.mu.Lock()
	s.engine = NewEngine(ex)
	s.mu.Unlock()
}

// Dashboard recomputes for sel against the current issues and wall clock.
func (s *Service) Dashboard(sel window.Selection) (*Dashboard, error) {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	return engine.RecomputeSelection(s.issues.Issues(), sel, s.now())
}

// Default recomputes for the default window.
func (s *Service) Default() (*Dashboard, error) {
	return s.Dashboard(window.Named(s.DefaultWindow()))
}

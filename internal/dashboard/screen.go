package dashboard

import (
	"context"
	"sync"
	"time"

	"gofinances/internal/events"
	"gofinances/internal/log"
)

// Status of the dashboard state.
type Status int

const (
	NotStarted Status = iota
	Loading
	Ready
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// ViewLoader produces a dashboard view.
type ViewLoader interface {
	Load(ctx context.Context) (View, error)
}

// State is a snapshot of what the dashboard shows. A failed load is Ready
// with Err set and an empty view.
type State struct {
	Status   Status
	View     View
	Err      error
	LoadedAt time.Time
}

// Screen owns the dashboard state and reloads it whenever the dashboard
// becomes visible or the stored transactions change.
//
// Loads may overlap. The most recently started load wins: a load that
// completes after a later-started one has been applied is dropped.
type Screen struct {
	loader  ViewLoader
	bus     *events.Bus
	timeout time.Duration
	logger  *log.Logger

	mu      sync.Mutex
	state   State
	started uint64
	applied uint64
	unsubs  []func()
}

func NewScreen(loader ViewLoader, bus *events.Bus, timeout time.Duration, logger *log.Logger) *Screen {
	if logger == nil {
		logger = log.Nop()
	}
	return &Screen{
		loader:  loader,
		bus:     bus,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentDashboard),
	}
}

// Mount subscribes to visibility and change events and runs the initial
// load. The returned error is the initial load's.
func (s *Screen) Mount(ctx context.Context) error {
	s.Attach()
	_, err := s.Refresh(ctx)
	return err
}

// Attach subscribes to visibility and change events without loading; the
// first load happens on the next event. Calling it again is a no-op.
func (s *Screen) Attach() {
	s.mu.Lock()
	if s.unsubs == nil && s.bus != nil {
		reload := func(ctx context.Context, ev events.Event) {
			s.logger.DebugContext(ctx, "Reloading dashboard", log.FieldEvent, string(ev))
			_, _ = s.Refresh(ctx)
		}
		s.unsubs = []func(){
			s.bus.Subscribe(events.Visible, reload),
			s.bus.Subscribe(events.TransactionsChanged, reload),
		}
	}
	s.mu.Unlock()
}

// Unmount removes the event subscriptions. The last state stays readable.
func (s *Screen) Unmount() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// Refresh runs one load and replaces the state with its result.
func (s *Screen) Refresh(ctx context.Context) (State, error) {
	s.mu.Lock()
	s.started++
	seq := s.started
	s.state.Status = Loading
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	view, err := s.loader.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied {
		s.logger.DebugContext(ctx, "Dropping stale dashboard load", "seq", seq, "applied", s.applied)
		return s.state, err
	}
	s.applied = seq

	if err != nil {
		view = View{}
		s.logger.ErrorContext(ctx, "Dashboard load failed",
			log.NewFields().WithError(err).WithOperation(log.OpLoad).ToSlice()...)
	} else {
		s.logger.DebugContext(ctx, "Dashboard loaded",
			log.FieldCount, len(view.Transactions),
			log.FieldDuration, time.Since(start).Milliseconds())
	}
	s.state.View = view
	s.state.Err = err
	s.state.LoadedAt = time.Now()
	if seq == s.started {
		s.state.Status = Ready
	}
	return s.state, err
}

// Snapshot returns the current state.
func (s *Screen) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

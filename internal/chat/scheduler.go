package chat

import (
	"sync"
	"time"
)

const (
	// defaultSwitchSettle runs between a stream going idle and the reload a
	// session switch asked for, so the UI is not redrawn mid-render.
	defaultSwitchSettle = 300 * time.Millisecond
	// defaultFinalizeSettle keeps the just-streamed bubble stable before the
	// store's version replaces it.
	defaultFinalizeSettle = 1500 * time.Millisecond
)

// Scheduler reconciles displayed history with the store without disturbing an
// active stream. Reloads are cancellable tasks keyed by session id; the most
// recently scheduled reload for a session wins, nothing queues.
type Scheduler struct {
	mu       sync.Mutex
	timers   map[string]*time.Timer
	deferred string // session whose switch-reload waits for the stream to idle
	stopped  bool

	switchSettle   time.Duration
	finalizeSettle time.Duration

	phase  func() Phase
	reload func(sessionID string)
}

// NewScheduler builds a scheduler that observes the stream phase through
// phase and performs reloads through reload (called on a timer goroutine).
func NewScheduler(phase func() Phase, reload func(sessionID string)) *Scheduler {
	return &Scheduler{
		timers:         make(map[string]*time.Timer),
		switchSettle:   defaultSwitchSettle,
		finalizeSettle: defaultFinalizeSettle,
		phase:          phase,
		reload:         reload,
	}
}

// SetSettleDelays overrides the settle windows, primarily for tests.
func (s *Scheduler) SetSettleDelays(switchSettle, finalizeSettle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchSettle = switchSettle
	s.finalizeSettle = finalizeSettle
}

// OnSessionSwitch requests the freshly selected session's history. With no
// active stream the reload runs immediately; otherwise it is parked until
// OnStreamIdle. An empty id has no history to load and cancels nothing.
func (s *Scheduler) OnSessionSwitch(sessionID string) {
	if sessionID == "" {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.phase() != PhaseIdle {
		s.deferred = sessionID
		s.mu.Unlock()
		return
	}
	s.cancelLocked(sessionID)
	reload := s.reload
	s.mu.Unlock()

	reload(sessionID)
}

// OnStreamIdle releases a reload deferred by a session switch, after the short
// settle window.
func (s *Scheduler) OnStreamIdle() {
	s.mu.Lock()
	id := s.deferred
	s.deferred = ""
	if id == "" || s.stopped {
		s.mu.Unlock()
		return
	}
	s.scheduleLocked(id, s.switchSettle)
	s.mu.Unlock()
}

// OnFinalize schedules the post-completion reload that swaps the optimistic
// bubble for the persisted history.
func (s *Scheduler) OnFinalize(sessionID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	if !s.stopped {
		s.scheduleLocked(sessionID, s.finalizeSettle)
	}
	s.mu.Unlock()
}

// Cancel drops any pending reload for the session.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	s.cancelLocked(sessionID)
	if s.deferred == sessionID {
		s.deferred = ""
	}
	s.mu.Unlock()
}

// Stop cancels everything; the scheduler is unusable afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.deferred = ""
}

// scheduleLocked requires s.mu held. Replaces any pending reload for the id.
func (s *Scheduler) scheduleLocked(sessionID string, d time.Duration) {
	s.cancelLocked(sessionID)
	s.timers[sessionID] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, sessionID)
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			s.reload(sessionID)
		}
	})
}

func (s *Scheduler) cancelLocked(sessionID string) {
	if t, ok := s.timers[sessionID]; ok {
		t.Stop()
		delete(s.timers, sessionID)
	}
}

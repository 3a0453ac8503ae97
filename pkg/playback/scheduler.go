package playback

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Clock reports the current playback time.
type Clock interface {
	Now() time.Duration
}

// Voice is a started buffer.
type Voice interface {
	// Stop silences the voice immediately. The ended callback is not called.
	Stop()
}

// placedVoice is a Voice whose Output moved it from the requested offset.
type placedVoice interface {
	At() time.Duration
}

// Output plays buffers at offsets on its clock. The ended callback is
// invoked once when a voice finishes naturally; it must not be invoked from
// within Start.
type Output interface {
	Clock
	Start(buf *Buffer, at time.Duration, ended func()) (Voice, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDispatch sets the function used to deliver ended notifications to the
// Scheduler's owner. The default applies them immediately.
func WithDispatch(dispatch func(func())) Option {
	return func(s *Scheduler) {
		s.dispatch = dispatch
	}
}

// OnBusy sets a callback invoked when the scheduled set becomes non-empty.
func OnBusy(fn func()) Option {
	return func(s *Scheduler) {
		s.onBusy = fn
	}
}

// OnIdle sets a callback invoked when the scheduled set becomes empty.
func OnIdle(fn func()) Option {
	return func(s *Scheduler) {
		s.onIdle = fn
	}
}

// Scheduler queues buffers for contiguous playback.
type Scheduler struct {
	out      Output
	dispatch func(func())
	onBusy   func()
	onIdle   func()

	next   time.Duration
	active map[uuid.UUID]Voice
}

// NewScheduler creates a Scheduler playing to out.
func NewScheduler(out Output, opts ...Option) *Scheduler {
	s := &Scheduler{
		out:      out,
		dispatch: func(fn func()) { fn() },
		active:   make(map[uuid.UUID]Voice),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue schedules buf at max(next, now) and advances next by its
// duration. It returns the handle of the scheduled voice and its start
// offset.
func (s *Scheduler) Enqueue(buf *Buffer) (uuid.UUID, time.Duration, error) {
	at := max(s.next, s.out.Now())
	h := uuid.New()

	// Reserve the handle first so an early ended notification is not lost.
	s.active[h] = nil
	v, err := s.out.Start(buf, at, func() {
		s.dispatch(func() { s.Finish(h) })
	})
	if err != nil {
		delete(s.active, h)
		return uuid.Nil, 0, fmt.Errorf("playback: start voice: %w", err)
	}
	if pv, ok := v.(placedVoice); ok {
		at = pv.At()
	}
	s.next = at + buf.Duration()
	if _, ok := s.active[h]; !ok {
		return h, at, nil
	}
	s.active[h] = v

	slog.Debug("segment scheduled", "at", at, "duration", buf.Duration(), "next", s.next)
	if len(s.active) == 1 && s.onBusy != nil {
		s.onBusy()
	}
	return h, at, nil
}

// Finish removes a voice that ended naturally. Handles that are no longer
// scheduled, e.g. after Interrupt, are ignored.
func (s *Scheduler) Finish(h uuid.UUID) {
	if _, ok := s.active[h]; !ok {
		return
	}
	delete(s.active, h)
	if len(s.active) == 0 && s.onIdle != nil {
		s.onIdle()
	}
}

// Interrupt stops every scheduled voice, empties the set and resets next to
// zero. OnIdle is called if anything was scheduled.
func (s *Scheduler) Interrupt() {
	n := s.stopAll()
	if n > 0 && s.onIdle != nil {
		s.onIdle()
	}
}

// Reset is Interrupt without callbacks.
func (s *Scheduler) Reset() {
	s.stopAll()
}

func (s *Scheduler) stopAll() int {
	n := len(s.active)
	for h, v := range s.active {
		if v != nil {
			v.Stop()
		}
		delete(s.active, h)
	}
	s.next = 0
	return n
}

// Len returns the number of scheduled voices.
func (s *Scheduler) Len() int {
	return len(s.active)
}

// Next returns the start offset of the next enqueued buffer, before
// clamping to the current time.
func (s *Scheduler) Next() time.Duration {
	return s.next
}

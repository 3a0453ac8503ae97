// Package advisory runs live advisory sessions: it acquires the microphone,
// an optional screen share and the speaker, connects them to a live model
// session and tracks the resulting Mode.
//
// All session state is owned by a single loop goroutine. Device and network
// goroutines post work into it, so the scheduler and the mode are never
// mutated concurrently. Work posted on behalf of a session that has already
// ended is dropped.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/horesheladil/drlamiaiassistent/pkg/archive"
	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
	"github.com/horesheladil/drlamiaiassistent/pkg/capture"
	"github.com/horesheladil/drlamiaiassistent/pkg/live"
	"github.com/horesheladil/drlamiaiassistent/pkg/metrics"
	"github.com/horesheladil/drlamiaiassistent/pkg/playback"
	"github.com/horesheladil/drlamiaiassistent/pkg/transcript"
)

var (
	// ErrSessionActive is returned by Start when a session already exists.
	ErrSessionActive = errors.New("advisory: session already active")

	// ErrStopped is returned by Start when the session is stopped before its
	// devices are acquired.
	ErrStopped = errors.New("advisory: session stopped")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("advisory: controller closed")
)

// Session end reasons reported to metrics and stored with transcripts.
const (
	ReasonStopped = "stopped"
	ReasonClosed  = "closed"
	ReasonError   = "error"
)

// Options configures a Controller.
type Options struct {
	// Devices acquires capture and playback devices. Required.
	Devices Devices

	// Transport connects live sessions. Required.
	Transport live.Transport

	// Live is the session configuration passed to every live session.
	Live live.Config

	// InputRate is the microphone sample rate. Defaults to 16000.
	InputRate int

	// OutputRate is the playback sample rate. Defaults to 24000.
	OutputRate int

	// Screen requests a screen share at start.
	Screen bool

	// Sampler configures the screen frame sampler.
	Sampler []capture.SamplerOption

	// Metrics records session metrics. Optional.
	Metrics *metrics.Metrics

	// Store receives the transcript of every ended session. Optional.
	Store transcript.Store

	// Archive receives a JSONL export of every ended session. Optional.
	Archive archive.Store

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnModeChange is called on every mode transition. It runs on the
	// controller loop and must not call Start or Stop.
	OnModeChange func(from, to Mode)

	// OnTranscript is called for every completed transcript entry, on the
	// controller loop.
	OnTranscript func(transcript.Entry)

	// Now defaults to time.Now.
	Now func() time.Time
}

// Controller owns at most one session at a time.
type Controller struct {
	opts   Options
	log    *slog.Logger
	input  pcm.Format
	output pcm.Format

	posts    chan func()
	quit     chan struct{}
	loopDone chan struct{}

	closeOnce sync.Once

	mu      sync.Mutex
	mode    Mode
	lastErr error

	// Owned by the loop.
	sess *session
}

// session holds the resources of one advisory session.
type session struct {
	id      uuid.UUID
	started time.Time
	done    chan struct{}
	result  chan error

	mic      capture.MicrophoneStream
	screen   capture.ScreenStream
	out      Output
	live     *live.Session
	sampler  *capture.FrameSampler
	sched    *playback.Scheduler
	decoder  *playback.Decoder
	recorder *transcript.Recorder
}

// resolve answers the pending Start call, once.
func (s *session) resolve(err error) {
	if s.result == nil {
		return
	}
	s.result <- err
	s.result = nil
}

// New creates a Controller and starts its loop. Call Close to release it.
func New(opts Options) (*Controller, error) {
	if opts.Devices == nil || opts.Transport == nil {
		return nil, errors.New("advisory: devices and transport are required")
	}
	if opts.InputRate == 0 {
		opts.InputRate = pcm.L16Mono16K.SampleRate()
	}
	if opts.OutputRate == 0 {
		opts.OutputRate = pcm.L16Mono24K.SampleRate()
	}
	input, ok := pcm.FormatForRate(opts.InputRate)
	if !ok {
		return nil, fmt.Errorf("advisory: unsupported input rate %d", opts.InputRate)
	}
	output, ok := pcm.FormatForRate(opts.OutputRate)
	if !ok {
		return nil, fmt.Errorf("advisory: unsupported output rate %d", opts.OutputRate)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		opts:     opts,
		log:      log,
		input:    input,
		output:   output,
		posts:    make(chan func(), 64),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go c.loop()
	return c, nil
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// LastError returns the error that ended the most recent failed session.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Start begins a session. It returns once the devices are acquired and the
// live connection is being opened; the mode then moves to listening when the
// connection is established. Start returns ErrSessionActive without side
// effects if a session exists. If acquisition fails the session is torn
// down and the error is returned.
//
// ctx bounds device acquisition only. If it is done before the devices are
// acquired, Start returns its error at once and the session is torn down as
// soon as acquisition returns, without connecting. Once started, the
// session lasts until Stop or until the connection ends.
func (c *Controller) Start(ctx context.Context) error {
	result := make(chan error, 1)
	if !c.post(func() { c.start(ctx, result) }) {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-c.loopDone:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the current session and releases all of its resources. Stop on
// an idle controller is a no-op. It returns after the teardown completes.
func (c *Controller) Stop() {
	done := make(chan struct{})
	if !c.post(func() {
		c.teardown(c.sess, nil, ReasonStopped)
		close(done)
	}) {
		return
	}
	select {
	case <-done:
	case <-c.loopDone:
	}
}

// Close stops any session and terminates the loop.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	<-c.loopDone
	return nil
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case fn := <-c.posts:
			fn()
		case <-c.quit:
			c.teardown(c.sess, nil, ReasonStopped)
			return
		}
	}
}

// post hands fn to the loop. It reports false once the loop has exited.
func (c *Controller) post(fn func()) bool {
	select {
	case <-c.loopDone:
		return false
	default:
	}
	select {
	case c.posts <- fn:
		return true
	case <-c.loopDone:
		return false
	}
}

// postFor hands fn to the loop on behalf of s. It gives up once s has ended,
// and fn is skipped if s is no longer current when it runs.
func (c *Controller) postFor(s *session, fn func()) {
	select {
	case c.posts <- func() {
		if c.sess == s {
			fn()
		}
	}:
	case <-s.done:
	case <-c.loopDone:
	}
}

func (c *Controller) setMode(to Mode) {
	c.mu.Lock()
	from := c.mode
	c.mode = to
	c.mu.Unlock()
	if from == to {
		return
	}
	c.log.Info("mode changed", "from", from, "to", to)
	c.opts.Metrics.RecordMode(from.String(), to.String())
	if c.opts.OnModeChange != nil {
		c.opts.OnModeChange(from, to)
	}
}

func (c *Controller) start(ctx context.Context, result chan error) {
	if c.sess != nil {
		result <- ErrSessionActive
		return
	}
	s := &session{
		id:      uuid.New(),
		started: c.opts.Now(),
		done:    make(chan struct{}),
		result:  result,
	}
	c.sess = s
	c.opts.Metrics.RecordSessionStarted()
	c.log.Info("session starting", "id", s.id, "screen", c.opts.Screen)
	c.setMode(ModeConnecting)

	go c.acquire(ctx, s)
}

// acquired is the outcome of device acquisition.
type acquired struct {
	mic    capture.MicrophoneStream
	screen capture.ScreenStream
	out    Output
	err    error
}

func (a *acquired) release(log *slog.Logger) {
	err := errors.Join(
		release("microphone", closerOf(a.mic)),
		release("screen", closerOf(a.screen)),
		release("output", closerOf(a.out)),
	)
	if err != nil {
		log.Warn("release devices", "error", err)
	}
}

func (c *Controller) acquire(ctx context.Context, s *session) {
	var a acquired
	a.mic, a.err = c.opts.Devices.OpenMicrophone(ctx)
	if a.err != nil {
		a.err = fmt.Errorf("advisory: open microphone: %w", a.err)
	}
	if a.err == nil && c.opts.Screen {
		screen, err := c.opts.Devices.OpenScreen(ctx)
		if err != nil {
			c.log.Warn("screen share declined, continuing voice-only", "error", err)
		} else {
			a.screen = screen
		}
	}
	if a.err == nil {
		if a.out, a.err = c.opts.Devices.OpenOutput(ctx); a.err != nil {
			a.err = fmt.Errorf("advisory: open output: %w", a.err)
		}
	}

	delivered := c.post(func() {
		if c.sess != s {
			a.release(c.log)
			return
		}
		c.connect(ctx, s, &a)
	})
	if !delivered {
		a.release(c.log)
	}
}

// connect takes ownership of the acquired devices and opens the live
// session.
func (c *Controller) connect(ctx context.Context, s *session, a *acquired) {
	s.mic, s.screen, s.out = a.mic, a.screen, a.out
	if a.err == nil && ctx.Err() != nil {
		a.err = fmt.Errorf("advisory: start cancelled: %w", context.Cause(ctx))
	}
	if a.err != nil {
		c.teardown(s, a.err, ReasonError)
		return
	}

	s.decoder = playback.NewDecoder(c.output)
	s.sched = playback.NewScheduler(s.out,
		playback.WithDispatch(func(fn func()) { c.postFor(s, fn) }),
		playback.OnBusy(func() { c.setMode(ModeSpeaking) }),
		playback.OnIdle(func() { c.setMode(ModeListening) }),
	)
	recOpts := []transcript.RecorderOption{transcript.WithClock(c.opts.Now)}
	if c.opts.OnTranscript != nil {
		recOpts = append(recOpts, transcript.WithOnEntry(c.opts.OnTranscript))
	}
	s.recorder = transcript.NewRecorder(recOpts...)

	cfg := c.opts.Live
	s.live = live.Open(context.WithoutCancel(ctx), c.opts.Transport, &cfg, live.Handler{
		OnOpen: func() {
			c.postFor(s, func() { c.opened(s) })
		},
		OnEvent: func(ev *live.Event) {
			c.postFor(s, func() { c.handleEvent(s, ev) })
		},
		OnClose: func() {
			c.postFor(s, func() { c.teardown(s, nil, ReasonClosed) })
		},
		OnError: func(err error) {
			c.postFor(s, func() { c.teardown(s, err, ReasonError) })
		},
	})
	s.resolve(nil)
}

// opened wires the producers once the connection is established.
func (c *Controller) opened(s *session) {
	c.log.Info("session open", "id", s.id)
	c.setMode(ModeListening)

	enc := capture.NewEncoder(c.input, &countingSender{s.live, c.opts.Metrics, "audio"})
	if err := s.mic.Start(enc.Process); err != nil {
		c.teardown(s, fmt.Errorf("advisory: start microphone: %w", err), ReasonError)
		return
	}
	if s.screen != nil {
		s.sampler = capture.NewFrameSampler(s.screen, &countingSender{s.live, c.opts.Metrics, "image"}, c.opts.Sampler...)
		s.sampler.Start()
	}
}

func (c *Controller) handleEvent(s *session, ev *live.Event) {
	switch ev.Type {
	case live.EventAudio:
		c.playSegment(s, ev.Audio)
	case live.EventInterrupted:
		c.log.Debug("interrupted", "scheduled", s.sched.Len())
		s.sched.Interrupt()
		s.decoder.Reset()
		s.recorder.Flush()
		c.opts.Metrics.RecordInterruption()
		if c.Mode() == ModeSpeaking {
			c.setMode(ModeListening)
		}
	case live.EventInputTranscript:
		s.recorder.Add(transcript.RoleUser, ev.Text, ev.Finished)
	case live.EventOutputTranscript:
		s.recorder.Add(transcript.RoleAssistant, ev.Text, ev.Finished)
	case live.EventTurnComplete:
		s.recorder.Flush()
	}
}

func (c *Controller) playSegment(s *session, blob *live.Blob) {
	if blob == nil {
		return
	}
	buf, err := s.decoder.Decode(blob.MIMEType, blob.Data)
	if err != nil {
		c.log.Warn("dropping audio segment", "mime", blob.MIMEType, "bytes", len(blob.Data), "error", err)
		c.opts.Metrics.RecordSegmentDropped()
		return
	}
	now := s.out.Now()
	_, at, err := s.sched.Enqueue(buf)
	if err != nil {
		c.log.Warn("dropping audio segment", "error", err)
		c.opts.Metrics.RecordSegmentDropped()
		return
	}
	c.opts.Metrics.RecordSegment(at - now)
}

// teardown ends s. Every resource is released even if releasing another
// fails. A non-nil cause passes the mode through ModeError.
func (c *Controller) teardown(s *session, cause error, reason string) {
	if s == nil || c.sess != s {
		return
	}
	c.sess = nil
	close(s.done)

	var errs []error
	if s.sampler != nil {
		errs = append(errs, release("sampler", func() error { s.sampler.Stop(); return nil }))
	}
	if s.live != nil {
		errs = append(errs, release("live session", s.live.Close))
	}
	errs = append(errs,
		release("microphone", closerOf(s.mic)),
		release("screen", closerOf(s.screen)),
	)
	if s.sched != nil {
		errs = append(errs, release("scheduler", func() error { s.sched.Reset(); return nil }))
	}
	errs = append(errs, release("output", closerOf(s.out)))
	if err := errors.Join(errs...); err != nil {
		c.log.Warn("session teardown", "id", s.id, "error", err)
	}

	if s.recorder != nil {
		s.recorder.Flush()
		c.saveTranscript(s, reason)
	}

	if cause != nil {
		c.log.Error("session failed", "id", s.id, "error", cause)
		c.mu.Lock()
		c.lastErr = cause
		c.mu.Unlock()
		c.setMode(ModeError)
	} else {
		c.log.Info("session ended", "id", s.id, "reason", reason)
	}
	c.setMode(ModeIdle)
	c.opts.Metrics.RecordSessionEnded(reason)

	if cause == nil {
		cause = ErrStopped
	}
	s.resolve(cause)
}

func (c *Controller) saveTranscript(s *session, reason string) {
	if c.opts.Store == nil && c.opts.Archive == nil {
		return
	}
	entries := s.recorder.Entries()
	rec := &transcript.Record{
		Session: transcript.Session{
			ID:        s.id.String(),
			StartedAt: s.started,
			EndedAt:   c.opts.Now(),
			Reason:    reason,
			Model:     c.opts.Live.Model,
			Entries:   len(entries),
		},
		Entries: entries,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if c.opts.Store != nil {
		if err := c.opts.Store.Save(ctx, rec); err != nil {
			c.log.Warn("save transcript", "id", rec.Session.ID, "error", err)
		}
	}
	if c.opts.Archive != nil && len(entries) > 0 {
		if err := transcript.Export(ctx, c.opts.Archive, rec); err != nil {
			c.log.Warn("archive transcript", "id", rec.Session.ID, "error", err)
		}
	}
}

// release runs fn, converting a panic into an error.
func release(name string, fn func() error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release %s: panic: %v", name, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

type closer interface {
	Close() error
}

// closerOf returns c.Close, or nil for a nil interface.
func closerOf(c closer) func() error {
	if c == nil {
		return nil
	}
	return c.Close
}

// countingSender forwards chunks to the live session and counts them.
type countingSender struct {
	sess    *live.Session
	metrics *metrics.Metrics
	kind    string
}

func (s *countingSender) Send(chunk live.Chunk) {
	s.sess.Send(chunk)
	s.metrics.RecordChunk(s.kind)
}

package advisory

import (
	"context"
	"errors"
	"image"
	"iter"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
	"github.com/horesheladil/drlamiaiassistent/pkg/capture"
	"github.com/horesheladil/drlamiaiassistent/pkg/live"
	"github.com/horesheladil/drlamiaiassistent/pkg/playback"
	"github.com/horesheladil/drlamiaiassistent/pkg/transcript"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeMic struct {
	mu       sync.Mutex
	fn       func([]float32)
	closed   bool
	closeErr error
}

func (m *fakeMic) Start(fn func([]float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	return nil
}

func (m *fakeMic) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.fn = nil
	return m.closeErr
}

func (m *fakeMic) feed(block []float32) bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(block)
	return true
}

func (m *fakeMic) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type fakeScreen struct {
	mu     sync.Mutex
	frames int
	closed bool
	panics bool
}

func (s *fakeScreen) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	return image.NewRGBA(image.Rect(0, 0, 64, 36)), nil
}

func (s *fakeScreen) Close() error {
	s.mu.Lock()
	s.closed = true
	panics := s.panics
	s.mu.Unlock()
	if panics {
		panic("screen already gone")
	}
	return nil
}

func (s *fakeScreen) stats() (frames int, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames, s.closed
}

type fakeVoice struct {
	mu      sync.Mutex
	stopped bool
}

func (v *fakeVoice) Stop() {
	v.mu.Lock()
	v.stopped = true
	v.mu.Unlock()
}

func (v *fakeVoice) isStopped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopped
}

type started struct {
	at    time.Duration
	dur   time.Duration
	ended func()
	voice *fakeVoice
}

type fakeOutput struct {
	mu     sync.Mutex
	now    time.Duration
	starts []started
	closed bool
}

func (o *fakeOutput) Now() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.now
}

func (o *fakeOutput) setNow(d time.Duration) {
	o.mu.Lock()
	o.now = d
	o.mu.Unlock()
}

func (o *fakeOutput) Start(buf *playback.Buffer, at time.Duration, ended func()) (playback.Voice, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v := &fakeVoice{}
	o.starts = append(o.starts, started{at: at, dur: buf.Duration(), ended: ended, voice: v})
	return v, nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *fakeOutput) started() []started {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.starts)
}

func (o *fakeOutput) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

type fakeDevices struct {
	mic    *fakeMic
	screen *fakeScreen
	out    *fakeOutput

	micErr    error
	screenErr error
	outErr    error

	// micGate, if set, holds OpenMicrophone until it is closed.
	micGate chan struct{}

	mu          sync.Mutex
	outputsOpen int
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{mic: &fakeMic{}, screen: &fakeScreen{}, out: &fakeOutput{}}
}

func (d *fakeDevices) OpenMicrophone(ctx context.Context) (capture.MicrophoneStream, error) {
	if d.micGate != nil {
		<-d.micGate
	}
	if d.micErr != nil {
		return nil, d.micErr
	}
	return d.mic, nil
}

func (d *fakeDevices) OpenScreen(ctx context.Context) (capture.ScreenStream, error) {
	if d.screenErr != nil {
		return nil, d.screenErr
	}
	return d.screen, nil
}

func (d *fakeDevices) OpenOutput(ctx context.Context) (Output, error) {
	if d.outErr != nil {
		return nil, d.outErr
	}
	d.mu.Lock()
	d.outputsOpen++
	d.mu.Unlock()
	return d.out, nil
}

type eventOrError struct {
	event *live.Event
	err   error
}

type fakeConn struct {
	mu     sync.Mutex
	sent   []live.Chunk
	events chan eventOrError
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		events: make(chan eventOrError, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Send(ctx context.Context, chunk live.Chunk) error {
	c.mu.Lock()
	c.sent = append(c.sent, chunk)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Events() iter.Seq2[*live.Event, error] {
	return func(yield func(*live.Event, error) bool) {
		for {
			select {
			case <-c.closed:
				return
			case item, ok := <-c.events:
				if !ok {
					return
				}
				if !yield(item.event, item.err) || item.err != nil {
					return
				}
			}
		}
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sentChunks() []live.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sent)
}

func (c *fakeConn) emit(ev *live.Event) {
	c.events <- eventOrError{event: ev}
}

type fakeTransport struct {
	mu       sync.Mutex
	conn     *fakeConn
	connects int
}

func (t *fakeTransport) Connect(ctx context.Context, cfg *live.Config) (live.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connects++
	return t.conn, nil
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type modeLog struct {
	mu    sync.Mutex
	modes []Mode
}

func (l *modeLog) record(from, to Mode) {
	l.mu.Lock()
	l.modes = append(l.modes, to)
	l.mu.Unlock()
}

func (l *modeLog) get() []Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.modes)
}

type harness struct {
	ctrl      *Controller
	devices   *fakeDevices
	conn      *fakeConn
	transport *fakeTransport
	modes     *modeLog
}

func newHarness(t *testing.T, configure func(*Options, *fakeDevices)) *harness {
	t.Helper()
	h := &harness{
		devices: newFakeDevices(),
		conn:    newFakeConn(),
		modes:   &modeLog{},
	}
	h.transport = &fakeTransport{conn: h.conn}
	opts := Options{
		Devices:      h.devices,
		Transport:    h.transport,
		Live:         live.Config{APIKey: "test-key"},
		OnModeChange: h.modes.record,
	}
	if configure != nil {
		configure(&opts, h.devices)
	}
	ctrl, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.ctrl = ctrl
	t.Cleanup(func() { ctrl.Close() })
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) waitMode(t *testing.T, want Mode) {
	t.Helper()
	waitFor(t, "mode "+want.String(), func() bool { return h.ctrl.Mode() == want })
}

func (h *harness) startListening(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.waitMode(t, ModeListening)
}

// segment returns an audio event of d at 24 kHz.
func segment(d time.Duration) *live.Event {
	n := pcm.L16Mono24K.SamplesInDuration(d)
	return &live.Event{
		Type:  live.EventAudio,
		Audio: &live.Blob{MIMEType: "audio/pcm;rate=24000", Data: make([]byte, 2*n)},
	}
}

func (h *harness) waitStarted(t *testing.T, n int) []started {
	t.Helper()
	waitFor(t, "scheduled segments", func() bool { return len(h.devices.out.started()) >= n })
	return h.devices.out.started()
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeIdle, "idle"},
		{ModeConnecting, "connecting"},
		{ModeListening, "listening"},
		{ModeSpeaking, "speaking"},
		{ModeError, "error"},
	}
	for _, tc := range tests {
		if got := tc.mode.String(); got != tc.want {
			t.Errorf("Mode(%d).String() = %q; want %q", tc.mode, got, tc.want)
		}
		var m Mode
		if err := m.UnmarshalText([]byte(tc.want)); err != nil || m != tc.mode {
			t.Errorf("UnmarshalText(%q) = %v, %v", tc.want, m, err)
		}
	}
	var m Mode
	if err := m.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNewRequiresDevicesAndTransport(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error")
	}
	_, err := New(Options{Devices: newFakeDevices(), Transport: &fakeTransport{}, OutputRate: 44100})
	if err == nil {
		t.Fatal("expected error for unsupported rate")
	}
}

func TestStopWhileIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Stop()
	h.ctrl.Stop()
	if got := h.ctrl.Mode(); got != ModeIdle {
		t.Fatalf("mode = %v", got)
	}
	if got := h.modes.get(); len(got) != 0 {
		t.Fatalf("mode changes = %v; want none", got)
	}
}

func TestScreenDeclinedStillListens(t *testing.T) {
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		o.Screen = true
		d.screenErr = errors.New("permission denied")
	})
	h.startListening(t)

	if !h.devices.mic.feed(make([]float32, capture.DefaultBlockSize)) {
		t.Fatal("microphone not started")
	}
	waitFor(t, "audio chunk", func() bool { return len(h.conn.sentChunks()) == 1 })
	chunk := h.conn.sentChunks()[0]
	if chunk.MIMEType != "audio/pcm;rate=16000" || len(chunk.Data) != 2*capture.DefaultBlockSize {
		t.Fatalf("chunk = %s, %d bytes", chunk.MIMEType, len(chunk.Data))
	}
}

func TestSingleSegment(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	h.conn.emit(segment(500 * time.Millisecond))
	starts := h.waitStarted(t, 1)
	if starts[0].at != 0 || starts[0].dur != 500*time.Millisecond {
		t.Fatalf("scheduled at %v for %v", starts[0].at, starts[0].dur)
	}
	h.waitMode(t, ModeSpeaking)

	h.devices.out.setNow(500 * time.Millisecond)
	starts[0].ended()
	h.waitMode(t, ModeListening)

	want := []Mode{ModeConnecting, ModeListening, ModeSpeaking, ModeListening}
	if got := h.modes.get(); !slices.Equal(got, want) {
		t.Fatalf("modes = %v; want %v", got, want)
	}
}

func TestSegmentsAreContiguous(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	h.devices.out.setNow(100 * time.Millisecond)
	durs := []time.Duration{200 * time.Millisecond, 300 * time.Millisecond, 100 * time.Millisecond}
	for _, d := range durs {
		h.conn.emit(segment(d))
	}
	starts := h.waitStarted(t, len(durs))

	want := 100 * time.Millisecond
	for i, s := range starts {
		if s.at != want {
			t.Errorf("segment %d at %v; want %v", i, s.at, want)
		}
		want += s.dur
	}

	// Ending the first segment keeps the controller speaking.
	starts[0].ended()
	starts[1].ended()
	time.Sleep(10 * time.Millisecond)
	if got := h.ctrl.Mode(); got != ModeSpeaking {
		t.Fatalf("mode = %v; want speaking", got)
	}
	starts[2].ended()
	h.waitMode(t, ModeListening)
}

func TestInterruptWithQueuedSegments(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	h.conn.emit(segment(400 * time.Millisecond))
	h.conn.emit(segment(400 * time.Millisecond))
	starts := h.waitStarted(t, 2)
	h.waitMode(t, ModeSpeaking)

	h.conn.emit(&live.Event{Type: live.EventInterrupted})
	h.waitMode(t, ModeListening)
	for i, s := range starts {
		if !s.voice.isStopped() {
			t.Errorf("segment %d still playing", i)
		}
	}

	// A late ended notification of a flushed segment changes nothing.
	starts[0].ended()

	// The next segment is scheduled fresh from the output clock.
	h.devices.out.setNow(3 * time.Second)
	h.conn.emit(segment(100 * time.Millisecond))
	starts = h.waitStarted(t, 3)
	if starts[2].at != 3*time.Second {
		t.Fatalf("segment after interrupt at %v; want 3s", starts[2].at)
	}
	h.waitMode(t, ModeSpeaking)
}

func TestDecodeFailureDropsSegment(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	h.conn.emit(&live.Event{Type: live.EventAudio, Audio: &live.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 2, 3}}})
	h.conn.emit(&live.Event{Type: live.EventAudio, Audio: &live.Blob{MIMEType: "audio/mpeg", Data: []byte{1, 2}}})
	h.conn.emit(segment(100 * time.Millisecond))

	starts := h.waitStarted(t, 1)
	if len(starts) != 1 || starts[0].dur != 100*time.Millisecond {
		t.Fatalf("starts = %+v", starts)
	}
	h.waitMode(t, ModeSpeaking)
}

func TestDoubleStart(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	if err := h.ctrl.Start(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("second Start = %v; want ErrSessionActive", err)
	}
	if got := h.transport.count(); got != 1 {
		t.Fatalf("connects = %d; want 1", got)
	}
	if got := h.ctrl.Mode(); got != ModeListening {
		t.Fatalf("mode = %v", got)
	}
}

func TestStopReleasesEverything(t *testing.T) {
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		o.Screen = true
		o.Sampler = []capture.SamplerOption{capture.WithInterval(2 * time.Millisecond)}
	})
	h.startListening(t)

	waitFor(t, "screen frames", func() bool {
		frames, _ := h.devices.screen.stats()
		return frames > 0
	})
	h.conn.emit(segment(time.Second))
	starts := h.waitStarted(t, 1)
	h.waitMode(t, ModeSpeaking)

	h.ctrl.Stop()
	if got := h.ctrl.Mode(); got != ModeIdle {
		t.Fatalf("mode = %v", got)
	}
	frames, screenClosed := h.devices.screen.stats()
	if !h.devices.mic.isClosed() || !screenClosed || !h.devices.out.isClosed() || !h.conn.isClosed() {
		t.Fatal("resource left open")
	}
	if !starts[0].voice.isStopped() {
		t.Fatal("segment still playing")
	}
	time.Sleep(10 * time.Millisecond)
	if after, _ := h.devices.screen.stats(); after != frames {
		t.Fatalf("sampler still running: %d -> %d frames", frames, after)
	}
	if h.devices.mic.feed(make([]float32, 16)) {
		t.Fatal("microphone still delivering")
	}

	// A new session can start after stop.
	h.devices.mic = &fakeMic{}
	h.conn = newFakeConn()
	h.transport.mu.Lock()
	h.transport.conn = h.conn
	h.transport.mu.Unlock()
	h.devices.out = &fakeOutput{}
	h.startListening(t)
}

func TestReleaseFailuresAreIndependent(t *testing.T) {
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		o.Screen = true
		d.mic.closeErr = errors.New("mic busy")
		d.screen.panics = true
	})
	h.startListening(t)

	h.ctrl.Stop()
	if !h.devices.out.isClosed() || !h.conn.isClosed() {
		t.Fatal("output or connection left open")
	}
	if got := h.ctrl.Mode(); got != ModeIdle {
		t.Fatalf("mode = %v", got)
	}
}

func TestMicrophoneDenied(t *testing.T) {
	denied := errors.New("permission denied")
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		d.micErr = denied
	})

	err := h.ctrl.Start(context.Background())
	if !errors.Is(err, denied) {
		t.Fatalf("Start = %v; want %v", err, denied)
	}
	if got := h.ctrl.Mode(); got != ModeIdle {
		t.Fatalf("mode = %v", got)
	}
	want := []Mode{ModeConnecting, ModeError, ModeIdle}
	if got := h.modes.get(); !slices.Equal(got, want) {
		t.Fatalf("modes = %v; want %v", got, want)
	}
	if !errors.Is(h.ctrl.LastError(), denied) {
		t.Fatalf("LastError = %v", h.ctrl.LastError())
	}
	if h.transport.count() != 0 || h.devices.outputsOpen != 0 {
		t.Fatal("session continued after microphone failure")
	}
}

func TestStartCancelledDuringAcquisition(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		d.micGate = gate
	})

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan error, 1)
	go func() { started <- h.ctrl.Start(ctx) }()
	waitFor(t, "connecting", func() bool { return h.ctrl.Mode() == ModeConnecting })
	cancel()

	select {
	case err := <-started:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start = %v; want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	// The microphone opens only after the caller gave up.
	close(gate)
	waitFor(t, "idle", func() bool {
		return h.ctrl.Mode() == ModeIdle && h.devices.mic.isClosed()
	})
	if h.transport.count() != 0 {
		t.Fatalf("connected %d times after a cancelled start", h.transport.count())
	}
	if !errors.Is(h.ctrl.LastError(), context.Canceled) {
		t.Fatalf("LastError = %v", h.ctrl.LastError())
	}
	want := []Mode{ModeConnecting, ModeError, ModeIdle}
	if got := h.modes.get(); !slices.Equal(got, want) {
		t.Fatalf("modes = %v; want %v", got, want)
	}

	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, "listening", func() bool { return h.ctrl.Mode() == ModeListening })
}

func TestOutputFailureReleasesMicrophone(t *testing.T) {
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		d.outErr = errors.New("no speaker")
	})
	if err := h.ctrl.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !h.devices.mic.isClosed() {
		t.Fatal("microphone left open")
	}
}

func TestConnectionErrorTearsDown(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	apiErr := &live.Error{Code: "UNAVAILABLE", Message: "backend restarting", HTTPStatus: 503}
	h.conn.events <- eventOrError{err: apiErr}
	h.waitMode(t, ModeIdle)

	want := []Mode{ModeConnecting, ModeListening, ModeError, ModeIdle}
	if got := h.modes.get(); !slices.Equal(got, want) {
		t.Fatalf("modes = %v; want %v", got, want)
	}
	var le *live.Error
	if !errors.As(h.ctrl.LastError(), &le) || le.HTTPStatus != 503 {
		t.Fatalf("LastError = %v", h.ctrl.LastError())
	}
	if !h.devices.mic.isClosed() || !h.devices.out.isClosed() {
		t.Fatal("devices left open")
	}
}

func TestMissingAPIKey(t *testing.T) {
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		o.Live.APIKey = ""
	})
	if err := h.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.waitMode(t, ModeIdle)
	if !errors.Is(h.ctrl.LastError(), live.ErrNoAPIKey) {
		t.Fatalf("LastError = %v", h.ctrl.LastError())
	}
	if !h.devices.mic.isClosed() {
		t.Fatal("microphone left open")
	}
}

func TestRemoteCloseReturnsToIdle(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	close(h.conn.events)
	h.waitMode(t, ModeIdle)
	if slices.Contains(h.modes.get(), ModeError) {
		t.Fatalf("modes = %v; remote close is not an error", h.modes.get())
	}
}

func TestTranscriptSavedOnStop(t *testing.T) {
	store := transcript.NewMemory()
	var (
		mu      sync.Mutex
		entries []transcript.Entry
	)
	h := newHarness(t, func(o *Options, d *fakeDevices) {
		o.Store = store
		o.Live.Model = "test-model"
		o.OnTranscript = func(e transcript.Entry) {
			mu.Lock()
			entries = append(entries, e)
			mu.Unlock()
		}
	})
	h.startListening(t)

	h.conn.emit(&live.Event{Type: live.EventInputTranscript, Text: "How do I talk to my heirs", Finished: false})
	h.conn.emit(&live.Event{Type: live.EventInputTranscript, Text: " about money?", Finished: true})
	h.conn.emit(&live.Event{Type: live.EventOutputTranscript, Text: "Start with values."})
	h.conn.emit(&live.Event{Type: live.EventTurnComplete})
	waitFor(t, "transcript entries", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(entries) == 2
	})

	h.ctrl.Stop()

	var sessions []transcript.Session
	for s, err := range store.Sessions(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		sessions = append(sessions, s)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d; want 1", len(sessions))
	}
	rec, err := store.Load(context.Background(), sessions[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Session.Reason != ReasonStopped || rec.Session.Model != "test-model" || rec.Session.Entries != 2 {
		t.Fatalf("session = %+v", rec.Session)
	}
	if rec.Entries[0].Role != transcript.RoleUser || rec.Entries[0].Text != "How do I talk to my heirs about money?" {
		t.Fatalf("entry 0 = %+v", rec.Entries[0])
	}
	if rec.Entries[1].Role != transcript.RoleAssistant {
		t.Fatalf("entry 1 = %+v", rec.Entries[1])
	}
}

func TestCloseStopsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.startListening(t)

	if err := h.ctrl.Close(); err != nil {
		t.Fatal(err)
	}
	if got := h.ctrl.Mode(); got != ModeIdle {
		t.Fatalf("mode = %v", got)
	}
	if !h.devices.mic.isClosed() {
		t.Fatal("microphone left open")
	}
	if err := h.ctrl.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close = %v", err)
	}
	h.ctrl.Stop()
}

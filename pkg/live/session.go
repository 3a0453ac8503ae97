package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handler receives session lifecycle notifications. Nil callbacks are
// skipped.
type Handler struct {
	OnOpen  func()
	OnEvent func(*Event)
	OnClose func()
	OnError func(error)
}

// Session is a live session opened with Open.
type Session struct {
	transport Transport
	cfg       *Config
	handler   Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    Conn
	pending []Chunk
	notify  chan struct{}
	closed  bool

	finishOnce sync.Once
	done       chan struct{}
}

// Open starts connecting in the background and returns immediately. The
// handler's OnOpen is called once the connection is established; a failure
// to connect, including a missing API key, is reported through OnError.
func Open(ctx context.Context, t Transport, cfg *Config, h Handler) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		transport: t,
		cfg:       cfg,
		handler:   h,
		ctx:       ctx,
		cancel:    cancel,
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Send queues a chunk for transmission. It never blocks. Chunks sent before
// the connection opens are flushed in order once it does; chunks sent after
// Close are dropped.
func (s *Session) Send(chunk Chunk) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, chunk)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Close closes the session and discards any queued chunks. Events arriving
// after Close are not delivered and neither OnClose nor OnError is called.
// It is safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.pending = nil
	conn := s.conn
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Done is closed when the session has terminated, either by Close or by the
// connection ending.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) run() {
	defer close(s.done)

	if s.cfg.APIKey == "" {
		s.finish(ErrNoAPIKey)
		return
	}

	conn, err := s.transport.Connect(s.ctx, s.cfg)
	if err != nil {
		s.finish(err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	slog.Debug("live session open", "model", s.cfg.model())
	if s.handler.OnOpen != nil {
		s.handler.OnOpen()
	}

	go s.writeLoop(conn)

	for ev, err := range conn.Events() {
		if err != nil {
			s.finish(err)
			conn.Close()
			return
		}
		if s.isClosed() {
			return
		}
		if s.handler.OnEvent != nil {
			s.handler.OnEvent(ev)
		}
	}
	s.finish(nil)
	conn.Close()
}

// writeLoop drains the pending queue in order until the session ends.
func (s *Session) writeLoop(conn Conn) {
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return
		}
		for _, chunk := range batch {
			if err := conn.Send(s.ctx, chunk); err != nil {
				if !s.isClosed() {
					slog.Debug("live send failed", "mime", chunk.MIMEType, "error", err)
				}
				// The connection cannot carry input any more; end the
				// session so callers stop queueing.
				s.finish(fmt.Errorf("live: send %s: %w", chunk.MIMEType, err))
				conn.Close()
				return
			}
		}

		select {
		case <-s.ctx.Done():
			return
		case <-s.done:
			return
		case <-s.notify:
		}
	}
}

// finish reports the terminal condition once, unless the session was closed
// locally.
func (s *Session) finish(err error) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		closed := s.closed
		s.closed = true
		s.pending = nil
		s.mu.Unlock()
		s.cancel()

		if closed {
			return
		}
		if err != nil {
			slog.Debug("live session error", "error", err)
			if s.handler.OnError != nil {
				s.handler.OnError(err)
			}
			return
		}
		slog.Debug("live session closed by server")
		if s.handler.OnClose != nil {
			s.handler.OnClose()
		}
	})
}

package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWebSocketURL is the BidiGenerateContent endpoint of the Gemini API.
const DefaultWebSocketURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// WebSocket connects by speaking the BidiGenerateContent protocol directly.
type WebSocket struct {
	// URL overrides DefaultWebSocketURL.
	URL string

	// Dialer overrides websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

var _ Transport = WebSocket{}

// Connect implements Transport. It dials, sends the setup message and waits
// for setupComplete before returning.
func (w WebSocket) Connect(ctx context.Context, cfg *Config) (Conn, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	url := w.URL
	if url == "" {
		url = DefaultWebSocketURL
	}
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	headers := http.Header{}
	headers.Set("x-goog-api-key", cfg.APIKey)

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("live: failed to connect: %w", err)
	}

	c := &wsConn{
		conn:     conn,
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 100),
	}
	if err := c.writeJSON(setupMessage(cfg)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("live: send setup: %w", err)
	}
	if err := c.awaitSetup(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

type wsConn struct {
	conn      *websocket.Conn
	closeCh   chan struct{}
	eventsCh  chan eventOrError
	closeOnce sync.Once
	mu        sync.Mutex
}

type eventOrError struct {
	event *Event
	err   error
}

func (c *wsConn) Send(ctx context.Context, chunk Chunk) error {
	select {
	case <-c.closeCh:
		return ErrClosed
	default:
	}
	return c.writeJSON(realtimeInputMessage(chunk))
}

func (c *wsConn) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			select {
			case <-c.closeCh:
				return
			case item, ok := <-c.eventsCh:
				if !ok {
					return
				}
				if !yield(item.event, item.err) {
					return
				}
				if item.err != nil {
					return
				}
			}
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if b, err := json.Marshal(v); err == nil {
			str := string(b)
			if len(str) > 500 {
				str = str[:500] + "..."
			}
			slog.Debug("sending message", "content", str)
		}
	}
	return c.conn.WriteJSON(v)
}

// awaitSetup reads until setupComplete. Other messages before it are
// ignored.
func (c *wsConn) awaitSetup(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(time.Time{})
	}
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				return &Error{Code: "setup_rejected", Message: ce.Text}
			}
			return fmt.Errorf("live: await setup: %w", err)
		}
		var msg serverMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return fmt.Errorf("live: parse setup response: %w", err)
		}
		if msg.Error != nil {
			return msg.Error
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

func (c *wsConn) readLoop() {
	defer close(c.eventsCh)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
				return
			default:
			}
			if isNormalClose(err) {
				return
			}
			select {
			case <-c.closeCh:
			case c.eventsCh <- eventOrError{err: fmt.Errorf("read error: %w", err)}:
			}
			return
		}

		if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
			msgStr := string(message)
			if len(msgStr) > 1000 {
				msgStr = msgStr[:1000] + "..."
			}
			slog.Debug("received message", "len", len(message), "content", msgStr)
		}

		var msg serverMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Warn("live: dropping unparsable message", "error", err)
			continue
		}
		if msg.Error != nil {
			select {
			case <-c.closeCh:
			case c.eventsCh <- eventOrError{err: msg.Error}:
			}
			return
		}
		if msg.GoAway != nil {
			slog.Warn("live server going away", "time_left", msg.GoAway.TimeLeft)
		}
		for _, ev := range msg.events() {
			select {
			case <-c.closeCh:
				return
			case c.eventsCh <- eventOrError{event: ev}:
			}
		}
	}
}

// Wire messages, following the BidiGenerateContent JSON mapping.

func modelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func setupMessage(cfg *Config) map[string]any {
	setup := map[string]any{
		"model": modelPath(cfg.model()),
		"generationConfig": map[string]any{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]any{
				"voiceConfig": map[string]any{
					"prebuiltVoiceConfig": map[string]any{
						"voiceName": cfg.voice(),
					},
				},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		setup["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": cfg.SystemInstruction}},
		}
	}
	if cfg.Transcription {
		setup["inputAudioTranscription"] = map[string]any{}
		setup["outputAudioTranscription"] = map[string]any{}
	}
	return map[string]any{"setup": setup}
}

func realtimeInputMessage(chunk Chunk) map[string]any {
	key := "video"
	if chunk.IsAudio() {
		key = "audio"
	}
	return map[string]any{
		"realtimeInput": map[string]any{
			key: map[string]any{
				"mimeType": chunk.MIMEType,
				"data":     base64.StdEncoding.EncodeToString(chunk.Data),
			},
		},
	}
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	GoAway        *struct {
		TimeLeft string `json:"timeLeft,omitempty"`
	} `json:"goAway,omitempty"`
	Error *Error `json:"error,omitempty"`
}

type serverContent struct {
	ModelTurn *struct {
		Parts []struct {
			Text       string `json:"text,omitempty"`
			InlineData *struct {
				MimeType string `json:"mimeType,omitempty"`
				Data     string `json:"data,omitempty"`
			} `json:"inlineData,omitempty"`
		} `json:"parts,omitempty"`
	} `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text     string `json:"text,omitempty"`
	Finished bool   `json:"finished,omitempty"`
}

// events flattens the message in the same order as convertServerContent.
// Inline data that is not valid base64 is logged and dropped.
func (m *serverMessage) events() []*Event {
	sc := m.ServerContent
	if sc == nil {
		return nil
	}
	var events []*Event
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				slog.Warn("live: dropping undecodable inline data", "mime", p.InlineData.MimeType, "error", err)
				continue
			}
			events = append(events, &Event{
				Type:  EventAudio,
				Audio: &Blob{MIMEType: p.InlineData.MimeType, Data: data},
			})
		}
	}
	if t := sc.InputTranscription; t != nil && (t.Text != "" || t.Finished) {
		events = append(events, &Event{Type: EventInputTranscript, Text: t.Text, Finished: t.Finished})
	}
	if t := sc.OutputTranscription; t != nil && (t.Text != "" || t.Finished) {
		events = append(events, &Event{Type: EventOutputTranscript, Text: t.Text, Finished: t.Finished})
	}
	if sc.Interrupted {
		events = append(events, &Event{Type: EventInterrupted})
	}
	if sc.TurnComplete {
		events = append(events, &Event{Type: EventTurnComplete})
	}
	return events
}

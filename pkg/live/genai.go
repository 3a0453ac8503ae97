package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net"
	"sync"

	"github.com/googleapis/gax-go/v2/apierror"
	"github.com/gorilla/websocket"
	"google.golang.org/genai"
)

// GenAI connects through the google.golang.org/genai SDK.
type GenAI struct {
	// HTTPOptions overrides the SDK's HTTP settings, e.g. the base URL.
	HTTPOptions genai.HTTPOptions
}

var _ Transport = GenAI{}

// Connect implements Transport.
func (g GenAI) Connect(ctx context.Context, cfg *Config) (Conn, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: g.HTTPOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("live: create client: %w", err)
	}
	sess, err := client.Live.Connect(ctx, cfg.model(), genaiConnectConfig(cfg))
	if err != nil {
		return nil, convertGenAIError(err)
	}
	return &genaiConn{sess: sess, closeCh: make(chan struct{})}, nil
}

func genaiConnectConfig(cfg *Config) *genai.LiveConnectConfig {
	lc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.voice()},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.Transcription {
		lc.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
		lc.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return lc
}

func convertGenAIError(err error) error {
	if e, ok := err.(*apierror.APIError); ok {
		err = e.Unwrap()
	}
	var ae genai.APIError
	if errors.As(err, &ae) {
		return &Error{Code: ae.Status, Message: ae.Message, HTTPStatus: ae.Code}
	}
	return fmt.Errorf("live: connect: %w", err)
}

type genaiConn struct {
	sess      *genai.Session
	mu        sync.Mutex
	closeCh   chan struct{}
	closeOnce sync.Once
}

func (c *genaiConn) Send(ctx context.Context, chunk Chunk) error {
	select {
	case <-c.closeCh:
		return ErrClosed
	default:
	}
	blob := &genai.Blob{MIMEType: chunk.MIMEType, Data: chunk.Data}
	var in genai.LiveRealtimeInput
	if chunk.IsAudio() {
		in.Audio = blob
	} else {
		in.Video = blob
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.SendRealtimeInput(in)
}

func (c *genaiConn) Events() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			msg, err := c.sess.Receive()
			if err != nil {
				select {
				case <-c.closeCh:
					return
				default:
				}
				if isNormalClose(err) {
					return
				}
				yield(nil, err)
				return
			}
			if msg.GoAway != nil {
				slog.Warn("live server going away", "time_left", msg.GoAway.TimeLeft)
			}
			for _, ev := range convertServerContent(msg.ServerContent) {
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}

func (c *genaiConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.sess.Close()
	})
	return err
}

// convertServerContent flattens one server message into events. Audio parts
// come first so that an interruption in the same message cancels them.
func convertServerContent(sc *genai.LiveServerContent) []*Event {
	if sc == nil {
		return nil
	}
	var events []*Event
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			events = append(events, &Event{
				Type:  EventAudio,
				Audio: &Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data},
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

// isNormalClose reports whether err is the server ending the stream cleanly.
func isNormalClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway
	}
	return false
}

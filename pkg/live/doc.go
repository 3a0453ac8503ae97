// Package live is a client for the Gemini Live bidirectional audio endpoint.
//
// A Session is opened asynchronously: Open returns immediately and the
// connection is established in the background. Chunks sent before the
// connection is open are queued and flushed in submission order once it
// opens; chunks sent after Close are dropped.
//
// Two transports are provided:
//
//   - GenAI uses the google.golang.org/genai SDK (default).
//   - WebSocket speaks the BidiGenerateContent JSON protocol directly and
//     allows a custom endpoint, e.g. a proxy.
//
// Example usage:
//
//	s := live.Open(ctx, live.GenAI{}, &live.Config{APIKey: key}, live.Handler{
//		OnOpen:  func() { ... },
//		OnEvent: func(ev *live.Event) { ... },
//		OnClose: func() { ... },
//		OnError: func(err error) { ... },
//	})
//	s.Send(live.Chunk{MIMEType: "audio/pcm;rate=16000", Data: pcm})
//	defer s.Close()
//
// Handler callbacks are invoked from the session's receive goroutine, in the
// order the server delivered the messages. Close and error are terminal:
// exactly one of OnClose and OnError is called, and the session never
// reconnects.
package live

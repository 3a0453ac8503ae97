package live

import "strings"

// EventType identifies the kind of inbound event.
type EventType string

const (
	// EventAudio carries a segment of synthesized audio.
	EventAudio EventType = "audio"

	// EventInterrupted signals that the model's current output was cut off,
	// typically because the client started speaking.
	EventInterrupted EventType = "interrupted"

	// EventTurnComplete signals that the model finished its turn.
	EventTurnComplete EventType = "turn_complete"

	// EventInputTranscript carries transcribed text of the client's speech.
	EventInputTranscript EventType = "input_transcript"

	// EventOutputTranscript carries transcribed text of the model's speech.
	EventOutputTranscript EventType = "output_transcript"
)

// Chunk is one unit of outbound media.
type Chunk struct {
	MIMEType string
	Data     []byte
}

// IsAudio reports whether the chunk carries audio.
func (c Chunk) IsAudio() bool {
	return strings.HasPrefix(c.MIMEType, "audio/")
}

// Blob is inline media received from the server.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Event is an inbound event.
type Event struct {
	Type EventType

	// Audio is set for EventAudio.
	Audio *Blob

	// Text and Finished are set for transcript events.
	Text     string
	Finished bool
}

package capture

import (
	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
	"github.com/horesheladil/drlamiaiassistent/pkg/live"
)

// DefaultBlockSize is the number of samples per captured block.
const DefaultBlockSize = 4096

// Encoder converts captured float blocks to L16 chunks and forwards each one
// immediately. There is no buffering across blocks.
type Encoder struct {
	format pcm.Format
	sink   Sender
}

// NewEncoder creates an Encoder for blocks captured at format's rate. A nil
// sink makes Process drop every block.
func NewEncoder(format pcm.Format, sink Sender) *Encoder {
	return &Encoder{format: format, sink: sink}
}

// Encode converts one block into a chunk.
func (e *Encoder) Encode(block []float32) live.Chunk {
	return live.Chunk{
		MIMEType: e.format.MIMEType(),
		Data:     pcm.EncodeFloat32(block),
	}
}

// Process encodes one block and sends it.
func (e *Encoder) Process(block []float32) {
	if e.sink == nil {
		return
	}
	e.sink.Send(e.Encode(block))
}

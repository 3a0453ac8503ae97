// Package capture turns microphone blocks and screen frames into outbound
// live chunks.
package capture

import (
	"errors"
	"image"

	"github.com/horesheladil/drlamiaiassistent/pkg/live"
)

// ErrFrameNotReady is returned by ScreenStream.Frame when no frame is
// available yet. The sampler skips the tick.
var ErrFrameNotReady = errors.New("capture: frame not ready")

// Sender accepts outbound chunks without blocking. *live.Session satisfies
// it.
type Sender interface {
	Send(chunk live.Chunk)
}

// MicrophoneStream is an acquired microphone.
type MicrophoneStream interface {
	// Start begins delivering fixed-size blocks of mono float samples in
	// [-1, 1] to fn, in capture order, from a goroutine owned by the stream.
	Start(fn func(block []float32)) error

	// Close stops capture and releases the device.
	Close() error
}

// ScreenStream is an acquired screen-share source.
type ScreenStream interface {
	// Frame returns the current frame, or ErrFrameNotReady.
	Frame() (image.Image, error)

	// Close releases the source.
	Close() error
}

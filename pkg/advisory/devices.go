package advisory

import (
	"context"

	"github.com/horesheladil/drlamiaiassistent/pkg/capture"
	"github.com/horesheladil/drlamiaiassistent/pkg/playback"
)

// Output is an opened playback device.
type Output interface {
	playback.Output

	// Close stops playback and releases the device.
	Close() error
}

// Devices acquires the capture and playback devices of a session.
type Devices interface {
	// OpenMicrophone acquires the microphone. Blocks must be delivered at the
	// controller's input format. A failure aborts the session.
	OpenMicrophone(ctx context.Context) (capture.MicrophoneStream, error)

	// OpenScreen acquires a screen-share source. A failure means the user
	// declined; the session continues voice-only.
	OpenScreen(ctx context.Context) (capture.ScreenStream, error)

	// OpenOutput opens the playback device at the controller's output
	// format.
	OpenOutput(ctx context.Context) (Output, error)
}

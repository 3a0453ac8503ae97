package device

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
	"github.com/horesheladil/drlamiaiassistent/pkg/playback"
)

// DefaultFrameDuration is the amount of audio rendered per device write.
const DefaultFrameDuration = 20 * time.Millisecond

// SampleWriter is a playback stream. Write blocks until the device has
// accepted the samples, which paces the render loop.
type SampleWriter interface {
	Write(samples []int16) error
	Close() error
}

// Speaker renders scheduled buffers into a playback stream. Its clock is
// the amount of audio handed to the stream.
type Speaker struct {
	r   *playback.Renderer
	dst SampleWriter

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
	err       error
}

// NewSpeaker starts rendering to dst at format in frames of frame
// duration.
func NewSpeaker(dst SampleWriter, format pcm.Format, frame time.Duration, opts ...playback.RendererOption) *Speaker {
	if frame <= 0 {
		frame = DefaultFrameDuration
	}
	s := &Speaker{
		r:    playback.NewRenderer(format, opts...),
		dst:  dst,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.loop(int(format.SamplesInDuration(frame)))
	return s
}

// Now implements playback.Clock.
func (s *Speaker) Now() time.Duration {
	return s.r.Now()
}

// Start implements playback.Output.
func (s *Speaker) Start(buf *playback.Buffer, at time.Duration, ended func()) (playback.Voice, error) {
	return s.r.Start(buf, at, ended)
}

func (s *Speaker) loop(n int) {
	defer close(s.done)
	mix := make([]float32, n)
	out := make([]int16, n)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		finished := s.r.Render(mix)
		for i, v := range mix {
			out[i] = pcm.FloatToInt16(v)
		}
		if err := s.dst.Write(out); err != nil {
			if !errors.Is(err, io.ErrClosedPipe) {
				slog.Warn("speaker write failed", "error", err)
				s.err = err
			}
			return
		}
		// A voice has ended only once its last frame reached the device.
		finished.Run()
	}
}

// Close stops playback and waits for the render loop to exit. It returns
// the write error that stopped the loop early, if any.
func (s *Speaker) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.dst.Close()
		<-s.done
		err = errors.Join(err, s.err)
	})
	return err
}

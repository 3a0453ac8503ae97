package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
)

// ErrFormatMismatch is returned when a buffer does not match the Renderer's
// format.
var ErrFormatMismatch = errors.New("playback: buffer format mismatch")

// RendererOption is an option for configuring a Renderer.
type RendererOption interface {
	apply(*Renderer)
}

type gainOption float32

func (o gainOption) apply(r *Renderer) {
	r.gain = float32(o)
}

// WithGain scales the mixed output. Defaults to 1.
func WithGain(gain float32) RendererOption {
	return gainOption(gain)
}

// Renderer mixes scheduled buffers into a continuous sample stream. Its
// clock is the number of samples rendered so far.
//
// It is safe to call methods on Renderer from multiple goroutines.
type Renderer struct {
	format pcm.Format
	gain   float32

	mu     sync.Mutex
	pos    int64
	voices []*rendererVoice
}

type rendererVoice struct {
	r       *Renderer
	start   int64
	samples []float32
	ended   func()
}

// NewRenderer creates a Renderer for the given format.
func NewRenderer(format pcm.Format, opts ...RendererOption) *Renderer {
	r := &Renderer{format: format, gain: 1}
	for _, opt := range opts {
		opt.apply(r)
	}
	return r
}

// Format returns the output format.
func (r *Renderer) Format() pcm.Format {
	return r.format
}

// Now implements Clock.
func (r *Renderer) Now() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.format.SampleDuration(r.pos)
}

// Start implements Output. An offset already rendered is moved to the
// current position so the head of buf is not skipped; the returned voice
// reports the effective offset through At.
func (r *Renderer) Start(buf *Buffer, at time.Duration, ended func()) (Voice, error) {
	if buf.Format != r.format {
		return nil, ErrFormatMismatch
	}
	v := &rendererVoice{
		r:       r,
		samples: buf.Samples,
		ended:   ended,
	}
	r.mu.Lock()
	v.start = max(r.sampleAt(at), r.pos)
	r.voices = append(r.voices, v)
	r.mu.Unlock()
	return v, nil
}

// sampleAt rounds an offset to the nearest sample so that contiguous
// segments neither overlap nor leave a gap.
func (r *Renderer) sampleAt(at time.Duration) int64 {
	rate := int64(r.format.SampleRate())
	return (int64(at)*rate + int64(time.Second)/2) / int64(time.Second)
}

// Active returns the number of voices that have not ended or been stopped.
func (r *Renderer) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.voices)
}

// Finished holds the ended callbacks of the voices completed by a Render
// call.
type Finished []func()

// Run invokes the callbacks in order.
func (f Finished) Run() {
	for _, fn := range f {
		fn()
	}
}

// Render mixes the next len(dst) samples into dst and advances the clock.
// Voices that finish within the frame are removed. Their ended callbacks
// are returned, not run: the caller runs them once dst has been delivered
// to the device.
func (r *Renderer) Render(dst []float32) Finished {
	clear(dst)

	r.mu.Lock()
	from := r.pos
	to := from + int64(len(dst))
	var finished Finished
	kept := r.voices[:0]
	for _, v := range r.voices {
		end := v.start + int64(len(v.samples))
		lo := max(from, v.start)
		hi := min(to, end)
		for i := lo; i < hi; i++ {
			dst[i-from] += v.samples[i-v.start] * r.gain
		}
		if end <= to {
			if v.ended != nil {
				finished = append(finished, v.ended)
			}
			continue
		}
		kept = append(kept, v)
	}
	clear(r.voices[len(kept):])
	r.voices = kept
	r.pos = to
	r.mu.Unlock()

	for i := range dst {
		switch {
		case dst[i] > 1:
			dst[i] = 1
		case dst[i] < -1:
			dst[i] = -1
		}
	}
	return finished
}

// At returns the offset the voice starts at.
func (v *rendererVoice) At() time.Duration {
	return v.r.format.SampleDuration(v.start)
}

// Stop implements Voice.
func (v *rendererVoice) Stop() {
	r := v.r
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.voices {
		if o == v {
			r.voices = append(r.voices[:i], r.voices[i+1:]...)
			return
		}
	}
}

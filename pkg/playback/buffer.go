package playback

import (
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
	"github.com/horesheladil/drlamiaiassistent/pkg/audio/resampler"
)

var (
	// ErrUnsupportedFormat is returned for payloads that are not L16 PCM.
	ErrUnsupportedFormat = errors.New("playback: unsupported audio format")

	// ErrEmptySegment is returned for payloads without samples.
	ErrEmptySegment = errors.New("playback: empty segment")
)

// Buffer is decoded mono audio ready to be scheduled.
type Buffer struct {
	Format  pcm.Format
	Samples []float32
}

// Duration returns the playback duration of the buffer.
func (b *Buffer) Duration() time.Duration {
	return b.Format.SampleDuration(int64(len(b.Samples)))
}

// Decoder turns received audio payloads into Buffers in the output format.
// Payloads announced at another rate are resampled; resampler state is kept
// per source rate so consecutive segments of one turn stay continuous.
type Decoder struct {
	out        pcm.Format
	resamplers map[int]*resampler.Resampler
}

// NewDecoder creates a Decoder producing buffers in out.
func NewDecoder(out pcm.Format) *Decoder {
	return &Decoder{out: out, resamplers: make(map[int]*resampler.Resampler)}
}

// Decode parses a payload with a MIME type such as "audio/pcm;rate=24000".
// A missing rate is taken to be the output rate.
func (d *Decoder) Decode(mimeType string, data []byte) (*Buffer, error) {
	rate, err := parseRate(mimeType, d.out.SampleRate())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptySegment
	}
	samples, err := pcm.DecodeInt16(data)
	if err != nil {
		return nil, fmt.Errorf("playback: decode %q: %w", mimeType, err)
	}
	if rate != d.out.SampleRate() {
		rs, ok := d.resamplers[rate]
		if !ok {
			rs, err = resampler.New(rate, d.out.SampleRate())
			if err != nil {
				return nil, err
			}
			d.resamplers[rate] = rs
		}
		if samples, err = rs.Process(samples); err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			return nil, ErrEmptySegment
		}
	}
	return &Buffer{Format: d.out, Samples: samples}, nil
}

// Reset discards resampler state, e.g. after an interruption.
func (d *Decoder) Reset() {
	clear(d.resamplers)
}

func parseRate(mimeType string, def int) (int, error) {
	mt, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
	switch strings.ToLower(mt) {
	case "audio/pcm", "audio/l16":
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
	v, ok := params["rate"]
	if !ok {
		return def, nil
	}
	rate, err := strconv.Atoi(v)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("%w: bad rate in %q", ErrUnsupportedFormat, mimeType)
	}
	return rate, nil
}

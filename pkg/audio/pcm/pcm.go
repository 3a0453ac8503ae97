package pcm

import (
	"errors"
	"fmt"
	"time"
)

// Format is a mono 16-bit little-endian PCM format at a fixed sample rate.
type Format int

// Supported formats. L16Mono16K is what the live endpoint accepts for
// input and L16Mono24K what it produces.
const (
	L16Mono16K Format = iota
	L16Mono24K
	L16Mono48K
)

// BytesPerSample is the size of one L16 sample.
const BytesPerSample = 2

var rates = [...]int{
	L16Mono16K: 16000,
	L16Mono24K: 24000,
	L16Mono48K: 48000,
}

// ErrOddLength is returned when L16 data does not hold a whole number of
// samples.
var ErrOddLength = errors.New("pcm: odd byte length")

// FormatForRate returns the format with the given sample rate.
func FormatForRate(rate int) (Format, bool) {
	for f, r := range rates {
		if r == rate {
			return Format(f), true
		}
	}
	return 0, false
}

// SampleRate returns the rate in Hz. It panics for an unknown format.
func (f Format) SampleRate() int {
	if f < 0 || int(f) >= len(rates) {
		panic(fmt.Sprintf("pcm: unknown format %d", int(f)))
	}
	return rates[f]
}

// SamplesInDuration returns how many samples last d.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(d) * int64(f.SampleRate()) / int64(time.Second)
}

// SampleDuration returns how long n samples last.
func (f Format) SampleDuration(n int64) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(f.SampleRate())
}

// Duration returns how long size bytes of L16 data last.
func (f Format) Duration(size int64) time.Duration {
	return f.SampleDuration(size / BytesPerSample)
}

// MIMEType returns the media type used on the wire, e.g.
// "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate())
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(rates) {
		return fmt.Sprintf("pcm.Format(%d)", int(f))
	}
	return fmt.Sprintf("L16 mono %d Hz", rates[f])
}

package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts a mono float stream from one sample rate to another.
// It is not safe for concurrent use.
type Resampler struct {
	inRate  int
	outRate int

	r   resampling.Resampler
	buf []float64
}

// New creates a Resampler from inRate to outRate. When the rates match the
// Resampler passes samples through unchanged.
func New(inRate, outRate int) (*Resampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", inRate, outRate)
	}
	rs := &Resampler{inRate: inRate, outRate: outRate}
	if inRate == outRate {
		return rs, nil
	}
	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	rs.r = r
	return rs, nil
}

// InRate returns the input sample rate.
func (rs *Resampler) InRate() int { return rs.inRate }

// OutRate returns the output sample rate.
func (rs *Resampler) OutRate() int { return rs.outRate }

// Passthrough reports whether no conversion is performed.
func (rs *Resampler) Passthrough() bool { return rs.r == nil }

// Process converts one block. The returned slice may be shorter than the
// ideal ratio while the filter fills; the remainder arrives with later
// blocks.
func (rs *Resampler) Process(samples []float32) ([]float32, error) {
	if rs.r == nil {
		return samples, nil
	}
	if cap(rs.buf) < len(samples) {
		rs.buf = make([]float64, len(samples))
	}
	in := rs.buf[:len(samples)]
	for i, s := range samples {
		in[i] = float64(s)
	}
	out, err := rs.r.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	res := make([]float32, len(out))
	for i, s := range out {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		res[i] = float32(s)
	}
	return res, nil
}

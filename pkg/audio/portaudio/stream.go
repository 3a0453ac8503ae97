package portaudio

/*
#include <portaudio.h>
*/
import "C"

import (
	"fmt"
	"io"
	"unsafe"
)

// InputStream captures mono float32 audio from the default input device.
type InputStream struct {
	s    *stream
	rate int
}

// NewInputStream opens and starts a capture stream. Each Read returns
// exactly framesPerBuffer samples in [-1, 1].
func NewInputStream(sampleRate, framesPerBuffer int) (*InputStream, error) {
	s, err := openStream(true, C.paFloat32, 4, float64(sampleRate), framesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open input: %w", err)
	}
	return &InputStream{s: s, rate: sampleRate}, nil
}

// SampleRate returns the capture rate in Hz.
func (is *InputStream) SampleRate() int { return is.rate }

// Frames returns the number of samples delivered per Read.
func (is *InputStream) Frames() int { return is.s.frames }

// Read blocks until one block is available. It returns io.EOF after Close.
func (is *InputStream) Read() ([]float32, error) {
	block := make([]float32, is.s.frames)
	if err := is.s.read(unsafe.Pointer(&block[0])); err != nil {
		if err == errStreamClosed {
			return nil, io.EOF
		}
		return nil, err
	}
	return block, nil
}

// Close stops capture and releases the device.
func (is *InputStream) Close() error {
	return is.s.close()
}

// OutputStream plays mono int16 audio to the default output device.
type OutputStream struct {
	s    *stream
	rate int
}

// NewOutputStream opens and starts a playback stream.
func NewOutputStream(sampleRate, framesPerBuffer int) (*OutputStream, error) {
	s, err := openStream(false, C.paInt16, 2, float64(sampleRate), framesPerBuffer)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open output: %w", err)
	}
	return &OutputStream{s: s, rate: sampleRate}, nil
}

// SampleRate returns the playback rate in Hz.
func (o *OutputStream) SampleRate() int { return o.rate }

// Write blocks until the device has accepted all samples.
func (o *OutputStream) Write(samples []int16) error {
	for len(samples) > 0 {
		n := min(len(samples), o.s.frames)
		if err := o.s.write(unsafe.Pointer(&samples[0]), n); err != nil {
			if err == errStreamClosed {
				return io.ErrClosedPipe
			}
			return err
		}
		samples = samples[n:]
	}
	return nil
}

// Close stops playback immediately and releases the device.
func (o *OutputStream) Close() error {
	return o.s.close()
}

// Package portaudio binds the blocking read/write API of PortAudio: a
// float32 mono capture stream on the default input device and an int16
// mono playback stream on the default output device.
//
// Building requires PortAudio visible to pkg-config (portaudio-2.0).
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// PaStream is an opaque void typedef, which cgo cannot name; the
// wrappers take void* instead.
static PaError pa_open_stream(void **stream,
                              const PaStreamParameters *inputParams,
                              const PaStreamParameters *outputParams,
                              double sampleRate,
                              unsigned long framesPerBuffer,
                              PaStreamFlags streamFlags) {
    return Pa_OpenStream((PaStream**)stream, inputParams, outputParams, sampleRate,
                         framesPerBuffer, streamFlags, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_abort_stream(void *stream) {
    return Pa_AbortStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}

static PaError pa_write_stream(void *stream, const void *buffer, unsigned long frames) {
    return Pa_WriteStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// ErrNoDevice is returned when the host has no default device for the
// requested direction.
var ErrNoDevice = errors.New("portaudio: no default device")

// paError converts a PortAudio error code to a Go error.
func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return errors.New(C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library.
// It is safe to call multiple times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Terminate terminates the PortAudio library.
func Terminate() error {
	return paError(C.Pa_Terminate())
}

// DeviceInfo describes an audio device.
type DeviceInfo struct {
	Index             int     `json:"index" yaml:"index"`
	Name              string  `json:"name" yaml:"name"`
	MaxInputChannels  int     `json:"max_input_channels" yaml:"max_input_channels"`
	MaxOutputChannels int     `json:"max_output_channels" yaml:"max_output_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	IsDefaultInput    bool    `json:"default_input,omitempty" yaml:"default_input,omitempty"`
	IsDefaultOutput   bool    `json:"default_output,omitempty" yaml:"default_output,omitempty"`
}

// deviceInfo describes device idx, or returns false when PortAudio has no
// information on it.
func deviceInfo(idx C.PaDeviceIndex) (DeviceInfo, bool) {
	info := C.Pa_GetDeviceInfo(idx)
	if info == nil {
		return DeviceInfo{}, false
	}
	return DeviceInfo{
		Index:             int(idx),
		Name:              C.GoString(info.name),
		MaxInputChannels:  int(info.maxInputChannels),
		MaxOutputChannels: int(info.maxOutputChannels),
		DefaultSampleRate: float64(info.defaultSampleRate),
		IsDefaultInput:    idx == C.Pa_GetDefaultInputDevice(),
		IsDefaultOutput:   idx == C.Pa_GetDefaultOutputDevice(),
	}, true
}

// Devices lists the host's audio devices.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	n := C.Pa_GetDeviceCount()
	if n < 0 {
		return nil, paError(C.PaError(n))
	}
	var devices []DeviceInfo
	for i := C.PaDeviceIndex(0); i < C.PaDeviceIndex(n); i++ {
		if d, ok := deviceInfo(i); ok {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// DefaultInputDevice describes the device NewInputStream captures from.
func DefaultInputDevice() (*DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	idx := C.Pa_GetDefaultInputDevice()
	if idx == C.paNoDevice {
		return nil, ErrNoDevice
	}
	d, ok := deviceInfo(idx)
	if !ok {
		return nil, ErrNoDevice
	}
	return &d, nil
}

// stream represents an open PortAudio stream with its transfer buffer.
type stream struct {
	stream      unsafe.Pointer
	buffer      unsafe.Pointer
	frames      int
	sampleBytes int
	closed      bool
	mu          sync.Mutex
}

// openStream opens a mono PortAudio stream in one direction.
func openStream(input bool, sampleFormat C.PaSampleFormat, sampleBytes int, sampleRate float64, framesPerBuffer int) (*stream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	params := &C.PaStreamParameters{
		channelCount:              1,
		sampleFormat:              sampleFormat,
		hostApiSpecificStreamInfo: nil,
	}
	var inputParams, outputParams *C.PaStreamParameters
	if input {
		dev := C.Pa_GetDefaultInputDevice()
		if dev == C.paNoDevice {
			return nil, ErrNoDevice
		}
		params.device = dev
		params.suggestedLatency = C.Pa_GetDeviceInfo(dev).defaultLowInputLatency
		inputParams = params
	} else {
		dev := C.Pa_GetDefaultOutputDevice()
		if dev == C.paNoDevice {
			return nil, ErrNoDevice
		}
		params.device = dev
		params.suggestedLatency = C.Pa_GetDeviceInfo(dev).defaultLowOutputLatency
		outputParams = params
	}

	var paStream unsafe.Pointer
	err := paError(C.pa_open_stream(
		&paStream,
		inputParams,
		outputParams,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.paClipOff,
	))
	if err != nil {
		return nil, err
	}

	s := &stream{
		stream:      paStream,
		buffer:      C.malloc(C.size_t(framesPerBuffer * sampleBytes)),
		frames:      framesPerBuffer,
		sampleBytes: sampleBytes,
	}
	if err := paError(C.pa_start_stream(paStream)); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// close aborts and closes the stream. Pending buffers are discarded.
func (s *stream) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	C.pa_abort_stream(s.stream)
	err := paError(C.pa_close_stream(s.stream))
	C.free(s.buffer)
	return err
}

// read blocks until one buffer of frames is captured and copies it into dst.
func (s *stream) read(dst unsafe.Pointer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStreamClosed
	}
	if err := paError(C.pa_read_stream(s.stream, s.buffer, C.ulong(s.frames))); err != nil {
		return err
	}
	C.memcpy(dst, s.buffer, C.size_t(s.frames*s.sampleBytes))
	return nil
}

// write copies n frames from src and blocks until the device accepts them.
func (s *stream) write(src unsafe.Pointer, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStreamClosed
	}
	C.memcpy(s.buffer, src, C.size_t(n*s.sampleBytes))
	return paError(C.pa_write_stream(s.stream, s.buffer, C.ulong(n)))
}

var errStreamClosed = errors.New("portaudio: stream closed")

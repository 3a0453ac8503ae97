// Package host opens the local machine's audio devices through PortAudio
// and its displays through screenshot capture.
package host

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/kbinani/screenshot"

	"github.com/horesheladil/drlamiaiassistent/pkg/advisory"
	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
	"github.com/horesheladil/drlamiaiassistent/pkg/audio/portaudio"
	"github.com/horesheladil/drlamiaiassistent/pkg/capture"
	"github.com/horesheladil/drlamiaiassistent/pkg/device"
	"github.com/horesheladil/drlamiaiassistent/pkg/playback"
)

// ErrNoDisplay is returned by OpenScreen when the display cannot be
// captured.
var ErrNoDisplay = errors.New("host: no display to capture")

// Devices implements advisory.Devices with the default PortAudio devices and
// a screenshot of one display.
type Devices struct {
	// InputRate is the session input rate. Defaults to 16000.
	InputRate int

	// OutputRate is the playback rate. Defaults to 24000.
	OutputRate int

	// BlockSize is the number of samples per microphone block at
	// InputRate. Defaults to capture.DefaultBlockSize.
	BlockSize int

	// Display is the index of the captured display.
	Display int

	// Gain scales playback. Zero means unity.
	Gain float32
}

func (d *Devices) inputRate() int {
	if d.InputRate == 0 {
		return 16000
	}
	return d.InputRate
}

func (d *Devices) outputRate() int {
	if d.OutputRate == 0 {
		return 24000
	}
	return d.OutputRate
}

func (d *Devices) blockSize() int {
	if d.BlockSize == 0 {
		return capture.DefaultBlockSize
	}
	return d.BlockSize
}

// OpenMicrophone opens the default input device at its native rate.
func (d *Devices) OpenMicrophone(ctx context.Context) (capture.MicrophoneStream, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, err
	}
	rate := int(info.DefaultSampleRate)
	if rate <= 0 {
		rate = d.inputRate()
	}
	frames := d.blockSize() * rate / d.inputRate()

	in, err := portaudio.NewInputStream(rate, frames)
	if err != nil {
		return nil, err
	}
	mic, err := device.NewMicrophone(in, rate, d.inputRate(), d.blockSize())
	if err != nil {
		in.Close()
		return nil, err
	}
	return mic, nil
}

// OpenOutput opens the default output device.
func (d *Devices) OpenOutput(ctx context.Context) (advisory.Output, error) {
	format, ok := pcm.FormatForRate(d.outputRate())
	if !ok {
		return nil, fmt.Errorf("host: unsupported output rate %d", d.outputRate())
	}
	frames := int(format.SamplesInDuration(device.DefaultFrameDuration))
	out, err := portaudio.NewOutputStream(d.outputRate(), frames)
	if err != nil {
		return nil, err
	}
	var opts []playback.RendererOption
	if d.Gain > 0 {
		opts = append(opts, playback.WithGain(d.Gain))
	}
	return device.NewSpeaker(out, format, device.DefaultFrameDuration, opts...), nil
}

// OpenScreen selects the configured display.
func (d *Devices) OpenScreen(ctx context.Context) (capture.ScreenStream, error) {
	n := screenshot.NumActiveDisplays()
	if d.Display < 0 || d.Display >= n {
		return nil, fmt.Errorf("%w: display %d of %d", ErrNoDisplay, d.Display, n)
	}
	bounds := screenshot.GetDisplayBounds(d.Display)
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: display %d has no area", ErrNoDisplay, d.Display)
	}
	return &Screen{bounds: bounds}, nil
}

// Screen captures one display.
type Screen struct {
	bounds image.Rectangle

	mu     sync.Mutex
	closed bool
}

// Frame captures the display.
func (s *Screen) Frame() (image.Image, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrNoDisplay
	}
	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return nil, fmt.Errorf("host: capture display: %w", err)
	}
	return img, nil
}

// Close stops further captures.
func (s *Screen) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Display describes an active display.
type Display struct {
	Index  int `json:"index" yaml:"index"`
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Inventory lists the devices a session can use.
type Inventory struct {
	Audio    []portaudio.DeviceInfo `json:"audio" yaml:"audio"`
	Displays []Display              `json:"displays" yaml:"displays"`
}

// List enumerates audio devices and displays. A PortAudio failure is
// returned together with the displays found.
func List() (*Inventory, error) {
	inv := &Inventory{}
	for i := range screenshot.NumActiveDisplays() {
		b := screenshot.GetDisplayBounds(i)
		inv.Displays = append(inv.Displays, Display{
			Index:  i,
			X:      b.Min.X,
			Y:      b.Min.Y,
			Width:  b.Dx(),
			Height: b.Dy(),
		})
	}
	audio, err := portaudio.Devices()
	if err != nil {
		return inv, fmt.Errorf("host: list audio devices: %w", err)
	}
	inv.Audio = audio
	return inv, nil
}

// Terminate releases PortAudio.
func Terminate() error {
	return portaudio.Terminate()
}

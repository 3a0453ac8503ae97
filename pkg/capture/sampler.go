package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"github.com/horesheladil/drlamiaiassistent/pkg/live"
)

const (
	// DefaultFrameInterval is the time between screen samples.
	DefaultFrameInterval = 2 * time.Second

	// DefaultFrameWidth and DefaultFrameHeight are the encoded frame size.
	DefaultFrameWidth  = 1024
	DefaultFrameHeight = 576

	// DefaultJPEGQuality is the encoder quality on the 1-100 scale.
	DefaultJPEGQuality = 50

	frameMIMEType = "image/jpeg"
)

// SamplerOption configures a FrameSampler.
type SamplerOption func(*FrameSampler)

// WithInterval sets the sampling interval.
func WithInterval(d time.Duration) SamplerOption {
	return func(f *FrameSampler) { f.interval = d }
}

// WithFrameSize sets the encoded frame dimensions.
func WithFrameSize(width, height int) SamplerOption {
	return func(f *FrameSampler) { f.width, f.height = width, height }
}

// WithQuality sets the JPEG quality.
func WithQuality(q int) SamplerOption {
	return func(f *FrameSampler) { f.quality = q }
}

// FrameSampler periodically grabs a screen frame, scales it and sends it as
// a JPEG chunk.
type FrameSampler struct {
	src  ScreenStream
	sink Sender

	interval time.Duration
	width    int
	height   int
	quality  int

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewFrameSampler creates a sampler reading from src. It does nothing until
// Start is called.
func NewFrameSampler(src ScreenStream, sink Sender, opts ...SamplerOption) *FrameSampler {
	f := &FrameSampler{
		src:      src,
		sink:     sink,
		interval: DefaultFrameInterval,
		width:    DefaultFrameWidth,
		height:   DefaultFrameHeight,
		quality:  DefaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start begins sampling. The first frame is taken one interval after Start.
// Calling Start on a running sampler has no effect.
func (f *FrameSampler) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stop != nil {
		return
	}
	stop := make(chan struct{})
	f.stop = stop
	f.wg.Add(1)
	go f.loop(stop)
}

// Stop cancels sampling and waits for an in-flight tick to finish. It is
// safe to call at any time, including before Start and more than once.
func (f *FrameSampler) Stop() {
	f.mu.Lock()
	stop := f.stop
	f.stop = nil
	f.mu.Unlock()
	if stop != nil {
		close(stop)
	}
	f.wg.Wait()
}

func (f *FrameSampler) loop(stop chan struct{}) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := f.sample(); err != nil {
				slog.Debug("screen sample skipped", "error", err)
			}
		}
	}
}

// sample performs one tick.
func (f *FrameSampler) sample() error {
	img, err := f.src.Frame()
	if err != nil {
		if errors.Is(err, ErrFrameNotReady) {
			return nil
		}
		return fmt.Errorf("capture: grab frame: %w", err)
	}
	data, err := EncodeFrame(img, f.width, f.height, f.quality)
	if err != nil {
		return err
	}
	f.sink.Send(live.Chunk{MIMEType: frameMIMEType, Data: data})
	return nil
}

// EncodeFrame scales img to width x height, ignoring aspect ratio, and
// encodes it as JPEG.
func EncodeFrame(img image.Image, width, height, quality int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("capture: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

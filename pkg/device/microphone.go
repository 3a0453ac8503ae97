// Package device adapts blocking audio streams to the capture and playback
// interfaces of an advisory session.
package device

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/horesheladil/drlamiaiassistent/pkg/audio/resampler"
)

// BlockReader is a capture stream delivering mono float samples.
type BlockReader interface {
	// Read blocks until samples are available. It returns io.EOF once the
	// stream is closed.
	Read() ([]float32, error)
	Close() error
}

// Microphone converts a capture stream at its native rate into fixed-size
// blocks at the session input rate.
type Microphone struct {
	src   BlockReader
	rs    *resampler.Resampler
	block int

	mu      sync.Mutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewMicrophone wraps src captured at srcRate. Blocks of blockSize samples
// at outRate are delivered once Start is called.
func NewMicrophone(src BlockReader, srcRate, outRate, blockSize int) (*Microphone, error) {
	if blockSize <= 0 {
		return nil, errors.New("device: block size must be positive")
	}
	rs, err := resampler.New(srcRate, outRate)
	if err != nil {
		return nil, err
	}
	return &Microphone{src: src, rs: rs, block: blockSize}, nil
}

// Start begins delivering blocks to fn from a new goroutine.
func (m *Microphone) Start(fn func(block []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	if m.started {
		return errors.New("device: microphone already started")
	}
	m.started = true
	m.wg.Add(1)
	go m.pump(fn)
	return nil
}

func (m *Microphone) pump(fn func([]float32)) {
	defer m.wg.Done()
	var pending []float32
	for {
		samples, err := m.src.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("microphone read failed", "error", err)
			}
			return
		}
		if samples, err = m.rs.Process(samples); err != nil {
			slog.Warn("microphone resample failed", "error", err)
			return
		}
		pending = append(pending, samples...)
		for len(pending) >= m.block {
			block := make([]float32, m.block)
			copy(block, pending)
			pending = pending[m.block:]
			fn(block)
		}
	}
}

// Close stops capture and waits for the delivery goroutine to exit.
func (m *Microphone) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	err := m.src.Close()
	m.wg.Wait()
	return err
}

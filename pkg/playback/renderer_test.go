package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/horesheladil/drlamiaiassistent/pkg/audio/pcm"
)

func ramp(n int, base float32) *Buffer {
	s := make([]float32, n)
	for i := range s {
		s[i] = base + float32(i)/1000
	}
	return &Buffer{Format: pcm.L16Mono16K, Samples: s}
}

func TestRendererPlaysAtOffset(t *testing.T) {
	r := NewRenderer(pcm.L16Mono16K)
	ended := 0
	// 16 samples at 16 kHz = 1ms.
	if _, err := r.Start(ramp(10, 0.1), time.Millisecond, func() { ended++ }); err != nil {
		t.Fatal(err)
	}

	frame := make([]float32, 20)
	r.Render(frame).Run()
	for i := 0; i < 16; i++ {
		if frame[i] != 0 {
			t.Fatalf("sample %d = %v before voice start", i, frame[i])
		}
	}
	if frame[16] != 0.1 {
		t.Fatalf("first voice sample = %v, want 0.1", frame[16])
	}
	if ended != 0 {
		t.Fatal("ended too early")
	}

	finished := r.Render(frame)
	if ended != 0 || len(finished) != 1 {
		t.Fatalf("ended=%d finished=%d; callbacks must wait for the caller", ended, len(finished))
	}
	finished.Run()
	if ended != 1 || r.Active() != 0 {
		t.Fatalf("ended=%d active=%d", ended, r.Active())
	}
	if got := r.Now(); got != pcm.L16Mono16K.SampleDuration(40) {
		t.Fatalf("Now = %v", got)
	}
}

func TestRendererBackToBackIsGapless(t *testing.T) {
	r := NewRenderer(pcm.L16Mono16K)
	s := NewScheduler(r)
	a := ramp(30, 0.2)
	b := ramp(30, 0.5)
	s.Enqueue(a)
	s.Enqueue(b)

	var got []float32
	frame := make([]float32, 7)
	for range 10 {
		r.Render(frame).Run()
		got = append(got, frame...)
	}
	want := append(append([]float32(nil), a.Samples...), b.Samples...)
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("sample %d = %v, want %v", i, got[i], w)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("scheduler len = %d after playback", s.Len())
	}
}

func TestRendererStop(t *testing.T) {
	r := NewRenderer(pcm.L16Mono16K)
	ended := 0
	v, _ := r.Start(ramp(100, 0.3), 0, func() { ended++ })
	frame := make([]float32, 10)
	r.Render(frame)
	v.Stop()
	r.Render(frame)
	for i, s := range frame {
		if s != 0 {
			t.Fatalf("sample %d = %v after stop", i, s)
		}
	}
	if ended != 0 {
		t.Fatal("stopped voice reported ended")
	}
}

func TestRendererClipsMix(t *testing.T) {
	r := NewRenderer(pcm.L16Mono16K, WithGain(2))
	r.Start(&Buffer{Format: pcm.L16Mono16K, Samples: []float32{0.8, -0.8}}, 0, nil)
	frame := make([]float32, 2)
	r.Render(frame)
	if frame[0] != 1 || frame[1] != -1 {
		t.Fatalf("frame = %v", frame)
	}
}

func TestRendererFormatMismatch(t *testing.T) {
	r := NewRenderer(pcm.L16Mono24K)
	if _, err := r.Start(ramp(1, 0), 0, nil); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("err = %v", err)
	}
}

func TestRendererClampsPastOffset(t *testing.T) {
	r := NewRenderer(pcm.L16Mono16K)
	frame := make([]float32, 32)
	r.Render(frame)

	// 16 samples behind the render position.
	v, err := r.Start(ramp(8, 0.4), pcm.L16Mono16K.SampleDuration(16), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := v.(interface{ At() time.Duration }).At(), pcm.L16Mono16K.SampleDuration(32); got != want {
		t.Fatalf("At = %v, want %v", got, want)
	}
	r.Render(frame)
	if frame[0] != 0.4 {
		t.Fatalf("first sample = %v, want head of buffer 0.4", frame[0])
	}
}

// lateClock reports a render position that has since moved on.
type lateClock struct {
	*Renderer
	now time.Duration
}

func (c lateClock) Now() time.Duration { return c.now }

func TestSchedulerFollowsClampedStart(t *testing.T) {
	r := NewRenderer(pcm.L16Mono16K)
	s := NewScheduler(lateClock{Renderer: r})
	frame := make([]float32, 16)
	r.Render(frame)

	a := ramp(16, 0.1)
	_, at, err := s.Enqueue(a)
	if err != nil {
		t.Fatal(err)
	}
	if want := pcm.L16Mono16K.SampleDuration(16); at != want {
		t.Fatalf("at = %v, want %v", at, want)
	}
	if s.Next() != at+a.Duration() {
		t.Fatalf("next = %v, want %v", s.Next(), at+a.Duration())
	}
}

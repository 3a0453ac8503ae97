package transcript

import (
	"strings"
	"time"
)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the timestamp source. Defaults to time.Now.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithOnEntry sets a callback invoked for every completed entry.
func WithOnEntry(fn func(Entry)) RecorderOption {
	return func(r *Recorder) { r.onEntry = fn }
}

// Recorder joins transcription fragments into entries. A new entry starts
// when the speaker changes; Flush closes the current one. The timestamp of
// an entry is the arrival time of its first fragment.
//
// Recorder is not safe for concurrent use.
type Recorder struct {
	now     func() time.Time
	onEntry func(Entry)

	entries []Entry
	cur     *Entry
	text    strings.Builder
}

// NewRecorder creates an empty Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends a fragment. If finished is set the entry is closed after the
// fragment.
func (r *Recorder) Add(role Role, text string, finished bool) {
	if r.cur != nil && r.cur.Role != role {
		r.Flush()
	}
	if text != "" {
		if r.cur == nil {
			r.cur = &Entry{Role: role, Timestamp: r.now()}
		}
		r.text.WriteString(text)
	}
	if finished {
		r.Flush()
	}
}

// Flush closes the current entry, if any. Entries with only whitespace are
// discarded.
func (r *Recorder) Flush() {
	if r.cur == nil {
		return
	}
	e := *r.cur
	e.Text = strings.TrimSpace(r.text.String())
	r.cur = nil
	r.text.Reset()
	if e.Text == "" {
		return
	}
	r.entries = append(r.entries, e)
	if r.onEntry != nil {
		r.onEntry(e)
	}
}

// Entries returns the completed entries.
func (r *Recorder) Entries() []Entry {
	return r.entries
}

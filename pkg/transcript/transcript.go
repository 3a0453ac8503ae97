// Package transcript records and persists the spoken exchange of advisory
// sessions.
//
// A Recorder assembles streamed transcription fragments into entries, one
// per speaker turn. At the end of a session the Record is saved to a Store;
// the badger-backed store keeps records on disk for later listing and
// export.
package transcript

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a session record does not exist.
var ErrNotFound = errors.New("transcript: not found")

// Role identifies the speaker of an entry.
type Role string

const (
	// RoleUser is the client speaking into the microphone.
	RoleUser Role = "user"

	// RoleAssistant is the synthesized advisor.
	RoleAssistant Role = "assistant"
)

// Entry is one speaker turn.
type Entry struct {
	Role      Role      `json:"role" msgpack:"role" yaml:"role"`
	Text      string    `json:"text" msgpack:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" msgpack:"ts" yaml:"timestamp"`
}

// Session summarizes one session.
type Session struct {
	ID        string    `json:"id" msgpack:"id" yaml:"id"`
	StartedAt time.Time `json:"started_at" msgpack:"started_at" yaml:"started_at"`
	EndedAt   time.Time `json:"ended_at" msgpack:"ended_at" yaml:"ended_at"`
	Reason    string    `json:"reason,omitempty" msgpack:"reason,omitempty" yaml:"reason,omitempty"`
	Model     string    `json:"model,omitempty" msgpack:"model,omitempty" yaml:"model,omitempty"`
	Entries   int       `json:"entries" msgpack:"entries" yaml:"entries"`
}

// Record is a session summary with its entries.
type Record struct {
	Session Session `json:"session" yaml:"session"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

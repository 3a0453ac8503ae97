package transcript

import (
	"context"
	"iter"
)

// Store persists session records.
type Store interface {
	// Save writes a record, replacing any previous record with the same
	// session ID.
	Save(ctx context.Context, rec *Record) error

	// Load returns the record of a session, or ErrNotFound.
	Load(ctx context.Context, id string) (*Record, error)

	// Sessions iterates over stored session summaries in ID order.
	Sessions(ctx context.Context) iter.Seq2[Session, error]

	// Delete removes a session record. Deleting a missing record is not an
	// error.
	Delete(ctx context.Context, id string) error

	// Close releases the store.
	Close() error
}

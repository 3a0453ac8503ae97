// Package archive uploads finished artifacts, such as session transcripts,
// to a long-term store. Backends are the local filesystem and S3 or any
// S3-compatible object store.
package archive

import (
	"context"
	"io"
)

// Store is a flat, name-addressed object store.
//
// Names are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores the content read from r under name, replacing any existing
	// object.
	Put(ctx context.Context, name, contentType string, r io.Reader) error

	// Get opens the named object. If it does not exist, an error wrapping
	// os.ErrNotExist is returned.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Exists reports whether the named object exists.
	Exists(ctx context.Context, name string) (bool, error)
}

package live

import (
	"context"
	"iter"
)

// Transport establishes connections to the live endpoint.
type Transport interface {
	Connect(ctx context.Context, cfg *Config) (Conn, error)
}

// Conn is an open bidirectional connection.
type Conn interface {
	// Send writes one realtime input chunk.
	Send(ctx context.Context, chunk Chunk) error

	// Events yields inbound events in delivery order. The sequence ends
	// without an error when the server closes the connection normally, and
	// yields a non-nil error once when the connection fails.
	Events() iter.Seq2[*Event, error]

	// Close closes the connection. It is safe to call multiple times.
	Close() error
}

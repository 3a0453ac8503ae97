package live

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned when a session is opened without credentials.
	ErrNoAPIKey = errors.New("live: API key is required")

	// ErrClosed is returned by Conn.Send after the connection is closed.
	ErrClosed = errors.New("live: connection closed")
)

// Error represents an error reported by the live endpoint.
type Error struct {
	// Code is the status name (e.g., "PERMISSION_DENIED") or a close reason.
	Code string `json:"status,omitzero"`

	// Message is the human-readable error message.
	Message string `json:"message,omitzero"`

	// HTTPStatus is the HTTP status code, if applicable.
	HTTPStatus int `json:"code,omitzero"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("live: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("live: %s", e.Message)
}

package advisory

import "fmt"

// Mode is the observable state of a Controller.
type Mode int

const (
	// ModeIdle means no session is active.
	ModeIdle Mode = iota
	// ModeConnecting covers device acquisition and connection setup.
	ModeConnecting
	// ModeListening means the connection is open and nothing is playing.
	ModeListening
	// ModeSpeaking means synthesized audio is scheduled or playing.
	ModeSpeaking
	// ModeError is entered when a session fails, just before it returns to
	// idle.
	ModeError
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeConnecting:
		return "connecting"
	case ModeListening:
		return "listening"
	case ModeSpeaking:
		return "speaking"
	case ModeError:
		return "error"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Active reports whether a session exists in this mode.
func (m Mode) Active() bool {
	return m != ModeIdle
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*m = ModeIdle
	case "connecting":
		*m = ModeConnecting
	case "listening":
		*m = ModeListening
	case "speaking":
		*m = ModeSpeaking
	case "error":
		*m = ModeError
	default:
		return fmt.Errorf("advisory: unknown mode %q", b)
	}
	return nil
}

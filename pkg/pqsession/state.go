package pqsession

// State is the session's position in its handshake/traffic lifecycle.
// Transitions are forward-only, except ERROR, which is absorbing and
// reachable from any state.
type State int

const (
	StateInit State = iota
	StateHandshaking
	StateHandshakingTillSent
	StateNormal
	StateClosing
	StateClosed
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateHandshakingTillSent:
		return "HANDSHAKING_TILL_SENT"
	case StateNormal:
		return "NORMAL"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role identifies which end of the handshake this session plays.
type Role int

const (
	RoleNone Role = iota
	RoleServer
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "SERVER"
	case RoleClient:
		return "CLIENT"
	default:
		return "NONE"
	}
}

// ErrorKind enumerates the error kinds surfaced on a session.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorWrongAuth
	ErrorBadHandshake
	ErrorBadPacket
	ErrorBadMAC
	ErrorBadRekey
	ErrorAlreadyClosed
	ErrorOther
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorWrongAuth:
		return "WRONG_AUTH"
	case ErrorBadHandshake:
		return "BAD_HANDSHAKE"
	case ErrorBadPacket:
		return "BAD_PACKET"
	case ErrorBadMAC:
		return "BAD_MAC"
	case ErrorBadRekey:
		return "BAD_REKEY"
	case ErrorAlreadyClosed:
		return "ALREADY_CLOSED"
	case ErrorOther:
		return "OTHER"
	default:
		return "NONE"
	}
}

// Error is the sole user-visible diagnostic once a session enters
// StateError.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

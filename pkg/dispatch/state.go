package dispatch

// State is a step of the dispatch state machine
type State int

const (
	StateReceived State = iota
	StateValidated
	StatePersonaResolved
	StateNormalized
	StateBackendInvoked
	StatePersistAttempted
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StatePersonaResolved:
		return "persona_resolved"
	case StateNormalized:
		return "normalized"
	case StateBackendInvoked:
		return "backend_invoked"
	case StatePersistAttempted:
		return "persist_attempted"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow s
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

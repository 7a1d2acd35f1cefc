package session

// state is the session's own lifecycle gate, distinct from the control
// channel's handshake State machine: it governs which of Connect/
// Disconnect/Close are valid to call, matching the internal client state
// enum named by original_source/src/client_pri.h more closely than
// spec.md's lifecycle paragraph alone implies (SPEC_FULL.md supplement).
type state int32

const (
	stateIdle state = iota
	stateConnecting
	stateConnected
	stateDisconnecting
	stateDisconnected
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateDisconnecting:
		return "disconnecting"
	case stateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

package notify

// State is the lifecycle state of the notification socket.
type State int

const (
	// StateIdle means no connection has been attempted, or Disconnect
	// was called.
	StateIdle State = iota
	// StateConnecting means a dial is in flight.
	StateConnecting
	// StateOpen means the socket is ready for frames and commands.
	StateOpen
	// StateClosed means the socket closed unexpectedly and a reconnect
	// attempt is scheduled.
	StateClosed
	// StateDisconnected means reconnect attempts are exhausted. Only an
	// explicit Connect leaves this state.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

package domain

type ConnState int

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnOpen
	ConnClosed
	ConnReconnecting
	ConnGivenUp
)

func (s ConnState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnConnecting:
		return "connecting"
	case ConnOpen:
		return "open"
	case ConnClosed:
		return "closed"
	case ConnReconnecting:
		return "reconnecting"
	case ConnGivenUp:
		return "given_up"
	default:
		return "unknown"
	}
}

type CloseReason string

const (
	CloseReasonNone         CloseReason = ""
	CloseReasonTransport    CloseReason = "transport"
	CloseReasonDialFailed   CloseReason = "dial_failed"
	CloseReasonDisconnected CloseReason = "disconnected"
)

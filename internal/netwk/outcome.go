package netwk

// Status is the last observed state of the radio link.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusNoAPFound
	StatusAuthFailed
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusNoAPFound:
		return "no-ap-found"
	case StatusAuthFailed:
		return "auth-failed"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Outcome classifies one connection attempt. Produced once per attempt and
// immutable after creation.
type Outcome int

const (
	Success Outcome = iota
	AuthFailed
	NoAccessPoint
	GenericFailure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case AuthFailed:
		return "auth-failed"
	case NoAccessPoint:
		return "no-access-point"
	case GenericFailure:
		return "generic-failure"
	default:
		return "unknown"
	}
}

// classify maps a terminal radio status to a connection outcome.
func classify(s Status) Outcome {
	switch s {
	case StatusConnected:
		return Success
	case StatusNoAPFound:
		return NoAccessPoint
	case StatusAuthFailed:
		return AuthFailed
	default:
		return GenericFailure
	}
}

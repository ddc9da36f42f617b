package java

// State is the position of a Pinger in the status exchange.
type State uint8

// Exchange states in protocol order.
const (
	StateCreated State = iota
	StateHandshaken
	StateStatusRequested
	StateStatusReceived
	StatePingRequested
	StateComplete
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateHandshaken:
		return "Handshaken"
	case StateStatusRequested:
		return "StatusRequested"
	case StateStatusReceived:
		return "StatusReceived"
	case StatePingRequested:
		return "PingRequested"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Package bridge implements the host-side controller: discovery polling,
// connection lifecycle with bounded reconnection, request/response
// correlation, and typed event republishing.
package bridge

// ConnectionState describes the controller's view of the link to the
// agent. The controller owns the value; observers learn of changes only
// through state subscriptions, never by polling.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

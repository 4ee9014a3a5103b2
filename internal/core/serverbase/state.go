// SPDX-License-Identifier: MPL-2.0

package serverbase

const (
	// StateCreated is the state of a server before Start.
	StateCreated State = iota
	// StateStarting means the listener is being opened.
	StateStarting
	// StateRunning means the server accepts connections.
	StateRunning
	// StateStopping means shutdown is in progress.
	StateStopping
	// StateStopped is terminal.
	StateStopped
	// StateFailed is terminal; LastError holds the cause.
	StateFailed
)

// State is the lifecycle state of a server.
type State int32

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}

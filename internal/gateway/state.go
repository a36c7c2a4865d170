package gateway

// State tracks the engine lifecycle as seen by the supervisor.
type State int32

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateDegraded
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

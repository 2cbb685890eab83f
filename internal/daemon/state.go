package daemon

// State is the daemon lifecycle state. It only moves forward.
type State int32

const (
	StateStarting State = iota
	StateServing
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateServing:
		return "serving"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

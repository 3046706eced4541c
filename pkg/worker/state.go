package worker

// State represents the lifecycle state of the pool
type State int32

const (
	// StateInitial indicates the pool was constructed but not started
	StateInitial State = iota
	// StateStarted indicates workers are running and submissions are accepted
	StateStarted
	// StateShutdown indicates no new submissions are accepted; workers drain
	// in-flight work and exit once the queue is empty
	StateShutdown
	// StateStopped indicates workers were told to terminate immediately
	StateStopped
)

// String returns a string representation of the pool state
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateStarted:
		return "started"
	case StateShutdown:
		return "shutdown"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

package supervise

// State is the lifecycle position of a supervised execution.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateKilled
	StateSpawnFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateKilled:
		return "killed"
	case StateSpawnFailed:
		return "spawn_failed"
	default:
		return "unknown"
	}
}

// Handle represents one supervised execution. It is created by Run,
// mutated only by the supervisor, and discarded once Run returns; a
// retry requires a fresh Handle.
type Handle struct {
	Executable string
	Identity   string
	PID        int

	state    State
	exitCode int
}

// State returns the handle's current lifecycle state.
func (h *Handle) State() State { return h.state }

// ExitCode returns the child's exit code. Only meaningful when State is
// StateCompleted.
func (h *Handle) ExitCode() int { return h.exitCode }

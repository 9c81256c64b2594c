package spawner

// State is the per-spawner wave state.
type State int

const (
	StateInit State = iota
	StateRespawning
	StateCreatingInstances
	StateActivatingInstances
	StateAlive
)

// States lists every state, for metrics.
var States = []State{StateInit, StateRespawning, StateCreatingInstances, StateActivatingInstances, StateAlive}

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRespawning:
		return "respawning"
	case StateCreatingInstances:
		return "creating"
	case StateActivatingInstances:
		return "activating"
	case StateAlive:
		return "alive"
	}
	return "unknown"
}

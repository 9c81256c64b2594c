package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: external commands (camera moves)
	PhasePreUpdate               // 1: budget reset, last tick's events
	PhaseUpdate                  // 2: level clock, gameplay
	PhasePostUpdate              // 3: spawner directory, culling
	PhaseOutput                  // 4: metrics
	PhasePersist                 // 5: snapshot save
	PhaseCleanup                 // 6: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every simulation system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

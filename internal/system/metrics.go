package system

import (
	"time"

	coresys "github.com/l1jgo/spawnpool/internal/core/system"
	"github.com/l1jgo/spawnpool/internal/spawner"
)

// StateCounter reports spawners per state.
type StateCounter interface {
	StateCounts() map[spawner.State]int
}

// StateRecorder publishes the counts.
type StateRecorder interface {
	ObserveStates(counts map[spawner.State]int)
}

// MetricsSystem polls spawner state counts once per tick. Phase 4 (Output).
type MetricsSystem struct {
	dir StateCounter
	rec StateRecorder
}

func NewMetricsSystem(dir StateCounter, rec StateRecorder) *MetricsSystem {
	return &MetricsSystem{dir: dir, rec: rec}
}

func (s *MetricsSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *MetricsSystem) Update(_ time.Duration) {
	s.rec.ObserveStates(s.dir.StateCounts())
}

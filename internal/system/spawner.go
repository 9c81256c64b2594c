package system

import (
	"time"

	coresys "github.com/l1jgo/spawnpool/internal/core/system"
)

// DirectoryTicker is the spawner directory.
type DirectoryTicker interface {
	Tick()
}

// SpawnerSystem steps the spawner directory on its own interval, which may
// be longer than the simulation tick. Phase 3 (PostUpdate).
type SpawnerSystem struct {
	dir      DirectoryTicker
	interval time.Duration
	acc      time.Duration
	steps    uint64
}

func NewSpawnerSystem(dir DirectoryTicker, interval time.Duration) *SpawnerSystem {
	return &SpawnerSystem{dir: dir, interval: interval}
}

func (s *SpawnerSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *SpawnerSystem) Update(dt time.Duration) {
	s.acc += dt
	if s.acc < s.interval {
		return
	}
	s.acc -= s.interval
	// never queue up more than one step behind
	if s.acc >= s.interval {
		s.acc = 0
	}
	s.dir.Tick()
	s.steps++
}

// Steps returns how many directory ticks ran.
func (s *SpawnerSystem) Steps() uint64 { return s.steps }

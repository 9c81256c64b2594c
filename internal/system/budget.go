package system

import (
	"time"

	coresys "github.com/l1jgo/spawnpool/internal/core/system"
	"github.com/l1jgo/spawnpool/internal/spawner"
)

// OverrunRecorder counts ticks whose spawning ran out of time.
type OverrunRecorder interface {
	BudgetOverrun()
}

// BudgetSystem restarts the shared spawning budget. It must be registered
// right before SpawnerSystem so the budget measures spawning only.
type BudgetSystem struct {
	budget   *spawner.Budget
	rec      OverrunRecorder
	overruns uint64
}

func NewBudgetSystem(b *spawner.Budget, rec OverrunRecorder) *BudgetSystem {
	return &BudgetSystem{budget: b, rec: rec}
}

func (s *BudgetSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *BudgetSystem) Update(_ time.Duration) {
	if s.budget.Overrun() {
		s.overruns++
		if s.rec != nil {
			s.rec.BudgetOverrun()
		}
	}
	s.budget.Reset()
}

// Overruns returns how many ticks hit the budget so far.
func (s *BudgetSystem) Overruns() uint64 { return s.overruns }

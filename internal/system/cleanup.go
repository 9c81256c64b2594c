package system

import (
	"time"

	"github.com/l1jgo/spawnpool/internal/core/ecs"
	coresys "github.com/l1jgo/spawnpool/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Pools destroy instances on shrink and clear; the entities go away here.
type CleanupSystem struct {
	world     *ecs.World
	destroyed uint64
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.destroyed += uint64(s.world.FlushDestroyQueue())
}

// Destroyed returns how many entities were flushed since start.
func (s *CleanupSystem) Destroyed() uint64 { return s.destroyed }

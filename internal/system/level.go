package system

import (
	"time"

	coresys "github.com/l1jgo/spawnpool/internal/core/system"
	"github.com/l1jgo/spawnpool/internal/level"
)

// LevelClockSystem advances the level's game clock. Phase 2 (Update).
type LevelClockSystem struct {
	clock *level.Clock
}

func NewLevelClockSystem(c *level.Clock) *LevelClockSystem {
	return &LevelClockSystem{clock: c}
}

func (s *LevelClockSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *LevelClockSystem) Update(dt time.Duration) { s.clock.Advance(dt) }

// CameraSystem sweeps the camera across the level, turning around at the
// bounds. Phase 0 (Input).
type CameraSystem struct {
	lvl   *level.Level
	speed float64 // units per second
	dir   float64
	x, y  float64
}

func NewCameraSystem(lvl *level.Level, speed float64) *CameraSystem {
	vp := lvl.Viewport().Max
	return &CameraSystem{
		lvl:   lvl,
		speed: speed,
		dir:   1,
		x:     (vp.MinX + vp.MaxX) / 2,
		y:     (vp.MinY + vp.MaxY) / 2,
	}
}

func (s *CameraSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *CameraSystem) Update(dt time.Duration) {
	b := s.lvl.Bounds()
	s.x += s.dir * s.speed * dt.Seconds()
	switch {
	case s.x >= b.MaxX:
		s.x, s.dir = b.MaxX, -1
	case s.x <= b.MinX:
		s.x, s.dir = b.MinX, 1
	}
	s.lvl.MoveCamera(s.x, s.y)
}

// Position returns the camera centre.
func (s *CameraSystem) Position() (float64, float64) { return s.x, s.y }

// HuntSystem moves drifting entities and lets the player kill the ones in
// view. Phase 2 (Update).
type HuntSystem struct {
	lvl    *level.Level
	chance float64
	kills  uint64
}

func NewHuntSystem(lvl *level.Level, chance float64) *HuntSystem {
	return &HuntSystem{lvl: lvl, chance: chance}
}

func (s *HuntSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *HuntSystem) Update(dt time.Duration) {
	s.lvl.Drift(dt)
	s.kills += uint64(s.lvl.Hunt(s.chance))
}

func (s *HuntSystem) Kills() uint64 { return s.kills }

// CullSystem removes entities far outside the view every few ticks.
// Phase 3 (PostUpdate), registered before the spawner system so culled
// waves can respawn in the same tick.
type CullSystem struct {
	lvl    *level.Level
	every  int
	ticks  int
	culled uint64
}

func NewCullSystem(lvl *level.Level, everyTicks int) *CullSystem {
	return &CullSystem{lvl: lvl, every: max(1, everyTicks)}
}

func (s *CullSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *CullSystem) Update(_ time.Duration) {
	s.ticks++
	if s.ticks < s.every {
		return
	}
	s.ticks = 0
	s.culled += uint64(s.lvl.Cull())
}

func (s *CullSystem) Culled() uint64 { return s.culled }

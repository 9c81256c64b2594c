package spawner

import (
	"github.com/l1jgo/spawnpool/internal/pool"
	"github.com/l1jgo/spawnpool/internal/spatial"
)

// Conditions gates a spawner on game progress. time is elapsed level seconds,
// score the player's accumulated xp.
type Conditions interface {
	IsReadyToSpawn(time, score float64) bool
	IsReadyToDisable(time, score float64) bool
}

// Visibility decides whether a spawner's area is in the activation zone.
type Visibility interface {
	InsideActivationArea(bounds spatial.Rect) bool
}

// EntityDirectory is told about every activated and removed instance exactly once.
type EntityDirectory interface {
	RegisterEntity(inst *pool.Instance)
	UnregisterEntity(inst *pool.Instance)
}

// Clock is the level's game clock.
type Clock interface {
	Elapsed() float64
	Score() float64
}

// Spawnable is implemented by instance attachments that initialize
// themselves from their spawner. Called after positioning and activation.
type Spawnable interface {
	OnSpawn(sp *Spawner)
}

// Railed attachments are spread across the spawner's rails round-robin.
type Railed interface {
	SetRail(rail, rails int)
}

// Observer is told about every finished wave. The metrics collector implements it.
type Observer interface {
	WaveFinished(kind string, allKilled bool)
}

// ConditionFunc adapts a pair of functions to Conditions.
type ConditionFunc struct {
	Spawn   func(time, score float64) bool
	Disable func(time, score float64) bool
}

func (c ConditionFunc) IsReadyToSpawn(time, score float64) bool {
	return c.Spawn == nil || c.Spawn(time, score)
}

func (c ConditionFunc) IsReadyToDisable(time, score float64) bool {
	return c.Disable != nil && c.Disable(time, score)
}

// AlwaysVisible is a Visibility that accepts every area.
type AlwaysVisible struct{}

func (AlwaysVisible) InsideActivationArea(spatial.Rect) bool { return true }

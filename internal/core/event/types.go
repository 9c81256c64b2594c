package event

import "github.com/l1jgo/spawnpool/internal/core/ecs"

// Spawner lifecycle events. SpawnerID is the stable id from the spawner table.

type EntitySpawned struct {
	SpawnerID int64
	EntityID  ecs.EntityID
	Prototype string
	X, Y      float64
}

type BatchRespawned struct {
	SpawnerID int64
	Count     int
}

type BatchRemoved struct {
	SpawnerID         int64
	Count             int
	Killed            int
	AllKilledByPlayer bool
}

// FlockEaten is emitted when the player kills a whole wave of a spawner
// with a flock bonus.
type FlockEaten struct {
	SpawnerID int64
	X, Y      float64
	Score     int
}

type SpawnerRetired struct {
	SpawnerID int64
	Reason    string
}

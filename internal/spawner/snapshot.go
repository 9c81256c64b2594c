package spawner

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Snapshot is the saved form of a spawner's wave bookkeeping. Live
// instances are not part of it.
type Snapshot struct {
	ID             int64   `json:"id"`
	State          string  `json:"state"`
	ToSpawn        int     `json:"to_spawn"`
	Spawned        int     `json:"spawned"`
	Alive          int     `json:"alive"`
	Killed         int     `json:"killed"`
	AllKilled      bool    `json:"all_killed,omitempty"`
	RespawnAt      float64 `json:"respawn_at"`
	RespawnCount   int     `json:"respawn_count,omitempty"`
	ReadyToDisable bool    `json:"ready_to_disable,omitempty"`
	Retired        bool    `json:"retired,omitempty"`
	Rotation       *int    `json:"rotation,omitempty"` // Rotator kinds only
}

// Snapshot captures the current counters.
func (s *Spawner) Snapshot() Snapshot {
	snap := Snapshot{
		ID:             s.cfg.ID,
		State:          s.state.String(),
		ToSpawn:        s.toSpawn,
		Spawned:        s.spawned,
		Alive:          s.alive,
		Killed:         s.killed,
		AllKilled:      s.allKilled,
		RespawnAt:      s.respawnAt,
		RespawnCount:   s.respawnCount,
		ReadyToDisable: s.readyToDisable,
		Retired:        s.retired,
	}
	if r, ok := s.kind.(Rotator); ok {
		i := r.Rotation()
		snap.Rotation = &i
	}
	return snap
}

// Save encodes the snapshot as an opaque blob.
func (s *Spawner) Save() ([]byte, error) {
	b, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode spawner %d: %w", s.cfg.ID, err)
	}
	return b, nil
}

// Load restores counters and state from a blob produced by Save. The
// spawner must not hold any instances.
func (s *Spawner) Load(blob []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return fmt.Errorf("decode spawner %d: %w", s.cfg.ID, err)
	}
	if snap.ID != s.cfg.ID {
		return fmt.Errorf("decode spawner %d: blob belongs to spawner %d", s.cfg.ID, snap.ID)
	}
	st, err := ParseState(snap.State)
	if err != nil {
		return fmt.Errorf("decode spawner %d: %w", s.cfg.ID, err)
	}
	if snap.ToSpawn < 0 || snap.ToSpawn > len(s.slots) ||
		snap.Spawned < 0 || snap.Spawned > snap.ToSpawn ||
		snap.Alive < 0 || snap.Alive > snap.ToSpawn ||
		snap.Killed < 0 || snap.Killed > snap.ToSpawn {
		return fmt.Errorf("decode spawner %d: counters out of range", s.cfg.ID)
	}
	if s.Held() > 0 {
		return fmt.Errorf("decode spawner %d: wave in progress", s.cfg.ID)
	}
	r, rotates := s.kind.(Rotator)
	if snap.Rotation != nil && rotates && !r.SetRotation(*snap.Rotation) {
		return fmt.Errorf("decode spawner %d: rotation %d out of range", s.cfg.ID, *snap.Rotation)
	}

	s.state = st
	s.toSpawn = snap.ToSpawn
	s.spawned = snap.Spawned
	s.alive = snap.Alive
	s.killed = snap.Killed
	s.allKilled = snap.AllKilled
	s.respawnAt = snap.RespawnAt
	s.respawnCount = snap.RespawnCount
	s.readyToDisable = snap.ReadyToDisable
	s.retired = snap.Retired
	return nil
}

// Held returns the number of instances actually held in slots.
func (s *Spawner) Held() int {
	n := 0
	for _, inst := range s.slots {
		if inst != nil {
			n++
		}
	}
	return n
}

// Resume turns a loaded wave into a pending one. The entities the counters
// refer to no longer exist, so they count as having left play: the next
// wave brings back everyone who was not killed.
func (s *Spawner) Resume() {
	if s.Held() > 0 {
		return
	}
	switch s.state {
	case StateInit:
		s.state = StateRespawning
	case StateRespawning:
	default:
		s.spawned = s.toSpawn
		s.allKilled = false
		s.respawnAt = -1
		s.state = StateRespawning
	}
	s.alive = 0
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for _, st := range States {
		if st.String() == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown spawner state %q", name)
}

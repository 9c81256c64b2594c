package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	coresys "github.com/l1jgo/spawnpool/internal/core/system"
	"github.com/l1jgo/spawnpool/internal/level"
)

// Saver writes the spawner snapshots of a level.
type Saver interface {
	Save(ctx context.Context, store level.SnapshotStore) error
}

// PersistenceSystem periodically saves every spawner snapshot. Phase 5 (Persist).
type PersistenceSystem struct {
	saver     Saver
	store     level.SnapshotStore
	log       *zap.Logger
	tickCount int
	interval  int // save every N ticks, 0 = never
	timeout   time.Duration
}

func NewPersistenceSystem(saver Saver, store level.SnapshotStore, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	return &PersistenceSystem{
		saver:    saver,
		store:    store,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	if err := s.SaveNow(); err != nil {
		s.log.Error("auto-save failed", zap.Error(err))
	}
}

// SaveNow saves immediately. Called on shutdown.
func (s *PersistenceSystem) SaveNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	if err := s.saver.Save(ctx, s.store); err != nil {
		return err
	}
	s.log.Debug("spawners saved", zap.Duration("took", time.Since(start)))
	return nil
}

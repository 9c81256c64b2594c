package persist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/config"
)

// Snapshot is one spawner's saved state. Blob is opaque to the store.
type Snapshot struct {
	SpawnerID int64
	Blob      []byte
}

// Store keeps spawner snapshots per level.
type Store interface {
	// SaveSnapshots upserts all snapshots in one transaction.
	SaveSnapshots(ctx context.Context, level string, snaps []Snapshot) error
	// LoadSnapshots returns the level's snapshots ordered by spawner id.
	LoadSnapshots(ctx context.Context, level string) ([]Snapshot, error)
	// DeleteLevel drops every snapshot of the level.
	DeleteLevel(ctx context.Context, level string) error
	Close() error
}

// Open connects the store selected by cfg.Driver and applies migrations.
// An empty driver disables persistence and returns a nil Store.
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "postgres":
		st, err := OpenPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := OpenSQLite(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

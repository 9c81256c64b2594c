package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/l1jgo/spawnpool/internal/config"
)

// PGStore keeps snapshots in PostgreSQL through a pgx connection pool.
type PGStore struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func OpenPostgres(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (*PGStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = runMigrations(ctx, db, "postgres", "migrations/postgres")
	db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PGStore{Pool: pool, log: log}, nil
}

func (s *PGStore) SaveSnapshots(ctx context.Context, level string, snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(
			`INSERT INTO spawner_snapshots (level, spawner_id, blob, saved_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (level, spawner_id)
			 DO UPDATE SET blob = EXCLUDED.blob, saved_at = EXCLUDED.saved_at`,
			level, snap.SpawnerID, snap.Blob)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	s.log.Debug("snapshots saved", zap.String("level", level), zap.Int("count", len(snaps)))
	return nil
}

func (s *PGStore) LoadSnapshots(ctx context.Context, level string) ([]Snapshot, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT spawner_id, blob FROM spawner_snapshots
		 WHERE level = $1 ORDER BY spawner_id`, level)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	snaps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var snap Snapshot
		err := row.Scan(&snap.SpawnerID, &snap.Blob)
		return snap, err
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	return snaps, nil
}

func (s *PGStore) DeleteLevel(ctx context.Context, level string) error {
	if _, err := s.Pool.Exec(ctx, `DELETE FROM spawner_snapshots WHERE level = $1`, level); err != nil {
		return fmt.Errorf("delete level %s: %w", level, err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.Pool.Close()
	return nil
}

package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/l1jgo/spawnpool/internal/config"
)

// SQLiteStore keeps snapshots in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	log *zap.Logger
}

func OpenSQLite(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (*SQLiteStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; sqlite serializes anyway.
	db.SetMaxOpenConns(1)
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := runMigrations(ctx, db, "sqlite3", "migrations/sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) SaveSnapshots(ctx context.Context, level string, snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO spawner_snapshots (level, spawner_id, blob, saved_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (level, spawner_id)
		 DO UPDATE SET blob = excluded.blob, saved_at = excluded.saved_at`)
	if err != nil {
		return fmt.Errorf("prepare save: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().UnixMilli()
	for _, snap := range snaps {
		if _, err := stmt.ExecContext(ctx, level, snap.SpawnerID, snap.Blob, now); err != nil {
			return fmt.Errorf("save spawner %d: %w", snap.SpawnerID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}
	s.log.Debug("snapshots saved", zap.String("level", level), zap.Int("count", len(snaps)))
	return nil
}

func (s *SQLiteStore) LoadSnapshots(ctx context.Context, level string) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT spawner_id, blob FROM spawner_snapshots
		 WHERE level = ? ORDER BY spawner_id`, level)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.SpawnerID, &snap.Blob); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	return snaps, nil
}

func (s *SQLiteStore) DeleteLevel(ctx context.Context, level string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM spawner_snapshots WHERE level = ?`, level); err != nil {
		return fmt.Errorf("delete level %s: %w", level, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"siege_server/logic"
)

// ErrReplayNotFound is returned for an unknown game id.
var ErrReplayNotFound = errors.New("replay not found")

// ErrReplayCorrupt means the stored blob no longer matches its checksum.
var ErrReplayCorrupt = errors.New("replay checksum mismatch")

// GameRecord is what a finished session leaves behind.
type GameRecord struct {
	GameID    string
	MapID     int
	StartedAt time.Time
	EndedAt   time.Time
	Summary   logic.Summary
	Entries   []logic.LogEntry
}

// SQLiteStore is the event-log sink: one row per game plus its replay blob.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		map_id INTEGER NOT NULL,
		damage_percentage REAL DEFAULT 0,
		artifacts INTEGER DEFAULT 0,
		bombs_used INTEGER DEFAULT 0,
		attackers_used INTEGER DEFAULT 0,
		frames INTEGER DEFAULT 0,
		invalidated INTEGER DEFAULT 0,
		reason TEXT DEFAULT '',
		started_at TIMESTAMP,
		ended_at TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS replays (
		game_id TEXT PRIMARY KEY REFERENCES games(id),
		checksum TEXT NOT NULL,
		blob BLOB NOT NULL
	);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveGame writes the result row and the compressed replay in one transaction.
func (s *SQLiteStore) SaveGame(ctx context.Context, rec GameRecord) error {
	blob, err := EncodeReplay(&Replay{
		GameID:  rec.GameID,
		MapID:   rec.MapID,
		Summary: rec.Summary,
		Entries: rec.Entries,
	})
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save %s: %w", rec.GameID, err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO games (id, map_id, damage_percentage, artifacts, bombs_used, attackers_used, frames, invalidated, reason, started_at, ended_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		damage_percentage = excluded.damage_percentage,
		artifacts = excluded.artifacts,
		bombs_used = excluded.bombs_used,
		attackers_used = excluded.attackers_used,
		frames = excluded.frames,
		invalidated = excluded.invalidated,
		reason = excluded.reason,
		ended_at = excluded.ended_at;
	`
	sum := rec.Summary
	if _, err := tx.ExecContext(ctx, query,
		rec.GameID, rec.MapID, sum.DamagePercentage, sum.Artifacts, sum.BombsUsed, sum.AttackersUsed,
		sum.Frames, sum.Invalidated, sum.Reason, rec.StartedAt, rec.EndedAt,
	); err != nil {
		return fmt.Errorf("save game %s: %w", rec.GameID, err)
	}

	if _, err := tx.ExecContext(ctx, `
	INSERT INTO replays (game_id, checksum, blob) VALUES (?, ?, ?)
	ON CONFLICT(game_id) DO UPDATE SET checksum = excluded.checksum, blob = excluded.blob;
	`, rec.GameID, Checksum(blob), blob); err != nil {
		return fmt.Errorf("save replay %s: %w", rec.GameID, err)
	}
	return tx.Commit()
}

// LoadSummary reads back the result row of a game.
func (s *SQLiteStore) LoadSummary(ctx context.Context, gameID string) (logic.Summary, error) {
	var sum logic.Summary
	row := s.db.QueryRowContext(ctx, `
	SELECT damage_percentage, artifacts, bombs_used, attackers_used, frames, invalidated, reason
	FROM games WHERE id = ?`, gameID)
	err := row.Scan(&sum.DamagePercentage, &sum.Artifacts, &sum.BombsUsed, &sum.AttackersUsed, &sum.Frames, &sum.Invalidated, &sum.Reason)
	if errors.Is(err, sql.ErrNoRows) {
		return sum, fmt.Errorf("game %s: %w", gameID, ErrReplayNotFound)
	}
	if err != nil {
		return sum, fmt.Errorf("load game %s: %w", gameID, err)
	}
	return sum, nil
}

// LoadReplay fetches and verifies a replay blob.
func (s *SQLiteStore) LoadReplay(ctx context.Context, gameID string) (*Replay, error) {
	var (
		checksum string
		blob     []byte
	)
	row := s.db.QueryRowContext(ctx, "SELECT checksum, blob FROM replays WHERE game_id = ?", gameID)
	err := row.Scan(&checksum, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrReplayNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load replay %s: %w", gameID, err)
	}
	if Checksum(blob) != checksum {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrReplayCorrupt)
	}
	return DecodeReplay(blob)
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"siege_server/logic"
)

// ErrMapNotFound is returned when no layout exists for a map id.
var ErrMapNotFound = errors.New("map not found")

// SnapshotSource hydrates the entity snapshot a session starts from.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, mapID int) (*logic.Snapshot, error)
}

// PGStore reads base layouts written by the base editor.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PGStore{Pool: pool}, nil
}

func (s *PGStore) Close() {
	s.Pool.Close()
}

// LoadSnapshot reads a whole layout inside one read-only transaction so the
// snapshot is consistent even while the editor is saving.
func (s *PGStore) LoadSnapshot(ctx context.Context, mapID int) (*logic.Snapshot, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot %d: %w", mapID, err)
	}
	defer tx.Rollback(ctx)

	snap := &logic.Snapshot{MapID: mapID}
	err = tx.QueryRow(ctx, `SELECT size FROM map_layouts WHERE id = $1`, mapID).Scan(&snap.Size)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("map %d: %w", mapID, ErrMapNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load map %d: %w", mapID, err)
	}

	if snap.Roads, err = collect(ctx, tx, `SELECT x, y FROM map_roads WHERE map_id = $1 ORDER BY y, x`,
		func(row pgx.CollectableRow) (logic.Coords, error) {
			var c logic.Coords
			err := row.Scan(&c.X, &c.Y)
			return c, err
		}, mapID); err != nil {
		return nil, fmt.Errorf("load roads of map %d: %w", mapID, err)
	}

	if snap.Buildings, err = collect(ctx, tx, `
		SELECT id, name, kind, x, y, width, hp, total_hp, artifacts, range, frequency, level
		FROM map_buildings WHERE map_id = $1 ORDER BY id`,
		func(row pgx.CollectableRow) (logic.Building, error) {
			var b logic.Building
			err := row.Scan(&b.ID, &b.Name, &b.Kind, &b.Origin.X, &b.Origin.Y, &b.Width,
				&b.HP, &b.TotalHP, &b.Artifacts, &b.Range, &b.Frequency, &b.Level)
			return b, err
		}, mapID); err != nil {
		return nil, fmt.Errorf("load buildings of map %d: %w", mapID, err)
	}

	if snap.Huts, err = collect(ctx, tx, `
		SELECT building_id, capacity, defender_id, damage, radius, health
		FROM map_huts WHERE map_id = $1 ORDER BY building_id`,
		func(row pgx.CollectableRow) (logic.HutSpec, error) {
			var h logic.HutSpec
			err := row.Scan(&h.BuildingID, &h.Capacity, &h.Template.ID, &h.Template.Damage, &h.Template.Radius, &h.Template.Health)
			return h, err
		}, mapID); err != nil {
		return nil, fmt.Errorf("load huts of map %d: %w", mapID, err)
	}

	if snap.Defenders, err = collect(ctx, tx, `
		SELECT id, x, y, damage, radius, health
		FROM map_defenders WHERE map_id = $1 ORDER BY id`,
		func(row pgx.CollectableRow) (logic.Defender, error) {
			var d logic.Defender
			err := row.Scan(&d.ID, &d.Pos.X, &d.Pos.Y, &d.Damage, &d.Radius, &d.Health)
			return d, err
		}, mapID); err != nil {
		return nil, fmt.Errorf("load defenders of map %d: %w", mapID, err)
	}

	if snap.Mines, err = collect(ctx, tx, `
		SELECT id, x, y, radius, damage
		FROM map_mines WHERE map_id = $1 ORDER BY id`,
		func(row pgx.CollectableRow) (logic.Mine, error) {
			var m logic.Mine
			err := row.Scan(&m.ID, &m.Pos.X, &m.Pos.Y, &m.Radius, &m.Damage)
			return m, err
		}, mapID); err != nil {
		return nil, fmt.Errorf("load mines of map %d: %w", mapID, err)
	}

	if snap.AttackerTypes, err = collect(ctx, tx, `
		SELECT id, max_health, speed, bomb_count FROM attacker_types ORDER BY id`,
		func(row pgx.CollectableRow) (logic.AttackerType, error) {
			var a logic.AttackerType
			err := row.Scan(&a.ID, &a.MaxHealth, &a.Speed, &a.BombCount)
			return a, err
		}); err != nil {
		return nil, fmt.Errorf("load attacker types: %w", err)
	}

	if snap.BombTypes, err = collect(ctx, tx, `
		SELECT id, radius, damage FROM bomb_types ORDER BY id`,
		func(row pgx.CollectableRow) (logic.BombType, error) {
			var b logic.BombType
			err := row.Scan(&b.ID, &b.Radius, &b.Damage)
			return b, err
		}); err != nil {
		return nil, fmt.Errorf("load bomb types: %w", err)
	}

	return snap, nil
}

func collect[T any](ctx context.Context, tx pgx.Tx, query string, fn func(pgx.CollectableRow) (T, error), args ...any) ([]T, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}

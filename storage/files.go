package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"siege_server/logic"
)

// FileSnapshots serves layouts from <Dir>/<map id>.json. It is the source
// used when no Postgres DSN is configured.
type FileSnapshots struct {
	Dir string
}

func (f FileSnapshots) LoadSnapshot(ctx context.Context, mapID int) (*logic.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(f.Dir, strconv.Itoa(mapID)+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("map %d: %w", mapID, ErrMapNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	var snap logic.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	snap.MapID = mapID
	return &snap, nil
}

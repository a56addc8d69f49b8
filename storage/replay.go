package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	"lukechampine.com/blake3"

	"siege_server/logic"
)

// Replay is everything needed to re-watch a finished session.
type Replay struct {
	GameID  string           `json:"game_id"`
	MapID   int              `json:"map_id"`
	Summary logic.Summary    `json:"summary"`
	Entries []logic.LogEntry `json:"entries"`
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// EncodeReplay packs a replay as msgpack and compresses it with lz4.
func EncodeReplay(r *Replay) ([]byte, error) {
	raw := bufferPool.Get().(*bytes.Buffer)
	raw.Reset()
	defer bufferPool.Put(raw)

	enc := msgpack.NewEncoder(raw)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode replay %s: %w", r.GameID, err)
	}

	var out bytes.Buffer
	zw := lz4.NewWriter(&out)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress replay %s: %w", r.GameID, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress replay %s: %w", r.GameID, err)
	}
	return out.Bytes(), nil
}

// DecodeReplay reverses EncodeReplay.
func DecodeReplay(blob []byte) (*Replay, error) {
	raw := bufferPool.Get().(*bytes.Buffer)
	raw.Reset()
	defer bufferPool.Put(raw)

	if _, err := io.Copy(raw, lz4.NewReader(bytes.NewReader(blob))); err != nil {
		return nil, fmt.Errorf("decompress replay: %w", err)
	}
	dec := msgpack.NewDecoder(raw)
	dec.SetCustomStructTag("json")
	var r Replay
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}
	return &r, nil
}

// Checksum is the hex BLAKE3 digest stored next to a replay blob.
func Checksum(blob []byte) string {
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

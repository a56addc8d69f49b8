package logic

import (
	"encoding/json"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// EventKind identifies a game log entry.
type EventKind string

const (
	EventGameStart          EventKind = "GameStart"
	EventPlaceAttacker      EventKind = "PlaceAttacker"
	EventPlaceCompanion     EventKind = "PlaceCompanion"
	EventMove               EventKind = "Move"
	EventMineBlast          EventKind = "MineBlast"
	EventPlaceBomb          EventKind = "PlaceBomb"
	EventBulletShooting     EventKind = "BulletShooting"
	EventDefenderCollided   EventKind = "DefenderCollidedWithAttacker"
	EventHutDefenderSpawn   EventKind = "HutDefenderSpawn"
	EventDefenderActivated  EventKind = "DefenderActivated"
	EventNewCompanionTarget EventKind = "NewCompanionTarget"
	EventSelfDestruction    EventKind = "SelfDestruction"
	EventInvalidated        EventKind = "Invalidated"
	EventGameOver           EventKind = "GameOver"
)

// LogEntry is one replayable record. Payload is JSON.
type LogEntry struct {
	ID        ulid.ULID `json:"id"`
	Frame     int       `json:"frame"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"payload,omitempty"`
}

// Summary is the teardown record of a session.
type Summary struct {
	DamagePercentage float64 `json:"damage_percentage"`
	Artifacts        int     `json:"artifacts"`
	BombsUsed        int     `json:"bombs_used"`
	AttackersUsed    int     `json:"attackers_used"`
	Frames           int     `json:"frames"`
	Invalidated      bool    `json:"invalidated"`
	Reason           string  `json:"reason,omitempty"`
}

// GameLog accumulates entries in order. IDs come from a monotonic source so
// they sort the same way the entries were appended.
type GameLog struct {
	entries []LogEntry
	entropy *ulid.MonotonicEntropy
	logger  *zap.Logger
}

func newGameLog(seed int64, logger *zap.Logger) *GameLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameLog{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0),
		logger:  logger,
	}
}

func (l *GameLog) append(now time.Time, frame int, kind EventKind, payload any) {
	entry := LogEntry{
		Frame:     frame,
		Kind:      kind,
		Timestamp: now,
	}
	id, err := ulid.New(ulid.Timestamp(now), l.entropy)
	if err != nil {
		// The entry is still kept; only its sort key is lost.
		l.logger.Error("game log id", zap.String("kind", string(kind)), zap.Int("frame", frame), zap.Error(err))
	}
	entry.ID = id
	if payload != nil {
		// Payloads are plain structs of ints and coords; Marshal cannot fail on them.
		entry.Payload, _ = json.Marshal(payload)
	}
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of the log.
func (l *GameLog) Entries() []LogEntry {
	return append([]LogEntry(nil), l.entries...)
}

// Len is the entry count
func (l *GameLog) Len() int {
	return len(l.entries)
}

type unitPayload struct {
	ID  int    `json:"id"`
	Pos Coords `json:"pos"`
}

type damagePayload struct {
	ID     int    `json:"id"`
	Pos    Coords `json:"pos"`
	Damage int    `json:"damage"`
	Health int    `json:"health"`
}

type bombPayload struct {
	BombID    int             `json:"bomb_id"`
	Pos       Coords          `json:"pos"`
	Damaged   BaseItemsDamage `json:"damaged"`
	Artifacts int             `json:"artifacts"`
}

type reasonPayload struct {
	Reason           string  `json:"reason"`
	DamagePercentage float64 `json:"damage_percentage"`
}

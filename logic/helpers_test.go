package logic

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// baseSnapshot is a 10x10 board with a road along y=5 and another along x=5.
func baseSnapshot() *Snapshot {
	var roads []Coords
	for i := 0; i < 10; i++ {
		roads = append(roads, Coords{X: i, Y: 5})
		if i != 5 {
			roads = append(roads, Coords{X: 5, Y: i})
		}
	}
	return &Snapshot{
		MapID: 1,
		Size:  10,
		Roads: roads,
		AttackerTypes: []AttackerType{
			{ID: 1, MaxHealth: 100, Speed: 1, BombCount: 3},
			{ID: 2, MaxHealth: 20, Speed: 1, BombCount: 1},
			{ID: 3, MaxHealth: 10000, Speed: 1, BombCount: 10},
			{ID: 4, MaxHealth: 100, Speed: 1, BombCount: 0},
		},
		BombTypes: []BombType{
			{ID: 1, Radius: 1, Damage: 10},
		},
	}
}

func newTestEngine(t *testing.T, snap *Snapshot, tune func(*GameConfig)) (*Engine, *ManualClock) {
	t.Helper()
	cfg := DefaultGameConfig()
	if tune != nil {
		tune(cfg)
	}
	clock := NewManualClock(epoch)
	e, err := NewEngine(snap, Deps{Config: cfg, Clock: clock})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, clock
}

func mustStep(t *testing.T, e *Engine, a Action) *TickResult {
	t.Helper()
	res, err := e.Step(a)
	if err != nil {
		t.Fatalf("step %s frame %d: %v", a.ActionType, a.FrameNumber, err)
	}
	return res
}

func placeAttacker(frame, attackerType int, pos Coords) Action {
	return Action{
		ActionType:      ActionPlaceAttacker,
		FrameNumber:     frame,
		CurrentPosition: &pos,
		AttackerID:      intPtr(attackerType),
		BombID:          intPtr(1),
	}
}

func placeCompanion(frame int, pos Coords) Action {
	return Action{
		ActionType:      ActionPlaceCompanion,
		FrameNumber:     frame,
		CurrentPosition: &pos,
		AttackerID:      intPtr(1),
	}
}

func moveTo(frame int, pos Coords) Action {
	return Action{ActionType: ActionMoveAttacker, FrameNumber: frame, CurrentPosition: &pos}
}

func bombAt(frame int, pos Coords) Action {
	return Action{ActionType: ActionPlaceBombs, FrameNumber: frame, CurrentPosition: &pos, BombPosition: &pos}
}

func simple(kind ActionType, frame int) Action {
	return Action{ActionType: kind, FrameNumber: frame}
}

func at(x, y int) Coords {
	return Coords{X: x, Y: y}
}

type fakeTaunter struct {
	triggers []TauntTrigger
	pending  string
}

func (f *fakeTaunter) Notify(_ time.Time, trigger TauntTrigger, _ TauntStats) {
	f.triggers = append(f.triggers, trigger)
	f.pending = "taunt:" + string(trigger)
}

func (f *fakeTaunter) Take() (string, bool) {
	if f.pending == "" {
		return "", false
	}
	line := f.pending
	f.pending = ""
	return line, true
}

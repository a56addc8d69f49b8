package logic

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRouteTableFollowsRoads(t *testing.T) {
	t.Parallel()

	snap := baseSnapshot()
	board := NewBaseMap(snap.Size, snap.Roads)
	rt := NewRouteTable(board)

	dist, ok := rt.Distance(at(0, 5), at(5, 0))
	if !ok || dist != 10 {
		t.Fatalf("expected route length 10 around the corner, got %d (%v)", dist, ok)
	}

	pos := at(0, 5)
	for steps := 0; pos != at(5, 0); steps++ {
		if steps > dist {
			t.Fatalf("walk did not terminate within %d steps", dist)
		}
		next, ok := rt.NextHop(pos, at(5, 0))
		if !ok {
			t.Fatalf("no hop from %+v", pos)
		}
		if Manhattan(pos, next) != 1 || !board.IsRoad(next) {
			t.Fatalf("illegal hop %+v -> %+v", pos, next)
		}
		pos = next
	}

	if hop, ok := rt.NextHop(at(3, 5), at(3, 5)); !ok || hop != at(3, 5) {
		t.Fatalf("expected stationary hop onto itself, got %+v (%v)", hop, ok)
	}
	if _, ok := rt.NextHop(at(0, 5), at(1, 1)); ok {
		t.Fatalf("expected no route to an off-road tile")
	}
	if _, ok := rt.Distance(at(0, 0), at(0, 5)); ok {
		t.Fatalf("expected no route from an off-road tile")
	}
}

func TestRouteTableDisconnectedRoads(t *testing.T) {
	t.Parallel()

	board := NewBaseMap(10, []Coords{at(0, 0), at(1, 0), at(5, 5), at(6, 5)})
	rt := NewRouteTable(board)
	rt.Precompute()
	if _, ok := rt.NextHop(at(0, 0), at(6, 5)); ok {
		t.Fatalf("expected no hop between disconnected segments")
	}
	if d, ok := rt.Distance(at(0, 0), at(1, 0)); !ok || d != 1 {
		t.Fatalf("expected distance 1, got %d (%v)", d, ok)
	}
}

func TestRoadsAroundSkipsCorners(t *testing.T) {
	t.Parallel()

	var roads []Coords
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			roads = append(roads, at(x, y))
		}
	}
	board := NewBaseMap(6, roads)
	got := board.RoadsAround(at(2, 2), 2)
	if len(got) != 8 {
		t.Fatalf("expected 8 orthogonal neighbours of a 2x2 block, got %d: %+v", len(got), got)
	}
	for _, c := range got {
		if c == at(1, 1) || c == at(4, 1) || c == at(1, 4) || c == at(4, 4) {
			t.Fatalf("corner %+v must not be adjacent", c)
		}
	}
	if got[0] != at(2, 1) {
		t.Fatalf("expected y-then-x order starting at (2,1), got %+v", got[0])
	}
}

func TestBlastOverlap(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		building Building
		center   Coords
		radius   int
		want     int
	}{
		{name: "full cover", building: Building{Origin: at(3, 3), Width: 1}, center: at(3, 4), radius: 1, want: 50},
		{name: "quarter", building: Building{Origin: at(6, 3), Width: 2}, center: at(5, 5), radius: 1, want: 13},
		{name: "miss", building: Building{Origin: at(0, 0), Width: 1}, center: at(5, 5), radius: 1, want: 0},
		{name: "edge touch", building: Building{Origin: at(7, 5), Width: 1}, center: at(5, 5), radius: 1, want: 0},
		{name: "large building", building: Building{Origin: at(0, 0), Width: 4}, center: at(1, 1), radius: 1, want: 28},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := BlastDamage(&tc.building, BlastArea(tc.center, tc.radius), 10, 5)
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestLoadGameConfigClampsAndDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"server": {"game_age_minutes": 999, "handshake_rate": -1},
		"combat": {"lives": 0, "artifact_fraction": 4},
		"companion": {"score_expr": "tier"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadGameConfig(path)
	if err != nil {
		t.Fatalf("LoadGameConfig: %v", err)
	}
	if cfg.Server.GameAgeMinutes != 60 {
		t.Fatalf("expected game age clamped to 60, got %d", cfg.Server.GameAgeMinutes)
	}
	if cfg.Server.HandshakeRate != 0.1 {
		t.Fatalf("expected handshake rate clamped to 0.1, got %v", cfg.Server.HandshakeRate)
	}
	if cfg.Combat.Lives != 1 || cfg.Combat.ArtifactFraction != 1 {
		t.Fatalf("expected lives 1 and fraction 1, got %d and %v", cfg.Combat.Lives, cfg.Combat.ArtifactFraction)
	}
	if cfg.Combat.BulletCollisionMs != 500 || cfg.Map.Size != 40 {
		t.Fatalf("expected untouched defaults, got %d ms and size %d", cfg.Combat.BulletCollisionMs, cfg.Map.Size)
	}
	if cfg.Companion.ScoreExpr != "tier" {
		t.Fatalf("expected score expression to load, got %q", cfg.Companion.ScoreExpr)
	}

	if _, err := LoadGameConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestBulletDamageForLevel(t *testing.T) {
	t.Parallel()

	cfg := DefaultGameConfig()
	for level, want := range map[int]int{0: 5, 1: 5, 2: 8, 3: 12, 7: 12} {
		if got := cfg.BulletDamageForLevel(level); got != want {
			t.Fatalf("level %d: expected %d, got %d", level, want, got)
		}
	}
}

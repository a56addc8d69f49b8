package logic

import (
	"time"
)

// spawnHutDefenders releases at most one clone per triggered hut per tick,
// respecting the hut's remaining capacity and spawn interval. The first
// spawn after triggering is immediate.
func (e *Engine) spawnHutDefenders(now time.Time) ([]Defender, error) {
	st := e.state
	var spawned []Defender

	for _, b := range st.Buildings {
		hut, ok := st.Huts[b.ID]
		if !ok || !hut.Triggered || hut.Capacity <= 0 || b.HP <= 0 {
			continue
		}
		if hut.LastSpawnAt != nil && now.Sub(*hut.LastSpawnAt) < hut.Interval {
			continue
		}
		tile, ok := e.spawnTile(b)
		if !ok {
			continue
		}

		clone := hut.Template
		clone.ID = e.nextEntityID()
		clone.Pos = tile
		clone.Speed = 1
		clone.Alive = true
		clone.HutID = b.ID
		clone.Targeted = st.Attacker.IsAlive()
		st.Defenders = append(st.Defenders, &clone)

		hut.Capacity--
		at := now
		hut.LastSpawnAt = &at

		spawned = append(spawned, clone)
		e.log.append(now, st.Frame, EventHutDefenderSpawn, unitPayload{ID: clone.ID, Pos: tile})
	}
	return spawned, nil
}

// spawnTile picks the road tile next to the hut that is closest to the
// attacker. RoadsAround is ordered by y then x, so the first minimum wins ties.
func (e *Engine) spawnTile(b *Building) (Coords, bool) {
	tiles := e.board.RoadsAround(b.Origin, b.Width)
	if len(tiles) == 0 {
		return Coords{}, false
	}
	att := e.state.Attacker
	if att == nil {
		return tiles[0], true
	}
	best := tiles[0]
	bestDist := Manhattan(best, att.Pos)
	for _, t := range tiles[1:] {
		if d := Manhattan(t, att.Pos); d < bestDist {
			best, bestDist = t, d
		}
	}
	return best, true
}

package logic

// Manhattan distance helper
func Manhattan(a, b Coords) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// InRange reports whether target is within radius (Manhattan) of origin.
func InRange(origin, target Coords, radius int) bool {
	return Manhattan(origin, target) <= radius
}

// latchHuts triggers every standing hut whose radius covers pos. Triggering is
// one way: a hut never goes back to idle. Returns the newly latched hut ids.
func (gs *State) latchHuts(pos Coords) []int {
	var latched []int
	for _, b := range gs.Buildings {
		hut, ok := gs.Huts[b.ID]
		if !ok || hut.Triggered || b.HP <= 0 {
			continue
		}
		if InRange(b.Origin, pos, hut.Radius) {
			hut.Triggered = true
			latched = append(latched, b.ID)
		}
	}
	return latched
}

// latchDefenders points every idle, alive defender within its radius at the
// attacker. Returns the newly activated defender ids.
func (gs *State) latchDefenders(pos Coords) []int {
	var latched []int
	for _, d := range gs.Defenders {
		if !d.Alive || d.Targeted {
			continue
		}
		if InRange(d.Pos, pos, d.Radius) {
			d.Targeted = true
			latched = append(latched, d.ID)
		}
	}
	if len(latched) > 0 && gs.Attacker != nil {
		gs.Attacker.TriggeredDefender = true
	}
	return latched
}

// revealMines returns not yet revealed mines within radius of pos and marks them.
func (gs *State) revealMines(pos Coords, radius int) []Mine {
	var out []Mine
	for _, m := range gs.Mines {
		if gs.RevealedMines[m.ID] {
			continue
		}
		if InRange(pos, m.Pos, radius) {
			gs.RevealedMines[m.ID] = true
			out = append(out, m)
		}
	}
	return out
}

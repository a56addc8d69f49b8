package logic

import (
	"fmt"
	"math"
	"time"
)

// Invalidation records why a session was flagged by anti-cheat.
type Invalidation struct {
	Reason      string `json:"reason"`
	Invalidated bool   `json:"invalidated"`
}

// State is the mutable world of one attack. It is owned by a single Engine and
// never shared between goroutines.
type State struct {
	Frame            int
	Attacker         *Attacker
	Companion        *Companion
	Defenders        []*Defender
	Sentries         []*Sentry
	Huts             map[int]*Hut
	Mines            []Mine
	Buildings        []*Building
	Bombs            BombInventory
	CompanionBombs   BombInventory
	DamagePercentage float64
	Artifacts        int
	DeathCount       int
	Invalidation     Invalidation
	BombsUsed        int
	AttackersPlaced  int
	TotalHP          int
	LastBulletCheck  int
	RevealedMines    map[int]bool
}

// NewState hydrates the world from a snapshot.
func NewState(snap *Snapshot, now time.Time) (*State, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot: %w", ErrSnapshot)
	}
	gs := &State{
		Huts:           make(map[int]*Hut),
		Mines:          append([]Mine(nil), snap.Mines...),
		Bombs:          BombInventory{BombType: BombType{ID: -1}},
		CompanionBombs: BombInventory{BombType: BombType{ID: -1}},
		RevealedMines:  make(map[int]bool),
	}

	hutSpecs := make(map[int]HutSpec, len(snap.Huts))
	for _, h := range snap.Huts {
		hutSpecs[h.BuildingID] = h
	}

	for i := range snap.Buildings {
		b := snap.Buildings[i]
		if b.Width <= 0 {
			return nil, fmt.Errorf("building %d has width %d: %w", b.ID, b.Width, ErrSnapshot)
		}
		if b.TotalHP <= 0 {
			b.TotalHP = b.HP
		}
		gs.TotalHP += b.TotalHP
		gs.Buildings = append(gs.Buildings, &b)

		switch b.Kind {
		case BuildingSentry:
			gs.Sentries = append(gs.Sentries, &Sentry{
				BuildingID:  b.ID,
				Origin:      b.Origin,
				Range:       b.Range,
				FireRate:    b.Frequency,
				Level:       b.Level,
				ActivatedAt: now,
				LastShotAt:  now,
			})
		case BuildingHut:
			spec, ok := hutSpecs[b.ID]
			if !ok {
				return nil, fmt.Errorf("hut building %d has no hut spec: %w", b.ID, ErrSnapshot)
			}
			tmpl := spec.Template
			tmpl.HutID = b.ID
			gs.Huts[b.ID] = &Hut{
				BuildingID: b.ID,
				Capacity:   spec.Capacity,
				Radius:     b.Range,
				Interval:   time.Duration(b.Frequency) * time.Millisecond,
				Template:   tmpl,
			}
		}
	}

	for i := range snap.Defenders {
		d := snap.Defenders[i]
		d.Speed = 1
		d.Alive = d.Health > 0
		d.Targeted = false
		gs.Defenders = append(gs.Defenders, &d)
	}
	return gs, nil
}

func (gs *State) invalidate(reason string) {
	if gs.Invalidation.Invalidated {
		return
	}
	gs.Invalidation = Invalidation{Reason: reason, Invalidated: true}
}

func (gs *State) clearDefenderTargets() {
	for _, d := range gs.Defenders {
		d.Targeted = false
	}
}

// killAttacker performs death bookkeeping. Callers guarantee it runs once per death.
// Bullets still in flight have nothing left to hit.
func (gs *State) killAttacker() {
	gs.Attacker.Health = 0
	gs.DeathCount++
	gs.clearDefenderTargets()
	for _, s := range gs.Sentries {
		s.Active = false
		for i := range s.Bullets {
			s.Bullets[i].Resolved = true
		}
	}
}

// damageAttacker floors health at zero and reports whether this hit was the kill.
func (gs *State) damageAttacker(dmg int) bool {
	if !gs.Attacker.IsAlive() {
		return false
	}
	gs.Attacker.Health = max(0, gs.Attacker.Health-dmg)
	if gs.Attacker.Health == 0 {
		gs.killAttacker()
		return true
	}
	return false
}

func (gs *State) addDamage(hp int) {
	if gs.TotalHP <= 0 || hp <= 0 {
		return
	}
	gs.DamagePercentage += float64(hp) / float64(gs.TotalHP) * 100
	gs.DamagePercentage = math.Min(100, math.Max(0, gs.DamagePercentage))
}

// damageBuilding applies raw damage, clamps HP at zero and books the artifact
// payout and damage percentage. Destroyed buildings contribute their full
// remaining HP.
func (gs *State) damageBuilding(b *Building, raw int, artifactFraction float64) BuildingDamage {
	old := b.HP
	b.HP -= raw
	taken := 0
	dealt := raw
	if b.HP <= 0 {
		b.HP = 0
		dealt = old
		taken = int(math.Floor(float64(b.Artifacts) * artifactFraction))
		gs.Artifacts += taken
	}
	gs.addDamage(dealt)
	return BuildingDamage{ID: b.ID, Position: b.Origin, HP: b.HP, ArtifactsTaken: taken}
}

// damageDefender applies flat damage; a defender at zero health is out of the fight.
func (gs *State) damageDefender(d *Defender, dmg int) DefenderDamage {
	d.Health = max(0, d.Health-dmg)
	if d.Health == 0 {
		d.Alive = false
		d.Targeted = false
	}
	return DefenderDamage{ID: d.ID, Position: d.Pos, Health: d.Health}
}

func (gs *State) building(id int) *Building {
	for _, b := range gs.Buildings {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (gs *State) defender(id int) *Defender {
	for _, d := range gs.Defenders {
		if d.ID == id {
			return d
		}
	}
	return nil
}

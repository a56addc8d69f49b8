package logic

import (
	"fmt"

	"go.uber.org/zap"
)

func (e *Engine) placeAttacker(a Action) (*TickResult, error) {
	st := e.state
	if st.Attacker.IsAlive() {
		return e.reject(a.FrameNumber, "Attacker already on the field"), nil
	}
	if st.DeathCount >= e.cfg.Combat.Lives {
		return e.reject(a.FrameNumber, "No attackers left"), nil
	}
	if a.FrameNumber < st.Frame {
		return e.reject(a.FrameNumber, fmt.Sprintf("Frame number went backwards: %d after %d", a.FrameNumber, st.Frame)), nil
	}
	if a.AttackerID == nil || a.BombID == nil || a.CurrentPosition == nil {
		return e.reject(a.FrameNumber, "Incomplete attacker placement"), nil
	}

	at, ok := e.attackerTypes[*a.AttackerID]
	if !ok {
		return nil, fmt.Errorf("attacker_id %d: %w", *a.AttackerID, ErrUnknownAttackerType)
	}
	bt, ok := e.bombTypes[*a.BombID]
	if !ok {
		return nil, fmt.Errorf("bomb_id %d: %w", *a.BombID, ErrUnknownBombType)
	}
	pos := *a.CurrentPosition
	if !e.board.InBounds(pos) {
		return e.reject(a.FrameNumber, "Attacker placed outside the base"), nil
	}

	st.Frame = a.FrameNumber
	st.Attacker = &Attacker{
		ID:        at.ID,
		Pos:       pos,
		Health:    at.MaxHealth,
		Speed:     at.Speed,
		BombCount: at.BombCount,
	}
	st.Bombs = BombInventory{BombType: bt, Count: at.BombCount}
	st.AttackersPlaced++
	e.phase = PhaseInProgress

	now := e.clock.Now()
	e.updateSentries(now)
	e.log.append(now, st.Frame, EventPlaceAttacker, unitPayload{ID: at.ID, Pos: pos})

	return &TickResult{
		Frame:          a.FrameNumber,
		Primary:        ResultPlacedAttacker,
		Message:        "Place Attacker, set attacker and bomb response",
		AttackerAlive:  boolPtr(true),
		AttackerHealth: intPtr(st.Attacker.Health),
	}, nil
}

func (e *Engine) placeCompanion(a Action) (*TickResult, error) {
	st := e.state
	if st.Companion.IsAlive() {
		return e.reject(a.FrameNumber, "Companion already on the field"), nil
	}
	if a.AttackerID == nil || a.CurrentPosition == nil {
		return e.reject(a.FrameNumber, "Incomplete companion placement"), nil
	}
	at, ok := e.attackerTypes[*a.AttackerID]
	if !ok {
		return nil, fmt.Errorf("companion attacker_id %d: %w", *a.AttackerID, ErrUnknownAttackerType)
	}
	pos := *a.CurrentPosition
	if !e.board.InBounds(pos) {
		return e.reject(a.FrameNumber, "Companion placed outside the base"), nil
	}

	st.Companion = &Companion{
		ID:             at.ID,
		Pos:            pos,
		Health:         at.MaxHealth,
		Speed:          at.Speed,
		Damage:         e.cfg.Companion.Damage,
		Range:          e.cfg.Companion.Range,
		AttackInterval: e.cfg.Companion.AttackInterval,
		Target:         CompanionTarget{Kind: TargetNone},
	}
	if a.BombID != nil {
		bt, ok := e.bombTypes[*a.BombID]
		if !ok {
			return nil, fmt.Errorf("companion bomb_id %d: %w", *a.BombID, ErrUnknownBombType)
		}
		st.CompanionBombs = BombInventory{BombType: bt, Count: at.BombCount}
	}
	e.log.append(e.clock.Now(), st.Frame, EventPlaceCompanion, unitPayload{ID: at.ID, Pos: pos})

	return &TickResult{
		Frame:   a.FrameNumber,
		Primary: ResultPlacedCompanion,
		Message: "Placed companion",
	}, nil
}

// moveAttacker is the movement tick. Validation runs first and nothing is
// mutated until the step is known to be legal.
func (e *Engine) moveAttacker(a Action) (*TickResult, error) {
	st := e.state
	if a.FrameNumber-st.Frame != 1 {
		return e.reject(a.FrameNumber, fmt.Sprintf("Frame number mismatch: expected %d, got %d", st.Frame+1, a.FrameNumber)), nil
	}
	if st.DeathCount >= e.cfg.Combat.Lives {
		return e.reject(a.FrameNumber, "No attackers left"), nil
	}
	if !st.Attacker.IsAlive() {
		return e.reject(a.FrameNumber, "Moved an attacker that is not alive"), nil
	}
	if a.CurrentPosition == nil {
		return e.reject(a.FrameNumber, "Movement without a position"), nil
	}
	next := *a.CurrentPosition
	if !e.board.IsRoad(next) {
		return e.reject(a.FrameNumber, fmt.Sprintf("Attacker left the road at %d,%d", next.X, next.Y)), nil
	}
	if Manhattan(st.Attacker.Pos, next) != 1 {
		return e.reject(a.FrameNumber, fmt.Sprintf("Attacker skipped tiles from %d,%d to %d,%d", st.Attacker.Pos.X, st.Attacker.Pos.Y, next.X, next.Y)), nil
	}

	now := e.clock.Now()
	st.Attacker.Pos = next
	res := &TickResult{Frame: a.FrameNumber}

	if huts := st.latchHuts(next); len(huts) > 0 {
		e.logger.Debug("huts triggered", zap.Ints("huts", huts))
		e.notify(now, TauntHutTriggered)
	}
	if activated := st.latchDefenders(next); len(activated) > 0 {
		for _, id := range activated {
			e.log.append(now, a.FrameNumber, EventDefenderActivated, unitPayload{ID: id, Pos: next})
		}
		e.notify(now, TauntDefendersActivated)
	}
	e.updateSentries(now)
	st.Frame++

	hits, err := e.pursueAttacker(now)
	if err != nil {
		return nil, err
	}
	res.DefenderHits = hits

	spawns, err := e.spawnHutDefenders(now)
	if err != nil {
		return nil, err
	}
	res.HutSpawns = spawns

	res.BulletsFired, res.BulletHits = e.fireSentries(now)

	comp, err := e.stepCompanion(now)
	if err != nil {
		return nil, err
	}
	res.Companion = comp
	res.BaseDamage = comp.baseDamage()

	switch {
	case len(res.HutSpawns) > 0:
		res.Primary = ResultSpawnHutDefender
	case len(res.DefenderHits) > 0:
		res.Primary = ResultDefendersDamaged
	case comp != nil && (comp.BuildingDamaged != nil || comp.DefenderDamaged != nil):
		res.Primary = ResultBuildingsDamaged
	default:
		res.Primary = ResultNothing
	}
	res.Message = "Movement Response"
	res.AttackerAlive = boolPtr(st.Attacker.IsAlive())
	res.AttackerHealth = intPtr(st.Attacker.Health)
	e.log.append(now, a.FrameNumber, EventMove, unitPayload{ID: st.Attacker.ID, Pos: next})
	return res, nil
}

// isMine detonates every mine on the attacker's tile.
func (e *Engine) isMine(a Action) *TickResult {
	st := e.state
	res := &TickResult{Frame: a.FrameNumber, Primary: ResultNothing, Message: "Is Mine Response"}
	if !st.Attacker.IsAlive() {
		res.AttackerAlive = boolPtr(false)
		return res
	}

	now := e.clock.Now()
	pos := st.Attacker.Pos
	kept := st.Mines[:0]
	for _, m := range st.Mines {
		if m.Pos != pos {
			kept = append(kept, m)
			continue
		}
		res.ExplodedMines = append(res.ExplodedMines, m)
		st.damageAttacker(m.Damage)
		e.log.append(now, a.FrameNumber, EventMineBlast, damagePayload{ID: m.ID, Pos: m.Pos, Damage: m.Damage, Health: st.Attacker.Health})
	}
	st.Mines = kept

	if len(res.ExplodedMines) > 0 {
		res.Primary = ResultMinesExploded
		e.notify(now, TauntMineExploded)
	}
	res.AttackerAlive = boolPtr(st.Attacker.IsAlive())
	res.AttackerHealth = intPtr(st.Attacker.Health)
	return res
}

// placeBombs resolves one detonation on the attacker's tile.
func (e *Engine) placeBombs(a Action) *TickResult {
	st := e.state
	if st.Bombs.Count <= 0 {
		return e.reject(a.FrameNumber, "No bombs left")
	}
	if !st.Attacker.IsAlive() {
		return e.reject(a.FrameNumber, "Bomb placed without a live attacker")
	}
	if a.BombPosition == nil || a.CurrentPosition == nil {
		return e.reject(a.FrameNumber, "Incomplete bomb placement")
	}
	center := *a.BombPosition
	if center != *a.CurrentPosition {
		return e.reject(a.FrameNumber, "Bomb placed away from the attacker")
	}

	now := e.clock.Now()
	st.Bombs.Count--
	st.Attacker.BombCount = max(0, st.Attacker.BombCount-1)
	st.BombsUsed++

	blast := BlastArea(center, st.Bombs.Radius)
	damaged := &BaseItemsDamage{
		Buildings: []BuildingDamage{},
		Defenders: []DefenderDamage{},
	}
	artifactsBefore := st.Artifacts
	for _, b := range st.Buildings {
		if b.HP <= 0 {
			continue
		}
		raw := BlastDamage(b, blast, st.Bombs.Damage, e.cfg.Combat.BombDamageMultiplier)
		if raw <= 0 {
			continue
		}
		damaged.Buildings = append(damaged.Buildings, st.damageBuilding(b, raw, e.cfg.Combat.ArtifactFraction))
	}
	for _, d := range st.Defenders {
		if !d.Alive || !blast.Contains(d.Pos) {
			continue
		}
		damaged.Defenders = append(damaged.Defenders, st.damageDefender(d, st.Bombs.Damage))
	}

	e.log.append(now, a.FrameNumber, EventPlaceBomb, bombPayload{
		BombID:    st.Bombs.ID,
		Pos:       center,
		Damaged:   *damaged,
		Artifacts: st.Artifacts - artifactsBefore,
	})

	res := &TickResult{
		Frame:          a.FrameNumber,
		Primary:        ResultNothing,
		Message:        "Place Bomb Response",
		BaseDamage:     damaged,
		AttackerAlive:  boolPtr(true),
		AttackerHealth: intPtr(st.Attacker.Health),
	}
	if !damaged.empty() {
		res.Primary = ResultBuildingsDamaged
		e.notify(now, TauntBombHit)
	} else {
		e.notify(now, TauntBombMissed)
	}
	return res
}

func (e *Engine) idle(a Action) *TickResult {
	res := &TickResult{Frame: a.FrameNumber, Primary: ResultNothing, Message: "Idle Response"}
	if att := e.state.Attacker; att != nil {
		res.AttackerAlive = boolPtr(att.IsAlive())
		res.AttackerHealth = intPtr(att.Health)
	}
	return res
}

// selfDestruct kills the attacker outright. The companion keeps fighting.
func (e *Engine) selfDestruct(a Action) *TickResult {
	st := e.state
	res := &TickResult{Frame: a.FrameNumber, Primary: ResultNothing, Message: "Self Destruct Response"}
	if st.Attacker.IsAlive() {
		st.killAttacker()
		e.log.append(e.clock.Now(), a.FrameNumber, EventSelfDestruction, unitPayload{ID: st.Attacker.ID, Pos: st.Attacker.Pos})
	}
	res.AttackerAlive = boolPtr(false)
	if st.Attacker != nil {
		res.AttackerHealth = intPtr(st.Attacker.Health)
	}
	return res
}

// checkBullets resolves sentry fire between movement ticks. It never moves
// the frame counter, and each frame is checked at most once.
func (e *Engine) checkBullets(a Action) *TickResult {
	st := e.state
	if a.FrameNumber <= st.LastBulletCheck {
		return &TickResult{Frame: a.FrameNumber, Primary: ResultNothing, Message: "Skipped repeated or invalid frame"}
	}
	st.LastBulletCheck = a.FrameNumber

	res := &TickResult{Frame: a.FrameNumber, Primary: ResultBulletHit, Message: "Bullet Hit"}
	res.BulletsFired, res.BulletHits = e.fireSentries(e.clock.Now())
	if st.Attacker != nil {
		res.AttackerAlive = boolPtr(st.Attacker.IsAlive())
		res.AttackerHealth = intPtr(st.Attacker.Health)
	}
	return res
}

// uavStatus reveals mines around the attacker that were not shown before.
func (e *Engine) uavStatus(a Action) *TickResult {
	st := e.state
	res := &TickResult{Frame: a.FrameNumber, Primary: ResultUAV, Message: "No UAV Reveal"}
	if !e.cfg.UAV.Enabled || !st.Attacker.IsAlive() {
		return res
	}
	res.RevealedMines = st.revealMines(st.Attacker.Pos, e.cfg.UAV.Radius)
	if len(res.RevealedMines) > 0 {
		res.Message = "UAV Reveal"
	}
	return res
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}

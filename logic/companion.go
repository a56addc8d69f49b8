package logic

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// stepCompanion runs one tick of the companion AI: drop a dead target, pick
// a new one when idle, walk one tile, strike on cooldown.
func (e *Engine) stepCompanion(now time.Time) (*CompanionResult, error) {
	st := e.state
	c := st.Companion
	if !c.IsAlive() {
		return nil, nil
	}
	res := &CompanionResult{}

	switch {
	case !c.Idle() && !e.targetStanding(c.Target):
		// Re-ranking waits for the next tick.
		e.logger.Debug("companion target gone", zap.String("kind", string(c.Target.Kind)), zap.Int("id", c.Target.ID))
		c.release()
	case c.Idle():
		cand, ok, err := e.rankTarget(c.Pos, c.Range)
		if err != nil {
			return nil, err
		}
		if ok {
			c.Target = CompanionTarget{Kind: cand.Kind, ID: cand.ID, Tile: cand.Tile}
			c.Cooldown = 0
			e.log.append(now, st.Frame, EventNewCompanionTarget, struct {
				Kind TargetKind `json:"kind"`
				ID   int        `json:"id"`
				Tile Coords     `json:"tile"`
			}{cand.Kind, cand.ID, cand.Tile})
		}
	}

	if !c.Idle() {
		if err := e.engage(c, res); err != nil {
			return nil, err
		}
	}

	res.ID = c.ID
	res.Pos = c.Pos
	res.Health = c.Health
	res.IsAlive = c.IsAlive()
	res.Target = c.Target
	res.BombsLeft = st.CompanionBombs.Count
	return res, nil
}

// engage moves toward the committed target or, once there, hits it.
func (e *Engine) engage(c *Companion, res *CompanionResult) error {
	st := e.state
	if c.Target.Kind == TargetDefender {
		// Defenders move; chase their current tile.
		if d := st.defender(c.Target.ID); d != nil {
			c.Target.Tile = d.Pos
		}
	}

	if c.Pos != c.Target.Tile {
		hop, ok := e.routes.NextHop(c.Pos, c.Target.Tile)
		if !ok {
			return fmt.Errorf("companion %d from %v to %v: %w", c.ID, c.Pos, c.Target.Tile, ErrRouteMissing)
		}
		c.Pos = hop
	}
	c.Target.Reached = c.Pos == c.Target.Tile
	if !c.Target.Reached {
		return nil
	}

	if c.Cooldown > 0 {
		c.Cooldown--
		return nil
	}
	// A strike on tick t is followed by the next one on t+AttackInterval.
	c.Cooldown = max(0, c.AttackInterval-1)

	switch c.Target.Kind {
	case TargetDefender:
		d := st.defender(c.Target.ID)
		dmg := st.damageDefender(d, c.Damage)
		res.DefenderDamaged = &dmg
	case TargetBuilding:
		b := st.building(c.Target.ID)
		dmg := st.damageBuilding(b, c.Damage, e.cfg.Combat.ArtifactFraction)
		res.BuildingDamaged = &dmg
	}
	if !e.targetStanding(c.Target) {
		c.release()
	}
	return nil
}

func (e *Engine) targetStanding(t CompanionTarget) bool {
	switch t.Kind {
	case TargetDefender:
		d := e.state.defender(t.ID)
		return d != nil && d.Alive
	case TargetBuilding:
		b := e.state.building(t.ID)
		return b != nil && b.HP > 0
	default:
		return false
	}
}

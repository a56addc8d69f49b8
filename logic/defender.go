package logic

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// pursueAttacker advances every pursuing defender one tile toward the
// attacker's current tile. A defender that lands on the attacker strikes once
// and is spent.
func (e *Engine) pursueAttacker(now time.Time) ([]DefenderHit, error) {
	st := e.state
	att := st.Attacker
	var hits []DefenderHit

	for _, d := range st.Defenders {
		// Targets are cleared on death, so this also stops the sweep once the
		// attacker goes down mid-loop.
		if !d.Alive || !d.Targeted || !att.IsAlive() {
			continue
		}
		if d.Pos != att.Pos {
			hop, ok := e.routes.NextHop(d.Pos, att.Pos)
			if !ok {
				return hits, fmt.Errorf("defender %d from %v to %v: %w", d.ID, d.Pos, att.Pos, ErrRouteMissing)
			}
			d.Pos = hop
		}
		if d.Pos != att.Pos {
			continue
		}

		st.damageAttacker(d.Damage)
		d.Alive = false
		d.Targeted = false
		hits = append(hits, DefenderHit{DefenderID: d.ID, Position: d.Pos, Damage: d.Damage})
		e.log.append(now, st.Frame, EventDefenderCollided, damagePayload{ID: d.ID, Pos: d.Pos, Damage: d.Damage, Health: att.Health})
		e.logger.Debug("defender reached attacker",
			zap.Int("defender", d.ID),
			zap.Int("damage", d.Damage),
			zap.Int("attacker_health", att.Health),
		)
	}
	return hits, nil
}

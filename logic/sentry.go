package logic

import (
	"time"

	"go.uber.org/zap"
)

// updateSentries recomputes which sentries see the attacker. Activation is
// edge triggered: switching on restarts the fire clock, switching off lets
// every bullet still in flight land on the next resolution.
func (e *Engine) updateSentries(now time.Time) {
	st := e.state
	att := st.Attacker
	delay := e.cfg.BulletCollisionDelay()

	for _, s := range st.Sentries {
		b := st.building(s.BuildingID)
		active := b != nil && b.HP > 0 && att.IsAlive() && InRange(s.Origin, att.Pos, s.Range)

		switch {
		case active && !s.Active:
			s.Active = true
			s.ActivatedAt = now
			s.LastShotAt = now
			e.log.append(now, st.Frame, EventDefenderActivated, unitPayload{ID: s.BuildingID, Pos: s.Origin})
			e.logger.Debug("sentry activated", zap.Int("sentry", s.BuildingID))
		case !active && s.Active:
			s.Active = false
			for i := range s.Bullets {
				if !s.Bullets[i].Resolved {
					s.Bullets[i].SpawnedAt = now.Add(-delay)
				}
			}
		}
	}
}

// fireSentries lets every active sentry shoot if its fire period has passed,
// then lands every bullet whose flight time is over.
func (e *Engine) fireSentries(now time.Time) ([]Bullet, []BulletHit) {
	st := e.state
	att := st.Attacker
	delay := e.cfg.BulletCollisionDelay()
	var (
		fired []Bullet
		hits  []BulletHit
	)

	for _, s := range st.Sentries {
		if s.Active && att.IsAlive() && s.FireRate > 0 {
			period := time.Second / time.Duration(s.FireRate)
			if now.Sub(s.LastShotAt) >= period {
				bullet := Bullet{
					ID:        e.nextBulletID(),
					SentryID:  s.BuildingID,
					Damage:    e.cfg.BulletDamageForLevel(s.Level),
					SpawnedAt: now,
				}
				s.Bullets = append(s.Bullets, bullet)
				s.LastShotAt = now
				fired = append(fired, bullet)
			}
		}
	}
	if len(fired) > 0 {
		e.log.append(now, st.Frame, EventBulletShooting, fired)
	}

	for _, s := range st.Sentries {
		for i := range s.Bullets {
			bullet := &s.Bullets[i]
			if bullet.Resolved {
				continue
			}
			if !att.IsAlive() {
				bullet.Resolved = true
				continue
			}
			if now.Sub(bullet.SpawnedAt) < delay {
				continue
			}
			bullet.Resolved = true
			st.damageAttacker(bullet.Damage)
			hits = append(hits, BulletHit{
				BulletID:       bullet.ID,
				SentryID:       s.BuildingID,
				Damage:         bullet.Damage,
				AttackerHealth: att.Health,
			})
		}
		s.Bullets = pendingBullets(s.Bullets)
	}
	return fired, hits
}

func pendingBullets(bullets []Bullet) []Bullet {
	kept := bullets[:0]
	for _, b := range bullets {
		if !b.Resolved {
			kept = append(kept, b)
		}
	}
	return kept
}

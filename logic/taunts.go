package logic

import "time"

// TauntTrigger names the moment that may earn a taunt.
type TauntTrigger string

const (
	TauntHutTriggered       TauntTrigger = "HutTriggered"
	TauntDefendersActivated TauntTrigger = "DefendersActivated"
	TauntMineExploded       TauntTrigger = "MineExploded"
	TauntBombHit            TauntTrigger = "BombHit"
	TauntBombMissed         TauntTrigger = "BombMissed"
	TauntHalfBase           TauntTrigger = "HalfBaseDestroyed"
)

// TauntStats is the battle summary handed to the taunt service.
type TauntStats struct {
	DamagePercentage float64
	Artifacts        int
	AttackersLeft    int
	AttackerHealth   int
}

// Taunter produces flavor text. One instance belongs to one session.
// Notify may be ignored (rate limit, budget); Take hands out a line at most once.
type Taunter interface {
	Notify(now time.Time, trigger TauntTrigger, stats TauntStats)
	Take() (string, bool)
}

type noTaunts struct{}

func (noTaunts) Notify(time.Time, TauntTrigger, TauntStats) {}

func (noTaunts) Take() (string, bool) { return "", false }

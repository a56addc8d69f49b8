// Package taunt produces the defending side's flavor text. One Service is
// created per session and injected into the engine; nothing here is global.
package taunt

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"siege_server/logic"
)

// Config bounds how chatty a session's taunt service is.
type Config struct {
	Enabled     bool
	MaxRequests int
	Delay       time.Duration
}

// FromGameConfig reads the taunts section.
func FromGameConfig(cfg *logic.GameConfig) Config {
	return Config{
		Enabled:     cfg.Taunts.Enabled,
		MaxRequests: cfg.Taunts.MaxRequests,
		Delay:       time.Duration(cfg.Taunts.DelayMs) * time.Millisecond,
	}
}

type line func(st logic.TauntStats) string

var lines = map[logic.TauntTrigger][]line{
	logic.TauntHutTriggered: {
		func(st logic.TauntStats) string {
			return fmt.Sprintf("You woke the hut. Its garrison is coming for your last %d health.", st.AttackerHealth)
		},
		func(st logic.TauntStats) string {
			return fmt.Sprintf("Hut defenders deployed. %d attackers left won't be enough.", st.AttackersLeft)
		},
	},
	logic.TauntDefendersActivated: {
		func(st logic.TauntStats) string {
			return fmt.Sprintf("My defenders have your scent. %.0f%% of the base is all you will ever see.", st.DamagePercentage)
		},
		func(st logic.TauntStats) string {
			return fmt.Sprintf("Run. %d health will not outrun them.", st.AttackerHealth)
		},
	},
	logic.TauntMineExploded: {
		func(st logic.TauntStats) string {
			return fmt.Sprintf("Watch your step. That mine left you at %d health.", st.AttackerHealth)
		},
		func(st logic.TauntStats) string {
			return fmt.Sprintf("Boom. %d attackers left and counting down.", st.AttackersLeft)
		},
	},
	logic.TauntBombHit: {
		func(st logic.TauntStats) string {
			return fmt.Sprintf("A scratch. %.0f%% damage and you call that a siege?", st.DamagePercentage)
		},
		func(st logic.TauntStats) string {
			return fmt.Sprintf("%d artifacts. Enjoy them while you can.", st.Artifacts)
		},
	},
	logic.TauntBombMissed: {
		func(st logic.TauntStats) string {
			return fmt.Sprintf("You bombed an empty road. %.0f%% damage so far.", st.DamagePercentage)
		},
		func(logic.TauntStats) string {
			return "Nice fireworks. Nothing broke."
		},
	},
	logic.TauntHalfBase: {
		func(logic.TauntStats) string {
			return "Half the base is rubble. The other half is where you die."
		},
		func(st logic.TauntStats) string {
			return fmt.Sprintf("%.0f%% down. Every step from here costs more.", st.DamagePercentage)
		},
	},
}

// Service implements logic.Taunter. A line is produced only when the
// session still has taunt budget and the limiter allows it; each produced
// line is handed out by Take exactly once.
type Service struct {
	cfg     Config
	limiter *rate.Limiter
	issued  int
	pending string
	ready   bool
	history []string
}

var _ logic.Taunter = (*Service)(nil)

func New(cfg Config) *Service {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Service{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (s *Service) Notify(now time.Time, trigger logic.TauntTrigger, stats logic.TauntStats) {
	if !s.cfg.Enabled || s.issued >= s.cfg.MaxRequests {
		return
	}
	options := lines[trigger]
	if len(options) == 0 {
		return
	}
	if !s.limiter.AllowN(now, 1) {
		return
	}
	s.pending = options[s.issued%len(options)](stats)
	s.ready = true
	s.issued++
	s.history = append(s.history, s.pending)
}

func (s *Service) Take() (string, bool) {
	if !s.ready {
		return "", false
	}
	s.ready = false
	return s.pending, true
}

// History lists every line produced, oldest first.
func (s *Service) History() []string {
	return append([]string(nil), s.history...)
}

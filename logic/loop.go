package logic

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Phase of a session's lifecycle.
type Phase int

const (
	PhaseAwaitingAttacker Phase = iota
	PhaseInProgress
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingAttacker:
		return "awaiting_attacker"
	case PhaseInProgress:
		return "in_progress"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Deps are the collaborators injected into an Engine. Only Config is
// required; everything else has an in-process default.
type Deps struct {
	Config *GameConfig
	Routes RouteOracle
	Clock  Clock
	Taunts Taunter
	Logger *zap.Logger
}

// Engine is the authoritative combat state machine for one attack session.
// It is not safe for concurrent use: the session driver owns it and calls
// Step once per decoded action.
type Engine struct {
	cfg    *GameConfig
	board  *BaseMap
	routes RouteOracle
	clock  Clock
	taunts Taunter
	scorer *Scorer
	logger *zap.Logger

	state *State
	phase Phase
	log   *GameLog

	attackerTypes map[int]AttackerType
	bombTypes     map[int]BombType

	lastEntityID  int
	lastBulletID  int
	halfBaseTaunt bool
}

// NewEngine hydrates a session from a snapshot. A snapshot that references
// entities it does not define fails with ErrSnapshot.
func NewEngine(snap *Snapshot, deps Deps) (*Engine, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot: %w", ErrSnapshot)
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = DefaultGameConfig()
	}
	size := snap.Size
	if size <= 0 {
		size = cfg.Map.Size
	}
	board := NewBaseMap(size, snap.Roads)

	e := &Engine{
		cfg:           cfg,
		board:         board,
		routes:        deps.Routes,
		clock:         deps.Clock,
		taunts:        deps.Taunts,
		logger:        deps.Logger,
		attackerTypes: make(map[int]AttackerType, len(snap.AttackerTypes)),
		bombTypes:     make(map[int]BombType, len(snap.BombTypes)),
	}
	if e.routes == nil {
		e.routes = NewRouteTable(board)
	}
	if e.clock == nil {
		e.clock = ClockFunc(time.Now)
	}
	if e.taunts == nil {
		e.taunts = noTaunts{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if cfg.Companion.ScoreExpr != "" {
		scorer, err := NewScorer(cfg.Companion.ScoreExpr)
		if err != nil {
			return nil, err
		}
		e.scorer = scorer
	}

	for _, at := range snap.AttackerTypes {
		e.attackerTypes[at.ID] = at
	}
	for _, bt := range snap.BombTypes {
		e.bombTypes[bt.ID] = bt
	}

	now := e.clock.Now()
	state, err := NewState(snap, now)
	if err != nil {
		return nil, err
	}
	e.state = state
	if err := e.checkPlacement(); err != nil {
		return nil, err
	}

	for _, d := range state.Defenders {
		e.lastEntityID = max(e.lastEntityID, d.ID)
	}
	for _, h := range state.Huts {
		e.lastEntityID = max(e.lastEntityID, h.Template.ID)
	}

	e.log = newGameLog(now.UnixNano(), e.logger)
	e.log.append(now, 0, EventGameStart, struct {
		MapID     int `json:"map_id"`
		Buildings int `json:"buildings"`
		Defenders int `json:"defenders"`
		Mines     int `json:"mines"`
	}{snap.MapID, len(state.Buildings), len(state.Defenders), len(state.Mines)})

	e.logger.Info("session hydrated",
		zap.Int("map_id", snap.MapID),
		zap.Int("buildings", len(state.Buildings)),
		zap.Int("defenders", len(state.Defenders)),
		zap.Int("huts", len(state.Huts)),
		zap.Int("sentries", len(state.Sentries)),
		zap.Int("mines", len(state.Mines)),
	)
	return e, nil
}

// checkPlacement rejects layouts the AI could not act on: mobile units off
// the road network and huts with nowhere to spawn.
func (e *Engine) checkPlacement() error {
	for _, d := range e.state.Defenders {
		if d.Alive && !e.board.IsRoad(d.Pos) {
			return fmt.Errorf("defender %d at %v is off road: %w", d.ID, d.Pos, ErrSnapshot)
		}
	}
	for _, b := range e.state.Buildings {
		hut, ok := e.state.Huts[b.ID]
		if !ok {
			continue
		}
		if hut.Template.Health <= 0 {
			return fmt.Errorf("hut %d template has no health: %w", b.ID, ErrSnapshot)
		}
		if hut.Capacity > 0 && len(e.board.RoadsAround(b.Origin, b.Width)) == 0 {
			return fmt.Errorf("hut %d has no adjacent road: %w", b.ID, ErrSnapshot)
		}
	}
	return nil
}

// Step applies one client action and returns the tick's outcome. Protocol
// violations come back as a GameOver result, not an error. An error means an
// internal fault; the engine is terminated and the driver should close.
func (e *Engine) Step(a Action) (*TickResult, error) {
	if e.phase == PhaseTerminated {
		return nil, ErrSessionTerminated
	}

	var (
		res *TickResult
		err error
	)
	switch a.ActionType {
	case ActionPlaceAttacker:
		res, err = e.placeAttacker(a)
	case ActionPlaceCompanion:
		res, err = e.placeCompanion(a)
	case ActionMoveAttacker:
		res, err = e.moveAttacker(a)
	case ActionIsMine:
		res = e.isMine(a)
	case ActionPlaceBombs:
		res = e.placeBombs(a)
	case ActionIdle:
		res = e.idle(a)
	case ActionSelfDestruct:
		res = e.selfDestruct(a)
	case ActionTerminate:
		res = &TickResult{Frame: a.FrameNumber, Primary: ResultGameOver, GameOver: true, Message: "Game over"}
	case ActionCheckBullets:
		res = e.checkBullets(a)
	case ActionUavStatus:
		res = e.uavStatus(a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.ActionType)
	}
	if err != nil {
		e.phase = PhaseTerminated
		e.log.append(e.clock.Now(), a.FrameNumber, EventGameOver, reasonPayload{Reason: err.Error(), DamagePercentage: e.state.DamagePercentage})
		e.logger.Error("session aborted", zap.String("action", string(a.ActionType)), zap.Int("frame", a.FrameNumber), zap.Error(err))
		return nil, err
	}
	e.finish(res)
	return res, nil
}

// finish stamps the cumulative fields every result carries and handles the
// terminal transition.
func (e *Engine) finish(res *TickResult) {
	st := e.state
	now := e.clock.Now()
	res.DamagePercentage = st.DamagePercentage

	if !res.GameOver && !e.halfBaseTaunt && st.DamagePercentage >= 50 {
		e.halfBaseTaunt = true
		e.notify(now, TauntHalfBase)
	}
	if !res.GameOver {
		if line, ok := e.taunts.Take(); ok {
			res.Taunt = line
		}
	}

	if res.GameOver {
		e.phase = PhaseTerminated
		e.log.append(now, res.Frame, EventGameOver, reasonPayload{Reason: res.Message, DamagePercentage: st.DamagePercentage})
		e.logger.Info("session over",
			zap.String("reason", res.Message),
			zap.Bool("invalidated", st.Invalidation.Invalidated),
			zap.Float64("damage_percentage", st.DamagePercentage),
			zap.Int("artifacts", st.Artifacts),
		)
	}
}

// reject flags the session and produces the terminal GameOver result.
func (e *Engine) reject(frame int, reason string) *TickResult {
	e.state.invalidate(reason)
	e.log.append(e.clock.Now(), frame, EventInvalidated, reasonPayload{Reason: reason, DamagePercentage: e.state.DamagePercentage})
	e.logger.Info("session invalidated", zap.String("reason", reason), zap.Int("frame", frame))
	return &TickResult{Frame: frame, Primary: ResultGameOver, GameOver: true, Message: reason}
}

func (e *Engine) notify(now time.Time, trigger TauntTrigger) {
	st := e.state
	stats := TauntStats{
		DamagePercentage: st.DamagePercentage,
		Artifacts:        st.Artifacts,
		AttackersLeft:    max(0, e.cfg.Combat.Lives-st.DeathCount),
	}
	if st.Attacker != nil {
		stats.AttackerHealth = st.Attacker.Health
	}
	e.taunts.Notify(now, trigger, stats)
}

func (e *Engine) nextEntityID() int {
	e.lastEntityID++
	return e.lastEntityID
}

func (e *Engine) nextBulletID() int {
	e.lastBulletID++
	return e.lastBulletID
}

// Close ends a session that did not reach GameOver through an action, for
// example when the connection dropped or the watchdog fired.
func (e *Engine) Close(reason string) {
	if e.phase == PhaseTerminated {
		return
	}
	e.phase = PhaseTerminated
	e.log.append(e.clock.Now(), e.state.Frame, EventGameOver, reasonPayload{Reason: reason, DamagePercentage: e.state.DamagePercentage})
	e.logger.Info("session closed", zap.String("reason", reason))
}

// Phase reports the lifecycle phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// State exposes the world for inspection. Callers must not mutate it.
func (e *Engine) State() *State {
	return e.state
}

// Log returns the ordered game log.
func (e *Engine) Log() []LogEntry {
	return e.log.Entries()
}

// Summary is the result record persisted at teardown.
func (e *Engine) Summary() Summary {
	st := e.state
	return Summary{
		DamagePercentage: st.DamagePercentage,
		Artifacts:        st.Artifacts,
		BombsUsed:        st.BombsUsed,
		AttackersUsed:    st.AttackersPlaced,
		Frames:           st.Frame,
		Invalidated:      st.Invalidation.Invalidated,
		Reason:           st.Invalidation.Reason,
	}
}

package logic

// ActionType enum (inbound)
type ActionType string

const (
	ActionPlaceAttacker  ActionType = "PlaceAttacker"
	ActionPlaceCompanion ActionType = "PlaceCompanion"
	ActionMoveAttacker   ActionType = "MoveAttacker"
	ActionIsMine         ActionType = "IsMine"
	ActionPlaceBombs     ActionType = "PlaceBombs"
	ActionIdle           ActionType = "Idle"
	ActionSelfDestruct   ActionType = "SelfDestruct"
	ActionTerminate      ActionType = "Terminate"
	ActionCheckBullets   ActionType = "CheckBullets"
	ActionUavStatus      ActionType = "UavStatus"
)

// ResultType enum (outbound)
type ResultType string

const (
	ResultPlacedAttacker   ResultType = "PlacedAttacker"
	ResultPlacedCompanion  ResultType = "PlacedCompanion"
	ResultMinesExploded    ResultType = "MinesExploded"
	ResultDefendersDamaged ResultType = "DefendersDamaged"
	ResultBuildingsDamaged ResultType = "BuildingsDamaged"
	ResultSpawnHutDefender ResultType = "SpawnHutDefender"
	ResultBulletHit        ResultType = "BulletHit"
	ResultUAV              ResultType = "UAV"
	ResultGameOver         ResultType = "GameOver"
	ResultNothing          ResultType = "Nothing"
)

// Action is one decoded client frame.
type Action struct {
	ActionType      ActionType `json:"action_type"`
	FrameNumber     int        `json:"frame_number"`
	CurrentPosition *Coords    `json:"current_position,omitempty"`
	AttackerID      *int       `json:"attacker_id,omitempty"`
	BombID          *int       `json:"bomb_id,omitempty"`
	BombPosition    *Coords    `json:"bomb_position,omitempty"`
}

// DefenderHit is a defender that reached the attacker this tick.
type DefenderHit struct {
	DefenderID int    `json:"defender_id"`
	Position   Coords `json:"position"`
	Damage     int    `json:"damage"`
}

// BuildingDamage reports a building's HP after a hit.
type BuildingDamage struct {
	ID             int    `json:"id"`
	Position       Coords `json:"position"`
	HP             int    `json:"hp"`
	ArtifactsTaken int    `json:"artifacts_if_damaged"`
}

// DefenderDamage reports a defender's health after a hit.
type DefenderDamage struct {
	ID       int    `json:"id"`
	Position Coords `json:"position"`
	Health   int    `json:"health"`
}

// BaseItemsDamage groups what a bomb or the companion damaged.
type BaseItemsDamage struct {
	Buildings []BuildingDamage `json:"buildings_damaged"`
	Defenders []DefenderDamage `json:"defenders_damaged"`
}

func (d *BaseItemsDamage) empty() bool {
	return d == nil || (len(d.Buildings) == 0 && len(d.Defenders) == 0)
}

// BulletHit is a sentry bullet that landed on the attacker.
type BulletHit struct {
	BulletID       int `json:"bullet_id"`
	SentryID       int `json:"sentry_id"`
	Damage         int `json:"damage"`
	AttackerHealth int `json:"attacker_health"`
}

// CompanionResult is the companion's view after its AI step.
type CompanionResult struct {
	ID              int             `json:"id"`
	Pos             Coords          `json:"pos"`
	Health          int             `json:"health"`
	IsAlive         bool            `json:"is_alive"`
	Target          CompanionTarget `json:"target"`
	BombsLeft       int             `json:"bombs_left"`
	BuildingDamaged *BuildingDamage `json:"building_damaged,omitempty"`
	DefenderDamaged *DefenderDamage `json:"defender_damaged,omitempty"`
}

// baseDamage mirrors the companion's strike into the damaged base items
// report. Nil when nothing was hit.
func (c *CompanionResult) baseDamage() *BaseItemsDamage {
	if c == nil || (c.BuildingDamaged == nil && c.DefenderDamaged == nil) {
		return nil
	}
	d := &BaseItemsDamage{Buildings: []BuildingDamage{}, Defenders: []DefenderDamage{}}
	if c.BuildingDamaged != nil {
		d.Buildings = append(d.Buildings, *c.BuildingDamaged)
	}
	if c.DefenderDamaged != nil {
		d.Defenders = append(d.Defenders, *c.DefenderDamaged)
	}
	return d
}

// TickResult is the structured outcome of one Step: a single primary
// classification plus every sub-result produced during the tick.
type TickResult struct {
	Frame            int
	Primary          ResultType
	Message          string
	GameOver         bool
	AttackerAlive    *bool
	AttackerHealth   *int
	ExplodedMines    []Mine
	DefenderHits     []DefenderHit
	BaseDamage       *BaseItemsDamage
	HutSpawns        []Defender
	BulletsFired     []Bullet
	BulletHits       []BulletHit
	RevealedMines    []Mine
	Companion        *CompanionResult
	DamagePercentage float64
	Taunt            string
}

// Event is the outbound wire message.
type Event struct {
	FrameNumber           int              `json:"frame_number"`
	ResultType            ResultType       `json:"result_type"`
	IsAlive               *bool            `json:"is_alive,omitempty"`
	AttackerHealth        *int             `json:"attacker_health,omitempty"`
	ExplodedMines         []Mine           `json:"exploded_mines,omitempty"`
	DefenderDamaged       []DefenderHit    `json:"defender_damaged,omitempty"`
	DamagedBaseItems      *BaseItemsDamage `json:"damaged_base_items,omitempty"`
	HutTriggered          bool             `json:"hut_triggered"`
	HutDefenders          []Defender       `json:"hut_defenders,omitempty"`
	TotalDamagePercentage float64          `json:"total_damage_percentage"`
	IsGameOver            bool             `json:"is_game_over"`
	Message               string           `json:"message"`
	Companion             *CompanionResult `json:"companion,omitempty"`
	BulletHits            []BulletHit      `json:"bullet_hits,omitempty"`
	RevealedMines         []Mine           `json:"revealed_mines,omitempty"`
	ShootBullets          []Bullet         `json:"shoot_bullets,omitempty"`
	NewTaunt              *string          `json:"new_taunt,omitempty"`
}

// Event flattens the tick result into a single wire message.
func (r *TickResult) Event() Event {
	ev := Event{
		FrameNumber:           r.Frame,
		ResultType:            r.Primary,
		IsAlive:               r.AttackerAlive,
		AttackerHealth:        r.AttackerHealth,
		ExplodedMines:         r.ExplodedMines,
		DefenderDamaged:       r.DefenderHits,
		DamagedBaseItems:      r.BaseDamage,
		HutTriggered:          len(r.HutSpawns) > 0,
		HutDefenders:          r.HutSpawns,
		TotalDamagePercentage: r.DamagePercentage,
		IsGameOver:            r.GameOver,
		Message:               r.Message,
		Companion:             r.Companion,
		BulletHits:            r.BulletHits,
		RevealedMines:         r.RevealedMines,
		ShootBullets:          r.BulletsFired,
	}
	if r.Taunt != "" {
		t := r.Taunt
		ev.NewTaunt = &t
	}
	return ev
}

// TimeoutEvent is the synthetic GameOver sent when a session outlives its age.
func TimeoutEvent() Event {
	return Event{
		ResultType: ResultGameOver,
		IsGameOver: true,
		Message:    "Connection timed out",
	}
}

package logic

import "time"

// Coords represents a tile on the base grid
type Coords struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BuildingKind enum
type BuildingKind string

const (
	BuildingPlain     BuildingKind = "PLAIN"
	BuildingDefensive BuildingKind = "DEFENSIVE"
	BuildingHut       BuildingKind = "HUT"
	BuildingSentry    BuildingKind = "SENTRY"
)

// Building is any structure placed on the base. Range, Frequency and Level are
// only meaningful for defensive kinds (huts and sentries).
type Building struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Kind      BuildingKind `json:"kind"`
	Origin    Coords       `json:"origin"`
	Width     int          `json:"width"`
	HP        int          `json:"hp"`
	TotalHP   int          `json:"total_hp"`
	Artifacts int          `json:"artifacts"`
	Range     int          `json:"range"`
	Frequency int          `json:"frequency"`
	Level     int          `json:"level"`
}

// AttackerType is a catalog entry used for both attackers and companions.
type AttackerType struct {
	ID        int `json:"id"`
	MaxHealth int `json:"max_health"`
	Speed     int `json:"speed"`
	BombCount int `json:"bomb_count"`
}

// BombType is a catalog entry for detonations.
type BombType struct {
	ID     int `json:"id"`
	Radius int `json:"radius"`
	Damage int `json:"damage"`
}

// BombInventory is a bomb type plus how many are left.
type BombInventory struct {
	BombType
	Count int `json:"count"`
}

// Attacker is the unit piloted by the client.
type Attacker struct {
	ID                int    `json:"id"`
	Pos               Coords `json:"pos"`
	Health            int    `json:"health"`
	Speed             int    `json:"speed"`
	BombCount         int    `json:"bomb_count"`
	TriggeredDefender bool   `json:"triggered_defender"`
}

// IsAlive reports whether the attacker still has health.
func (a *Attacker) IsAlive() bool {
	return a != nil && a.Health > 0
}

// TargetKind enum
type TargetKind string

const (
	TargetNone     TargetKind = "NONE"
	TargetDefender TargetKind = "DEFENDER"
	TargetBuilding TargetKind = "BUILDING"
)

// CompanionTarget is what the companion has committed to.
type CompanionTarget struct {
	Kind    TargetKind `json:"kind"`
	ID      int        `json:"id"`
	Tile    Coords     `json:"tile"`
	Reached bool       `json:"reached"`
}

// Companion is the support unit that fights on its own.
type Companion struct {
	ID             int             `json:"id"`
	Pos            Coords          `json:"pos"`
	Health         int             `json:"health"`
	Speed          int             `json:"speed"`
	Damage         int             `json:"damage"`
	Range          int             `json:"range"`
	AttackInterval int             `json:"attack_interval"`
	Cooldown       int             `json:"cooldown"`
	Target         CompanionTarget `json:"target"`
}

// IsAlive reports whether the companion still has health.
func (c *Companion) IsAlive() bool {
	return c != nil && c.Health > 0
}

// Idle reports whether the companion has no committed target.
func (c *Companion) Idle() bool {
	return c.Target.Kind == TargetNone || c.Target.Kind == ""
}

func (c *Companion) release() {
	c.Target = CompanionTarget{Kind: TargetNone}
	c.Cooldown = 0
}

// Defender is a mobile base unit. It stays put until an attacker walks into
// its radius, then chases it one tile per tick.
type Defender struct {
	ID       int    `json:"id"`
	Pos      Coords `json:"pos"`
	Speed    int    `json:"speed"`
	Damage   int    `json:"damage"`
	Radius   int    `json:"radius"`
	Health   int    `json:"health"`
	Alive    bool   `json:"alive"`
	Targeted bool   `json:"targeted"`
	HutID    int    `json:"hut_id,omitempty"`
}

// Mine is single use and removed once triggered.
type Mine struct {
	ID     int    `json:"id"`
	Pos    Coords `json:"pos"`
	Radius int    `json:"radius"`
	Damage int    `json:"damage"`
}

// Bullet is one sentry shot. It always lands after the collision delay.
type Bullet struct {
	ID        int       `json:"id"`
	SentryID  int       `json:"sentry_id"`
	Damage    int       `json:"damage"`
	SpawnedAt time.Time `json:"spawned_at"`
	Resolved  bool      `json:"resolved"`
}

// Sentry is the ranged state attached to a sentry building.
type Sentry struct {
	BuildingID  int       `json:"building_id"`
	Origin      Coords    `json:"origin"`
	Range       int       `json:"range"`
	FireRate    int       `json:"fire_rate"`
	Level       int       `json:"level"`
	Active      bool      `json:"active"`
	ActivatedAt time.Time `json:"activated_at"`
	LastShotAt  time.Time `json:"last_shot_at"`
	Bullets     []Bullet  `json:"bullets"`
}

// Hut spawns clones of its template defender once triggered.
type Hut struct {
	BuildingID  int           `json:"building_id"`
	Capacity    int           `json:"capacity"`
	Radius      int           `json:"radius"`
	Interval    time.Duration `json:"interval"`
	Triggered   bool          `json:"triggered"`
	LastSpawnAt *time.Time    `json:"last_spawn_at,omitempty"`
	Template    Defender      `json:"template"`
}

// HutSpec carries the hut-only attributes of a hut building.
type HutSpec struct {
	BuildingID int      `json:"building_id"`
	Capacity   int      `json:"capacity"`
	Template   Defender `json:"template"`
}

// Snapshot is the fully hydrated entity set for one base layout.
type Snapshot struct {
	MapID         int            `json:"map_id"`
	Size          int            `json:"size"`
	Roads         []Coords       `json:"roads"`
	Buildings     []Building     `json:"buildings"`
	Huts          []HutSpec      `json:"huts"`
	Defenders     []Defender     `json:"defenders"`
	Mines         []Mine         `json:"mines"`
	AttackerTypes []AttackerType `json:"attacker_types"`
	BombTypes     []BombType     `json:"bomb_types"`
}

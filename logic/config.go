package logic

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// GameConfig mirrors config.json
type GameConfig struct {
	Server struct {
		Addr               string  `json:"addr"`
		GameAgeMinutes     int     `json:"game_age_minutes"`
		WatchdogIntervalMs int     `json:"watchdog_interval_ms"`
		WriteTimeoutMs     int     `json:"write_timeout_ms"`
		MaxMessageBytes    int     `json:"max_message_bytes"`
		HandshakeRate      float64 `json:"handshake_rate"`
		HandshakeBurst     int     `json:"handshake_burst"`
	} `json:"server"`
	Map struct {
		Size int `json:"size"`
	} `json:"map"`
	Combat struct {
		Lives                int     `json:"lives"`
		BombDamageMultiplier float64 `json:"bomb_damage_multiplier"`
		ArtifactFraction     float64 `json:"artifact_fraction"`
		BulletCollisionMs    int     `json:"bullet_collision_ms"`
		BulletDamage         [3]int  `json:"bullet_damage"`
	} `json:"combat"`
	Companion struct {
		Range          int    `json:"range"`
		Damage         int    `json:"damage"`
		AttackInterval int    `json:"attack_interval"`
		ScoreExpr      string `json:"score_expr"`
	} `json:"companion"`
	UAV struct {
		Enabled bool `json:"enabled"`
		Radius  int  `json:"radius"`
	} `json:"uav"`
	Taunts struct {
		Enabled     bool `json:"enabled"`
		MaxRequests int  `json:"max_requests"`
		DelayMs     int  `json:"delay_ms"`
	} `json:"taunts"`
	Storage struct {
		SQLitePath  string `json:"sqlite_path"`
		PostgresDSN string `json:"postgres_dsn"`
		BasesDir    string `json:"bases_dir"`
	} `json:"storage"`
	Logging struct {
		Level       string `json:"level"`
		Development bool   `json:"development"`
	} `json:"logging"`
}

// DefaultGameConfig returns the values used when config.json leaves a field out.
func DefaultGameConfig() *GameConfig {
	cfg := &GameConfig{}
	cfg.Server.Addr = ":8080"
	cfg.Server.GameAgeMinutes = 6
	cfg.Server.WatchdogIntervalMs = 1000
	cfg.Server.WriteTimeoutMs = 5000
	cfg.Server.MaxMessageBytes = 4096
	cfg.Server.HandshakeRate = 2
	cfg.Server.HandshakeBurst = 5

	cfg.Map.Size = 40

	cfg.Combat.Lives = 3
	cfg.Combat.BombDamageMultiplier = 5
	cfg.Combat.ArtifactFraction = 0.3
	cfg.Combat.BulletCollisionMs = 500
	cfg.Combat.BulletDamage = [3]int{5, 8, 12}

	cfg.Companion.Range = 40
	cfg.Companion.Damage = 30
	cfg.Companion.AttackInterval = 10

	cfg.UAV.Enabled = true
	cfg.UAV.Radius = 3

	cfg.Taunts.Enabled = true
	cfg.Taunts.MaxRequests = 5
	cfg.Taunts.DelayMs = 10000

	cfg.Storage.SQLitePath = "siege.db"
	cfg.Storage.BasesDir = "bases"

	cfg.Logging.Level = "info"
	return cfg
}

// LoadGameConfig reads a JSON config on top of the defaults and clamps it.
func LoadGameConfig(path string) (*GameConfig, error) {
	cfg := DefaultGameConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	ClampGameConfig(cfg)
	return cfg, nil
}

// BulletCollisionDelay is the fixed flight time of every sentry bullet.
func (cfg *GameConfig) BulletCollisionDelay() time.Duration {
	return time.Duration(cfg.Combat.BulletCollisionMs) * time.Millisecond
}

// GameAge is the wall-clock budget of one session.
func (cfg *GameConfig) GameAge() time.Duration {
	return time.Duration(cfg.Server.GameAgeMinutes) * time.Minute
}

// BulletDamageForLevel maps a sentry level onto one of the three damage tiers.
func (cfg *GameConfig) BulletDamageForLevel(level int) int {
	switch {
	case level >= 3:
		return cfg.Combat.BulletDamage[2]
	case level == 2:
		return cfg.Combat.BulletDamage[1]
	default:
		return cfg.Combat.BulletDamage[0]
	}
}

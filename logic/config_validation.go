package logic

import "math"

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampFloat(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// ClampGameConfig enforces hard safety bounds for session configs.
// It mutates cfg in-place so callers can accept operator-provided values while guaranteeing sane limits.
func ClampGameConfig(cfg *GameConfig) {
	if cfg == nil {
		return
	}

	// --- server ---
	cfg.Server.GameAgeMinutes = clampInt(cfg.Server.GameAgeMinutes, 1, 60)
	cfg.Server.WatchdogIntervalMs = clampInt(cfg.Server.WatchdogIntervalMs, 10, 10000)
	cfg.Server.WriteTimeoutMs = clampInt(cfg.Server.WriteTimeoutMs, 100, 60000)
	cfg.Server.MaxMessageBytes = clampInt(cfg.Server.MaxMessageBytes, 256, 1<<20)
	cfg.Server.HandshakeRate = clampFloat(cfg.Server.HandshakeRate, 0.1, 1000)
	cfg.Server.HandshakeBurst = clampInt(cfg.Server.HandshakeBurst, 1, 1000)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	// --- map ---
	cfg.Map.Size = clampInt(cfg.Map.Size, 8, 256)

	// --- combat ---
	cfg.Combat.Lives = clampInt(cfg.Combat.Lives, 1, 10)
	cfg.Combat.BombDamageMultiplier = clampFloat(cfg.Combat.BombDamageMultiplier, 0.1, 100)
	cfg.Combat.ArtifactFraction = clampFloat(cfg.Combat.ArtifactFraction, 0.0, 1.0)
	cfg.Combat.BulletCollisionMs = clampInt(cfg.Combat.BulletCollisionMs, 0, 10000)
	for i := range cfg.Combat.BulletDamage {
		cfg.Combat.BulletDamage[i] = clampInt(cfg.Combat.BulletDamage[i], 0, 1000)
	}

	// --- companion ---
	cfg.Companion.Range = clampInt(cfg.Companion.Range, 1, 512)
	cfg.Companion.Damage = clampInt(cfg.Companion.Damage, 0, 10000)
	cfg.Companion.AttackInterval = clampInt(cfg.Companion.AttackInterval, 1, 1000)

	// --- uav ---
	cfg.UAV.Radius = clampInt(cfg.UAV.Radius, 0, 64)

	// --- taunts ---
	cfg.Taunts.MaxRequests = clampInt(cfg.Taunts.MaxRequests, 0, 100)
	cfg.Taunts.DelayMs = clampInt(cfg.Taunts.DelayMs, 0, 600000)

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

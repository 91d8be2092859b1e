package models

import (
	"time"
)

// Scope types for UserScopeStat.
const (
	ScopeCourse = "course"
	ScopeUnit   = "unit"
)

// UserGamificationStat is the per-user global aggregate (denormalized for performance).
// Created lazily on first award; mutated only inside the award transaction.
// global_level is always recomputed from total_xp via the level curve.
type UserGamificationStat struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	TotalXP     int64 `json:"total_xp" gorm:"default:0"`
	GlobalLevel int   `json:"global_level" gorm:"default:0"`

	// Streaks: consecutive calendar days with at least one XP-earning action.
	CurrentStreak    int        `json:"current_streak" gorm:"default:0"`
	LongestStreak    int        `json:"longest_streak" gorm:"default:0"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`

	StatsUpdatedAt time.Time `json:"stats_updated_at"`

	Timestamps
}

// UserScopeStat holds XP earned inside a single course or unit, one row per
// (user, scope_type, scope_id). Created lazily the first time a scoped
// action is awarded.
type UserScopeStat struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"type:uuid;not null;index:idx_user_scope,unique,priority:1" json:"user_id"`
	ScopeType string `gorm:"size:16;not null;index:idx_user_scope,unique,priority:2" json:"scope_type"` // course | unit
	ScopeID   string `gorm:"type:uuid;not null;index:idx_user_scope,unique,priority:3" json:"scope_id"`

	TotalXP      int64 `json:"total_xp" gorm:"default:0"`
	CurrentLevel int   `json:"current_level" gorm:"default:0"`

	Timestamps
}

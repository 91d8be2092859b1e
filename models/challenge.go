package models

import (
	"time"

	"gorm.io/datatypes"
)

// Challenge types
const (
	ChallengeDaily   = "daily"
	ChallengeWeekly  = "weekly"
	ChallengeSpecial = "special"
)

// Assignment statuses. completed and expired are terminal.
const (
	AssignmentPending    = "pending"
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
	AssignmentExpired    = "expired"
)

// Challenge: admin-managed template. Immutable during a sweep.
type Challenge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"` // slugged from title, e.g., "complete-3-lessons"
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `gorm:"size:16;not null;index" json:"type"` // daily | weekly | special

	Criteria     datatypes.JSON `json:"criteria,omitempty"` // e.g., {"action": "lesson_complete", "count": 3}
	TargetCount  int            `gorm:"default:1" json:"target_count"`
	PointsReward int64          `gorm:"not null" json:"points_reward"`
	BadgeCode    string         `gorm:"size:64" json:"badge_code,omitempty"`

	// Optional active window; nil means open-ended on that side.
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	IsActive bool       `gorm:"default:true" json:"is_active"`

	Timestamps
}

// UserChallengeAssignment: one user's instance of a challenge for one
// period. PeriodKey ("2026-08-31" for daily, "2026-W36" for weekly, the
// literal "special" for special challenges, which are one-shot per user)
// backs the unique constraint so concurrent sweeps cannot double-assign.
type UserChallengeAssignment struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"type:uuid;not null;index;index:idx_assignment_period,unique,priority:1" json:"user_id"`
	ChallengeID string `gorm:"type:uuid;not null;index:idx_assignment_period,unique,priority:2" json:"challenge_id"`
	PeriodKey   string `gorm:"size:16;not null;index:idx_assignment_period,unique,priority:3" json:"period_key"`

	Status          string    `gorm:"size:16;not null;default:'pending';index" json:"status"`
	AssignedDate    time.Time `gorm:"not null" json:"assigned_date"`
	ExpiresAt       time.Time `gorm:"not null;index" json:"expires_at"`
	CurrentProgress int       `gorm:"default:0" json:"current_progress"`

	Challenge Challenge `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`

	Timestamps
}

// UserChallengeCompletion: append-only completion history, written by the
// progress tracker when an assignment reaches its target.
type UserChallengeCompletion struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"type:uuid;not null;index" json:"user_id"`
	ChallengeID string `gorm:"type:uuid;not null" json:"challenge_id"`

	CompletedDate time.Time      `gorm:"not null;index" json:"completed_date"`
	XPEarned      int64          `gorm:"default:0" json:"xp_earned"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`

	Challenge Challenge `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

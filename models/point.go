package models

import (
	"time"

	"gorm.io/gorm"
)

// Source types recognised by the scope resolver. Anything else is stored
// as-is on the ledger but resolves no scopes.
const (
	SourceSystem     = "system"
	SourceLesson     = "lesson"
	SourceAssignment = "assignment"
	SourceCourse     = "course"
	SourceGrade      = "grade"
	SourceAttempt    = "attempt"
)

// Point is one entry in the XP ledger. Rows are written once and never
// updated; aggregates are derived from them.
//
// DedupeKey backs the allow_multiple=false guard: idempotent awards write
// the (user, source_type, source_id, reason) tuple into it, and the unique
// index rejects a second row even when two calls race past the pre-check.
// Regular awards leave it NULL and may repeat freely.
type Point struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string  `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount      int64   `gorm:"not null" json:"amount"`
	Reason      string  `gorm:"size:64;not null" json:"reason"`
	SourceType  string  `gorm:"size:32;not null;default:'system'" json:"source_type"`
	SourceID    *string `gorm:"type:uuid;index" json:"source_id,omitempty"`
	Description string  `json:"description,omitempty"`
	DedupeKey   *string `gorm:"size:255;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

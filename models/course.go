package models

import "time"

// Content-structure entities. Owned by the LMS; mirrored here so the scope
// resolver and the enrollment-eligibility query work against local rows.

// Attachment targets for AssignmentTask.
const (
	AttachableCourse = "course"
	AttachableUnit   = "unit"
	AttachableLesson = "lesson"
)

// Enrollment statuses that make a user eligible for challenge sweeps.
const (
	EnrollmentActive    = "active"
	EnrollmentPending   = "pending"
	EnrollmentCompleted = "completed"
	EnrollmentDropped   = "dropped"
)

type Course struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	IsPublished bool   `gorm:"default:true" json:"is_published"`

	Timestamps
}

type Unit struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	CourseID string `gorm:"type:uuid;not null;index" json:"course_id"`
	Title    string `gorm:"not null" json:"title"`
	Position int    `gorm:"default:0" json:"position"`

	Timestamps
}

type Lesson struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UnitID   string `gorm:"type:uuid;not null;index" json:"unit_id"`
	Title    string `gorm:"not null" json:"title"`
	Position int    `gorm:"default:0" json:"position"`

	Timestamps
}

// AssignmentTask may be attached to a course, a unit, or a single lesson.
// Named Task to avoid colliding with challenge "assignments".
type AssignmentTask struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	Title          string `gorm:"not null" json:"title"`
	AttachableType string `gorm:"size:16;not null" json:"attachable_type"` // course | unit | lesson
	AttachableID   string `gorm:"type:uuid;not null;index" json:"attachable_id"`

	Timestamps
}

// Grade points back at whatever was graded; when the source is an
// assignment the resolver follows it one more hop.
type Grade struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string  `gorm:"type:uuid;not null;index" json:"user_id"`
	SourceType string  `gorm:"size:32;not null" json:"source_type"` // assignment | lesson | ...
	SourceID   string  `gorm:"type:uuid;not null" json:"source_id"`
	Score      float64 `gorm:"default:0" json:"score"`

	Timestamps
}

// LessonAttempt records one run through a lesson (quiz attempt, replay).
type LessonAttempt struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string     `gorm:"type:uuid;not null;index" json:"user_id"`
	LessonID    string     `gorm:"type:uuid;not null;index" json:"lesson_id"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// Enrollment mirrors the LMS enrollment table (kept fresh by the sync
// worker). The sweep population is every distinct user with an active or
// pending row.
type Enrollment struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;index:idx_enrollment_user_course,unique,priority:1" json:"user_id"`
	CourseID string `gorm:"type:uuid;not null;index:idx_enrollment_user_course,unique,priority:2" json:"course_id"`
	Status   string `gorm:"size:16;not null;default:'active';index" json:"status"`

	Timestamps
}

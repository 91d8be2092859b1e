package models

import (
	"math"
	"time"
)

// LevelConfig: admin-managed threshold table driving the level curve.
// Row N holds the XP cost to advance from level N-1 to level N. The engine
// reads it through a TTL cache and never writes it.
type LevelConfig struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Level      int       `gorm:"uniqueIndex;not null" json:"level"`
	XPRequired int64     `gorm:"not null" json:"xp_required"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Milestone: display-only achievement thresholds, ordered by SortOrder.
// Never gates any engine behavior.
type Milestone struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Code          string `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_STEPS"
	Title         string `gorm:"not null" json:"title"`
	Description   string `json:"description,omitempty"`
	XPRequired    int64  `gorm:"not null" json:"xp_required"`
	LevelRequired int    `gorm:"default:0" json:"level_required"`
	BadgeCode     string `gorm:"size:64" json:"badge_code,omitempty"` // icon lives in the asset service
	SortOrder     int    `gorm:"default:0;index" json:"sort_order"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// DefaultLevelConfigs seeds the threshold table with the legacy geometric
// curve (100 * 1.1^(level-1)) so fresh installs level identically to old
// ones. After seeding the table is authoritative; the formula is not used
// anywhere else.
func DefaultLevelConfigs(maxLevel int) []LevelConfig {
	configs := make([]LevelConfig, 0, maxLevel)
	for lvl := 1; lvl <= maxLevel; lvl++ {
		cost := int64(math.Round(100 * math.Pow(1.1, float64(lvl-1))))
		configs = append(configs, LevelConfig{Level: lvl, XPRequired: cost})
	}
	return configs
}

// Predefined milestones (seeded once, then admin-managed)
var DefaultMilestones = []Milestone{
	{
		Code:       "FIRST_STEPS",
		Title:      "First Steps",
		XPRequired: 100,
		BadgeCode:  "first-steps",
		SortOrder:  1,
		IsActive:   true,
	},
	{
		Code:       "GETTING_SERIOUS",
		Title:      "Getting Serious",
		XPRequired: 1000,
		BadgeCode:  "getting-serious",
		SortOrder:  2,
		IsActive:   true,
	},
	{
		Code:          "DEDICATED_LEARNER",
		Title:         "Dedicated Learner",
		XPRequired:    5000,
		LevelRequired: 10,
		BadgeCode:     "dedicated-learner",
		SortOrder:     3,
		IsActive:      true,
	},
	{
		Code:          "SCHOLAR",
		Title:         "Scholar",
		XPRequired:    25000,
		LevelRequired: 25,
		BadgeCode:     "scholar",
		SortOrder:     4,
		IsActive:      true,
	},
}

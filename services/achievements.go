package services

import (
	"learning-gamification-system/models"

	"gorm.io/gorm"
)

// AchievementProgress is one milestone evaluated against a user's XP.
type AchievementProgress struct {
	Code          string  `json:"code"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	BadgeCode     string  `json:"badge_code,omitempty"`
	XPRequired    int64   `json:"xp_required"`
	LevelRequired int     `json:"level_required"`
	Achieved      bool    `json:"achieved"`
	Progress      float64 `json:"progress"` // 0–100
}

type AchievementSummary struct {
	Achievements  []AchievementProgress `json:"achievements"`
	NextMilestone *AchievementProgress  `json:"next_milestone,omitempty"`
	CurrentXP     int64                 `json:"current_xp"`
	CurrentLevel  int                   `json:"current_level"`
}

// AchievementService computes milestone progress for display. Read-only;
// milestones never gate engine behavior.
type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

func (s *AchievementService) GetAchievements(totalXP int64, currentLevel int) (*AchievementSummary, error) {
	var milestones []models.Milestone
	err := s.DB.Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&milestones).Error
	if err != nil {
		return nil, err
	}

	summary := &AchievementSummary{
		Achievements: make([]AchievementProgress, 0, len(milestones)),
		CurrentXP:    totalXP,
		CurrentLevel: currentLevel,
	}
	for _, m := range milestones {
		progress := 100.0
		if m.XPRequired > 0 {
			progress = float64(totalXP) / float64(m.XPRequired) * 100
			if progress > 100 {
				progress = 100
			}
		}
		entry := AchievementProgress{
			Code:          m.Code,
			Title:         m.Title,
			Description:   m.Description,
			BadgeCode:     m.BadgeCode,
			XPRequired:    m.XPRequired,
			LevelRequired: m.LevelRequired,
			Achieved:      totalXP >= m.XPRequired,
			Progress:      progress,
		}
		summary.Achievements = append(summary.Achievements, entry)
		if !entry.Achieved && summary.NextMilestone == nil {
			next := entry
			summary.NextMilestone = &next
		}
	}
	return summary, nil
}

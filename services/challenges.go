package services

import (
	"errors"
	"time"

	"learning-gamification-system/models"
	"learning-gamification-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// DefaultChallengeCacheTTL bounds staleness of the active-challenge lookup.
const DefaultChallengeCacheTTL = 2 * time.Minute

// recentCompletionWindow keeps just-finished challenges visible on the
// user's list for a few days.
const recentCompletionWindow = 7 * 24 * time.Hour

// ChallengeService is the read side of the challenge catalog plus the admin
// write path. Assignments are only ever created by the processor.
type ChallengeService struct {
	DB    *gorm.DB
	cache *utils.TTLCache[*models.Challenge]
}

func NewChallengeService(db *gorm.DB) *ChallengeService {
	return &ChallengeService{
		DB:    db,
		cache: utils.NewTTLCache[*models.Challenge](DefaultChallengeCacheTTL),
	}
}

// GetActiveChallenge returns the challenge only while it is inside its
// active window; (nil, nil) otherwise. Cached briefly per id.
func (s *ChallengeService) GetActiveChallenge(id string) (*models.Challenge, error) {
	now := time.Now()
	if ch, ok := s.cache.Get(id); ok {
		if challengeIsActive(ch, now) {
			return ch, nil
		}
		return nil, nil
	}

	var ch models.Challenge
	err := s.DB.Where("id = ?", id).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(id, &ch)
	if !challengeIsActive(&ch, now) {
		return nil, nil
	}
	return &ch, nil
}

func challengeIsActive(ch *models.Challenge, now time.Time) bool {
	if !ch.IsActive {
		return false
	}
	if ch.StartsAt != nil && now.Before(*ch.StartsAt) {
		return false
	}
	if ch.EndsAt != nil && now.After(*ch.EndsAt) {
		return false
	}
	return true
}

// GetUserChallenges lists the user's open assignments — pending or in
// progress, plus completions from the last week — that have not yet
// expired, soonest expiry first.
func (s *ChallengeService) GetUserChallenges(userID string) ([]models.UserChallengeAssignment, error) {
	now := time.Now()
	var assignments []models.UserChallengeAssignment
	err := s.DB.
		Where("user_id = ? AND expires_at > ? AND (status IN ? OR (status = ? AND updated_at > ?))",
			userID, now,
			[]string{models.AssignmentPending, models.AssignmentInProgress},
			models.AssignmentCompleted, now.Add(-recentCompletionWindow)).
		Preload("Challenge").
		Order("expires_at ASC").
		Find(&assignments).Error
	return assignments, err
}

// GetCompletedChallenges returns the most recent completion history, newest
// first.
func (s *ChallengeService) GetCompletedChallenges(userID string, limit int) ([]models.UserChallengeCompletion, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	var completions []models.UserChallengeCompletion
	err := s.DB.
		Where("user_id = ?", userID).
		Preload("Challenge").
		Order("completed_date DESC").
		Limit(limit).
		Find(&completions).Error
	return completions, err
}

// HasActiveAssignment reports whether the user already holds a live (or
// completed) assignment for the challenge. For daily/weekly periods the
// check is confined to the current day / ISO week, so yesterday's expired
// copy never blocks today's sweep.
func (s *ChallengeService) HasActiveAssignment(userID, challengeID, periodType string) (bool, error) {
	now := time.Now()
	query := s.DB.Model(&models.UserChallengeAssignment{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Where("status IN ?", []string{
			models.AssignmentPending,
			models.AssignmentInProgress,
			models.AssignmentCompleted,
		}).
		Where("expires_at > ?", now)

	switch periodType {
	case models.ChallengeDaily:
		query = query.Where("assigned_date >= ?", startOfDay(now))
	case models.ChallengeWeekly:
		query = query.Where("assigned_date >= ?", startOfISOWeek(now))
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateChallenge inserts a catalog entry (admin path). The code is slugged
// from the title when not provided, and the lookup cache is dropped so the
// new definition is visible immediately.
func (s *ChallengeService) CreateChallenge(ch *models.Challenge) error {
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.Code == "" {
		ch.Code = slug.Make(ch.Title)
	}
	if err := s.DB.Create(ch).Error; err != nil {
		return err
	}
	s.cache.InvalidateAll()
	return nil
}

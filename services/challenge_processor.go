package services

import (
	"errors"
	"log"
	"time"

	"learning-gamification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignmentBatchSize bounds how many users a sweep loads at once.
const assignmentBatchSize = 100

// ChallengeProcessor runs the scheduled sweeps: batch-assigning daily and
// weekly challenges to the enrolled population and expiring overdue
// assignments. Invoked by the scheduler, never by the award path.
type ChallengeProcessor struct {
	DB         *gorm.DB
	Challenges *ChallengeService
}

func NewChallengeProcessor(db *gorm.DB, challenges *ChallengeService) *ChallengeProcessor {
	return &ChallengeProcessor{DB: db, Challenges: challenges}
}

func (p *ChallengeProcessor) AssignDailyChallenges() (int, error) {
	return p.assignChallenges(models.ChallengeDaily)
}

func (p *ChallengeProcessor) AssignWeeklyChallenges() (int, error) {
	return p.assignChallenges(models.ChallengeWeekly)
}

// assignChallenges streams eligible users in fixed-size batches (keyset on
// user_id) and creates one pending assignment per missing (user, challenge)
// pair. A failure on one pair is logged and skipped; the returned count
// reflects successful inserts only.
func (p *ChallengeProcessor) assignChallenges(challengeType string) (int, error) {
	now := time.Now()

	var challenges []models.Challenge
	err := p.DB.
		Where("type = ? AND is_active = ?", challengeType, true).
		Where("(starts_at IS NULL OR starts_at <= ?)", now).
		Where("(ends_at IS NULL OR ends_at >= ?)", now).
		Find(&challenges).Error
	if err != nil {
		return 0, err
	}
	if len(challenges) == 0 {
		return 0, nil
	}

	key := periodKey(challengeType, now)
	expiresAt := periodExpiry(challengeType, now)
	assigned := 0
	lastUserID := ""

	for {
		var userIDs []string
		err := p.DB.Model(&models.Enrollment{}).
			Distinct("user_id").
			Where("status IN ?", []string{models.EnrollmentActive, models.EnrollmentPending}).
			Where("user_id > ?", lastUserID).
			Order("user_id ASC").
			Limit(assignmentBatchSize).
			Pluck("user_id", &userIDs).Error
		if err != nil {
			return assigned, err
		}
		if len(userIDs) == 0 {
			break
		}

		for _, userID := range userIDs {
			for _, ch := range challenges {
				exists, err := p.Challenges.HasActiveAssignment(userID, ch.ID, challengeType)
				if err != nil {
					log.Printf("⚠️ [SWEEP] duplicate check failed user=%s challenge=%s: %v", userID, ch.Code, err)
					continue
				}
				if exists {
					continue
				}

				assignment := models.UserChallengeAssignment{
					ID:           uuid.NewString(),
					UserID:       userID,
					ChallengeID:  ch.ID,
					PeriodKey:    key,
					Status:       models.AssignmentPending,
					AssignedDate: startOfDay(now),
					ExpiresAt:    expiresAt,
				}
				if err := p.DB.Create(&assignment).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						continue // concurrent sweep got there first
					}
					log.Printf("⚠️ [SWEEP] assignment failed user=%s challenge=%s: %v", userID, ch.Code, err)
					continue
				}
				assigned++
			}
		}

		lastUserID = userIDs[len(userIDs)-1]
		if len(userIDs) < assignmentBatchSize {
			break
		}
	}

	if assigned > 0 {
		log.Printf("📋 Assigned %d %s challenge(s)", assigned, challengeType)
	}
	return assigned, nil
}

// ExpireOverdueChallenges flips every pending/in-progress assignment whose
// expiry has passed to expired in one bulk update. Completed assignments
// are never touched.
func (p *ChallengeProcessor) ExpireOverdueChallenges() (int, error) {
	result := p.DB.Model(&models.UserChallengeAssignment{}).
		Where("status IN ? AND expires_at < ?",
			[]string{models.AssignmentPending, models.AssignmentInProgress},
			time.Now()).
		Update("status", models.AssignmentExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("⏳ Expired %d overdue challenge assignment(s)", result.RowsAffected)
	}
	return int(result.RowsAffected), nil
}

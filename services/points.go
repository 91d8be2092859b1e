package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"learning-gamification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errDuplicateAward aborts the transaction when the ledger's unique index
// rejects a second award for the same tuple; mapped to a silent no-op.
var errDuplicateAward = errors.New("duplicate award")

// AwardOptions tune a single AwardXP call. A nil options pointer means:
// generic system source, repeat awards allowed.
type AwardOptions struct {
	SourceType  string
	SourceID    string
	Description string
	// AllowMultiple=false makes the award idempotent per
	// (user, source_type, source_id, reason); the source id may be empty,
	// in which case the tuple dedupes on the remaining fields.
	AllowMultiple bool
}

// PointsService is the transactional core: one AwardXP call appends a
// ledger row and updates the global aggregate, scope aggregates and streak
// in a single transaction.
type PointsService struct {
	DB     *gorm.DB
	Levels *LevelService
	Scopes *ScopeResolver
}

func NewPointsService(db *gorm.DB, levels *LevelService, scopes *ScopeResolver) *PointsService {
	return &PointsService{DB: db, Levels: levels, Scopes: scopes}
}

// AwardXP records a point award and rolls every derived aggregate forward.
// Returns (nil, nil) for the guarded no-ops: non-positive points, or an
// already-awarded tuple under AllowMultiple=false. On any other failure the
// whole transaction rolls back and nothing is persisted.
func (s *PointsService) AwardXP(userID string, points int64, reason string, opts *AwardOptions) (*models.Point, error) {
	if points <= 0 {
		return nil, nil
	}

	sourceType := models.SourceSystem
	sourceID := ""
	description := ""
	allowMultiple := true
	if opts != nil {
		if opts.SourceType != "" {
			sourceType = opts.SourceType
		}
		sourceID = opts.SourceID
		description = opts.Description
		allowMultiple = opts.AllowMultiple
	}

	var dedupeKey *string
	if !allowMultiple {
		key := fmt.Sprintf("%s:%s:%s:%s", userID, sourceType, sourceID, reason)
		dedupeKey = &key

		// Fast path; the unique index on dedupe_key catches the race.
		var count int64
		err := s.DB.Model(&models.Point{}).
			Where("dedupe_key = ?", key).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, nil
		}
	}

	var entry models.Point
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		entry = models.Point{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      points,
			Reason:      reason,
			SourceType:  sourceType,
			Description: description,
		}
		if sourceID != "" {
			entry.SourceID = &sourceID
		}
		entry.DedupeKey = dedupeKey
		if err := tx.Create(&entry).Error; err != nil {
			if dedupeKey != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateAward
			}
			return err
		}

		stat, err := s.applyToGlobalStat(tx, userID, points)
		if err != nil {
			return err
		}

		if sourceType != models.SourceSystem && sourceID != "" {
			scopes, unresolved := s.Scopes.ResolveScopes(sourceType, sourceID)
			for _, note := range unresolved {
				log.Printf("⚠️ [XP] scope resolution degraded for user %s: %s", userID, note)
			}
			if scopes.CourseID != nil {
				if err := s.applyToScopeStat(tx, userID, models.ScopeCourse, *scopes.CourseID, points); err != nil {
					return err
				}
			}
			if scopes.UnitID != nil {
				if err := s.applyToScopeStat(tx, userID, models.ScopeUnit, *scopes.UnitID, points); err != nil {
					return err
				}
			}
		}

		if err := s.updateStreak(tx, stat); err != nil {
			return err
		}

		log.Printf("🎓 XP awarded: user=%s +%d (reason: %s) → total=%d, lvl=%d, streak=%d",
			userID, points, reason, stat.TotalXP, stat.GlobalLevel, stat.CurrentStreak)
		return nil
	})
	if errors.Is(err, errDuplicateAward) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// applyToGlobalStat bumps total_xp with a single-statement increment (no
// fetch-add-save window), then re-reads and recomputes the level so the
// global_level == LevelFromXP(total_xp) invariant holds on commit.
func (s *PointsService) applyToGlobalStat(tx *gorm.DB, userID string, points int64) (*models.UserGamificationStat, error) {
	stat, err := getOrCreateStats(tx, userID)
	if err != nil {
		return nil, err
	}

	err = tx.Model(&models.UserGamificationStat{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_xp":         gorm.Expr("total_xp + ?", points),
			"stats_updated_at": time.Now(),
		}).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Where("user_id = ?", userID).First(stat).Error; err != nil {
		return nil, err
	}

	level, err := s.Levels.LevelFromXP(stat.TotalXP)
	if err != nil {
		return nil, err
	}
	if err := tx.Model(stat).Update("global_level", level).Error; err != nil {
		return nil, err
	}
	stat.GlobalLevel = level
	return stat, nil
}

func (s *PointsService) applyToScopeStat(tx *gorm.DB, userID, scopeType, scopeID string, points int64) error {
	var stat models.UserScopeStat
	err := tx.Where("user_id = ? AND scope_type = ? AND scope_id = ?", userID, scopeType, scopeID).
		First(&stat).Error
	if err == gorm.ErrRecordNotFound {
		stat = models.UserScopeStat{
			ID:        uuid.NewString(),
			UserID:    userID,
			ScopeType: scopeType,
			ScopeID:   scopeID,
		}
		if err := tx.Create(&stat).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	} else if err != nil {
		return err
	}

	err = tx.Model(&models.UserScopeStat{}).
		Where("user_id = ? AND scope_type = ? AND scope_id = ?", userID, scopeType, scopeID).
		Update("total_xp", gorm.Expr("total_xp + ?", points)).Error
	if err != nil {
		return err
	}
	// Re-read into a reset struct: after a lost create race the old
	// struct still carries the failed insert's id, which must not
	// constrain the query.
	stat = models.UserScopeStat{}
	if err := tx.Where("user_id = ? AND scope_type = ? AND scope_id = ?", userID, scopeType, scopeID).
		First(&stat).Error; err != nil {
		return err
	}

	level, err := s.Levels.LevelFromXP(stat.TotalXP)
	if err != nil {
		return err
	}
	return tx.Model(&stat).Update("current_level", level).Error
}

// updateStreak advances the daily streak against today's calendar date.
// Multiple awards on the same day leave the streak untouched.
func (s *PointsService) updateStreak(tx *gorm.DB, stat *models.UserGamificationStat) error {
	today := dateOnly(time.Now().UTC())
	yesterday := today.AddDate(0, 0, -1)

	switch {
	case stat.LastActivityDate == nil:
		stat.CurrentStreak = 1
	case dateOnly(*stat.LastActivityDate).Equal(today):
		// Already counted today.
	case dateOnly(*stat.LastActivityDate).Equal(yesterday):
		stat.CurrentStreak++
	default:
		stat.CurrentStreak = 1
	}
	if stat.CurrentStreak > stat.LongestStreak {
		stat.LongestStreak = stat.CurrentStreak
	}
	stat.LastActivityDate = &today

	return tx.Model(stat).Updates(map[string]interface{}{
		"current_streak":     stat.CurrentStreak,
		"longest_streak":     stat.LongestStreak,
		"last_activity_date": stat.LastActivityDate,
	}).Error
}

// GetOrCreateStats returns the user's global aggregate, creating the row on
// first access.
func (s *PointsService) GetOrCreateStats(userID string) (*models.UserGamificationStat, error) {
	return getOrCreateStats(s.DB, userID)
}

func getOrCreateStats(tx *gorm.DB, userID string) (*models.UserGamificationStat, error) {
	var stat models.UserGamificationStat
	err := tx.Where("user_id = ?", userID).First(&stat).Error
	if err == gorm.ErrRecordNotFound {
		stat = models.UserGamificationStat{
			ID:             uuid.NewString(),
			UserID:         userID,
			StatsUpdatedAt: time.Now(),
		}
		if err := tx.Create(&stat).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Lost the create race; the row exists now. Reset the
				// struct first so the failed insert's id does not leak
				// into the re-read conditions.
				stat = models.UserGamificationStat{}
				err = tx.Where("user_id = ?", userID).First(&stat).Error
			}
			if err != nil {
				return nil, err
			}
		}
		return &stat, nil
	}
	if err != nil {
		return nil, err
	}
	return &stat, nil
}

// GetPointsHistory returns one page of the user's ledger, newest first,
// optionally filtered by source type and/or reason.
func (s *PointsService) GetPointsHistory(userID string, page, size int, sourceType, reason string) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := s.DB.Model(&models.Point{}).Where("user_id = ?", userID)
	if sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}
	if reason != "" {
		query = query.Where("reason = ?", reason)
	}

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, err
	}

	var entries []models.Point
	err := query.
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((totalItems + int64(size) - 1) / int64(size))
	return map[string]interface{}{
		"points":      entries,
		"page":        page,
		"size":        size,
		"total_items": totalItems,
		"total_pages": totalPages,
	}, nil
}

// dateOnly truncates to a calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package services

import (
	"fmt"
	"testing"
	"time"

	"learning-gamification-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newPointsService(t *testing.T, db *gorm.DB) *PointsService {
	t.Helper()
	return NewPointsService(db, NewLevelService(db), NewScopeResolver(db))
}

func TestAwardXP_AppendsLedgerAndRecomputesLevel(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100, 200, 300)
	svc := newPointsService(t, db)
	userID := uuid.NewString()

	entry, err := svc.AwardXP(userID, 250, "lesson_complete", nil)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(250), entry.Amount)
	assert.Equal(t, models.SourceSystem, entry.SourceType)

	stat, err := svc.GetOrCreateStats(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), stat.TotalXP)
	assert.Equal(t, 1, stat.GlobalLevel) // 250 pays 100, cannot pay 200

	// Second award keeps the invariant global_level == LevelFromXP(total_xp).
	_, err = svc.AwardXP(userID, 350, "assignment_submit", nil)
	require.NoError(t, err)

	stat, err = svc.GetOrCreateStats(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), stat.TotalXP)
	assert.Equal(t, 3, stat.GlobalLevel)

	var ledgerCount int64
	require.NoError(t, db.Model(&models.Point{}).Where("user_id = ?", userID).Count(&ledgerCount).Error)
	assert.Equal(t, int64(2), ledgerCount)
}

func TestAwardXP_NonPositiveIsGuardedNoOp(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100)
	svc := newPointsService(t, db)
	userID := uuid.NewString()

	for _, points := range []int64{0, -10} {
		entry, err := svc.AwardXP(userID, points, "lesson_complete", nil)
		require.NoError(t, err)
		assert.Nil(t, entry)
	}

	var ledgerCount, statCount int64
	require.NoError(t, db.Model(&models.Point{}).Count(&ledgerCount).Error)
	require.NoError(t, db.Model(&models.UserGamificationStat{}).Count(&statCount).Error)
	assert.Zero(t, ledgerCount)
	assert.Zero(t, statCount)
}

func TestAwardXP_IdempotentPerSourceTuple(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100)
	svc := newPointsService(t, db)
	userID := uuid.NewString()
	lessonID := uuid.NewString()

	opts := &AwardOptions{
		SourceType:    models.SourceLesson,
		SourceID:      lessonID,
		AllowMultiple: false,
	}

	first, err := svc.AwardXP(userID, 30, "lesson_complete", opts)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.AwardXP(userID, 30, "lesson_complete", opts)
	require.NoError(t, err)
	assert.Nil(t, second, "duplicate award must be a silent no-op")

	var ledgerCount int64
	require.NoError(t, db.Model(&models.Point{}).Where("user_id = ?", userID).Count(&ledgerCount).Error)
	assert.Equal(t, int64(1), ledgerCount)

	stat, err := svc.GetOrCreateStats(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), stat.TotalXP)

	// A different reason for the same source is a distinct tuple.
	third, err := svc.AwardXP(userID, 10, "lesson_review", opts)
	require.NoError(t, err)
	assert.NotNil(t, third)
}

func TestAwardXP_ScopedAggregation(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100, 200)
	svc := newPointsService(t, db)
	userID := uuid.NewString()
	courseID, unitID, lessonID := seedContentChain(t, db)

	// Unrelated course the award must not touch.
	otherCourseID := uuid.NewString()
	require.NoError(t, db.Create(&models.Course{ID: otherCourseID, Title: "Other"}).Error)

	_, err := svc.AwardXP(userID, 50, "lesson_complete", &AwardOptions{
		SourceType:    models.SourceLesson,
		SourceID:      lessonID,
		AllowMultiple: true,
	})
	require.NoError(t, err)

	var courseStat, unitStat models.UserScopeStat
	require.NoError(t, db.Where("user_id = ? AND scope_type = ? AND scope_id = ?",
		userID, models.ScopeCourse, courseID).First(&courseStat).Error)
	require.NoError(t, db.Where("user_id = ? AND scope_type = ? AND scope_id = ?",
		userID, models.ScopeUnit, unitID).First(&unitStat).Error)
	assert.Equal(t, int64(50), courseStat.TotalXP)
	assert.Equal(t, int64(50), unitStat.TotalXP)
	assert.Equal(t, 0, courseStat.CurrentLevel)

	var otherCount int64
	require.NoError(t, db.Model(&models.UserScopeStat{}).
		Where("scope_id = ?", otherCourseID).Count(&otherCount).Error)
	assert.Zero(t, otherCount)

	// Second award accumulates into the same scope rows.
	_, err = svc.AwardXP(userID, 70, "lesson_complete", &AwardOptions{
		SourceType:    models.SourceLesson,
		SourceID:      lessonID,
		AllowMultiple: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Where("id = ?", courseStat.ID).First(&courseStat).Error)
	assert.Equal(t, int64(120), courseStat.TotalXP)
	assert.Equal(t, 1, courseStat.CurrentLevel)
}

func TestAwardXP_ResolverFailureNeverBlocksAward(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100)
	svc := newPointsService(t, db)
	userID := uuid.NewString()

	// Lesson id that doesn't exist: no scopes resolve, award still lands.
	entry, err := svc.AwardXP(userID, 40, "lesson_complete", &AwardOptions{
		SourceType:    models.SourceLesson,
		SourceID:      uuid.NewString(),
		AllowMultiple: true,
	})
	require.NoError(t, err)
	require.NotNil(t, entry)

	stat, err := svc.GetOrCreateStats(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), stat.TotalXP)

	var scopeCount int64
	require.NoError(t, db.Model(&models.UserScopeStat{}).Where("user_id = ?", userID).Count(&scopeCount).Error)
	assert.Zero(t, scopeCount)
}

func setLastActivity(t *testing.T, db *gorm.DB, userID string, daysAgo int) {
	t.Helper()
	day := time.Now().UTC().AddDate(0, 0, -daysAgo)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&models.UserGamificationStat{}).
		Where("user_id = ?", userID).
		Update("last_activity_date", day).Error)
}

func TestAwardXP_StreakLifecycle(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100)
	svc := newPointsService(t, db)
	userID := uuid.NewString()

	// First ever activity starts the streak.
	_, err := svc.AwardXP(userID, 10, "lesson_complete", nil)
	require.NoError(t, err)
	stat, _ := svc.GetOrCreateStats(userID)
	assert.Equal(t, 1, stat.CurrentStreak)
	assert.Equal(t, 1, stat.LongestStreak)

	// Same-day re-award must not inflate it.
	_, err = svc.AwardXP(userID, 10, "lesson_complete", nil)
	require.NoError(t, err)
	stat, _ = svc.GetOrCreateStats(userID)
	assert.Equal(t, 1, stat.CurrentStreak)

	// Yesterday's activity extends the streak.
	setLastActivity(t, db, userID, 1)
	_, err = svc.AwardXP(userID, 10, "lesson_complete", nil)
	require.NoError(t, err)
	stat, _ = svc.GetOrCreateStats(userID)
	assert.Equal(t, 2, stat.CurrentStreak)
	assert.Equal(t, 2, stat.LongestStreak)

	// A gap of three days resets the streak but keeps the longest.
	setLastActivity(t, db, userID, 3)
	_, err = svc.AwardXP(userID, 10, "lesson_complete", nil)
	require.NoError(t, err)
	stat, _ = svc.GetOrCreateStats(userID)
	assert.Equal(t, 1, stat.CurrentStreak)
	assert.Equal(t, 2, stat.LongestStreak)

	require.NotNil(t, stat.LastActivityDate)
	today := time.Now().UTC()
	assert.Equal(t, today.Day(), stat.LastActivityDate.Day())
}

func TestGetPointsHistory_PaginatesAndFilters(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100)
	svc := newPointsService(t, db)
	userID := uuid.NewString()

	for i := 0; i < 25; i++ {
		reason := "lesson_complete"
		if i%5 == 0 {
			reason = "assignment_submit"
		}
		_, err := svc.AwardXP(userID, 5, reason, &AwardOptions{
			SourceType:    models.SourceLesson,
			SourceID:      uuid.NewString(),
			Description:   fmt.Sprintf("entry %d", i),
			AllowMultiple: true,
		})
		require.NoError(t, err)
	}

	page, err := svc.GetPointsHistory(userID, 2, 10, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(25), page["total_items"])
	assert.Equal(t, 3, page["total_pages"])
	assert.Len(t, page["points"].([]models.Point), 10)

	filtered, err := svc.GetPointsHistory(userID, 1, 50, "", "assignment_submit")
	require.NoError(t, err)
	assert.Equal(t, int64(5), filtered["total_items"])
}

func TestAwardXP_IdempotentWithoutSource(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100)
	svc := newPointsService(t, db)
	userID := uuid.NewString()

	// No source id: the guard still dedupes on the remaining tuple fields.
	opts := &AwardOptions{AllowMultiple: false}
	first, err := svc.AwardXP(userID, 20, "welcome_bonus", opts)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.AwardXP(userID, 20, "welcome_bonus", opts)
	require.NoError(t, err)
	assert.Nil(t, second)

	var ledgerCount int64
	require.NoError(t, db.Model(&models.Point{}).Where("user_id = ?", userID).Count(&ledgerCount).Error)
	assert.Equal(t, int64(1), ledgerCount)

	stat, err := svc.GetOrCreateStats(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), stat.TotalXP)
}

// raceWinnerCallback inserts a competing row for the given table right
// before our own insert runs, reproducing a concurrent caller winning the
// get-or-create race between the miss and the create.
func raceWinnerCallback(t *testing.T, db *gorm.DB, table, insertSQL string, args ...interface{}) *bool {
	t.Helper()
	injected := false
	err := db.Callback().Create().Before("gorm:create").Register("race_winner_"+table, func(d *gorm.DB) {
		if injected || d.Statement.Schema == nil || d.Statement.Schema.Table != table {
			return
		}
		injected = true
		if err := db.Exec(insertSQL, args...).Error; err != nil {
			t.Errorf("failed to inject race winner: %v", err)
		}
	})
	require.NoError(t, err)
	return &injected
}

func TestGetOrCreateStats_LostCreateRace(t *testing.T) {
	db := newTestDB(t)
	svc := newPointsService(t, db)
	userID := uuid.NewString()
	winnerID := uuid.NewString()

	injected := raceWinnerCallback(t, db, "user_gamification_stats",
		"INSERT INTO user_gamification_stats (id, user_id) VALUES (?, ?)", winnerID, userID)

	stat, err := svc.GetOrCreateStats(userID)
	require.NoError(t, err, "losing the create race must recover by reading the winner's row")
	assert.True(t, *injected)
	assert.Equal(t, winnerID, stat.ID)

	var count int64
	require.NoError(t, db.Model(&models.UserGamificationStat{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplyToScopeStat_LostCreateRace(t *testing.T) {
	db := newTestDB(t)
	seedLevels(t, db, 100)
	svc := newPointsService(t, db)
	userID, courseID := uuid.NewString(), uuid.NewString()
	winnerID := uuid.NewString()

	injected := raceWinnerCallback(t, db, "user_scope_stats",
		"INSERT INTO user_scope_stats (id, user_id, scope_type, scope_id, total_xp) VALUES (?, ?, ?, ?, ?)",
		winnerID, userID, models.ScopeCourse, courseID, int64(60))

	require.NoError(t, svc.applyToScopeStat(db, userID, models.ScopeCourse, courseID, 50))
	assert.True(t, *injected)

	var stat models.UserScopeStat
	require.NoError(t, db.Where("user_id = ? AND scope_type = ? AND scope_id = ?",
		userID, models.ScopeCourse, courseID).First(&stat).Error)
	assert.Equal(t, winnerID, stat.ID, "winner's row accumulates, no second row")
	assert.Equal(t, int64(110), stat.TotalXP)
	assert.Equal(t, 1, stat.CurrentLevel)
}

func TestGetOrCreateStats_LazyCreation(t *testing.T) {
	db := newTestDB(t)
	svc := newPointsService(t, db)
	userID := uuid.NewString()

	stat, err := svc.GetOrCreateStats(userID)
	require.NoError(t, err)
	assert.Equal(t, userID, stat.UserID)
	assert.Zero(t, stat.TotalXP)
	assert.Nil(t, stat.LastActivityDate)

	again, err := svc.GetOrCreateStats(userID)
	require.NoError(t, err)
	assert.Equal(t, stat.ID, again.ID)
}

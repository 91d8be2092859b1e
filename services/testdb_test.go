package services

import (
	"testing"

	"learning-gamification-system/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema.
// Single connection so every session sees the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Point{},
		&models.UserGamificationStat{},
		&models.UserScopeStat{},
		&models.LevelConfig{},
		&models.Milestone{},
		&models.Challenge{},
		&models.UserChallengeAssignment{},
		&models.UserChallengeCompletion{},
		&models.Course{},
		&models.Unit{},
		&models.Lesson{},
		&models.AssignmentTask{},
		&models.Grade{},
		&models.LessonAttempt{},
		&models.Enrollment{},
	))
	return db
}

// seedLevels writes a threshold table where costs[i] is the XP needed to
// advance from level i to level i+1.
func seedLevels(t *testing.T, db *gorm.DB, costs ...int64) {
	t.Helper()
	for i, cost := range costs {
		require.NoError(t, db.Create(&models.LevelConfig{Level: i + 1, XPRequired: cost}).Error)
	}
}

package services

import (
	"fmt"
	"time"

	"learning-gamification-system/models"
)

// Calendar-period helpers for challenge assignment windows. Weekly periods
// follow ISO weeks (Monday start).

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}

func startOfISOWeek(t time.Time) time.Time {
	day := startOfDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func endOfISOWeek(t time.Time) time.Time {
	return startOfISOWeek(t).AddDate(0, 0, 7).Add(-time.Second)
}

// periodKey identifies the assignment period for the uniqueness constraint:
// "2026-08-31" for daily, "2026-W35" for weekly, the fixed window marker
// for special challenges.
func periodKey(challengeType string, now time.Time) string {
	switch challengeType {
	case models.ChallengeDaily:
		return now.Format("2006-01-02")
	case models.ChallengeWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return models.ChallengeSpecial
	}
}

// periodExpiry is the horizon a fresh assignment of the given type lives to.
func periodExpiry(challengeType string, now time.Time) time.Time {
	if challengeType == models.ChallengeWeekly {
		return endOfISOWeek(now)
	}
	return endOfDay(now)
}

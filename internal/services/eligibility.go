package services

import (
	"time"

	"github.com/mroshb/friend_calendar/internal/models"
)

// EligibilityRule decides whether completing event today earns points.
// user's daily counter has already been rolled over to today.
type EligibilityRule interface {
	Eligible(event *models.Event, user *models.User, today time.Time) bool
}

// WindowRule awards points when an occurrence falls within the last
// GraceDays days (today included) and the daily limit is not reached.
type WindowRule struct {
	GraceDays  int
	DailyLimit int
}

func NewWindowRule(settings Settings) WindowRule {
	return WindowRule{GraceDays: settings.GraceDays, DailyLimit: settings.DailyTaskLimit}
}

func (r WindowRule) Eligible(event *models.Event, user *models.User, today time.Time) bool {
	if r.DailyLimit > 0 && user.DailyTasksCount >= r.DailyLimit {
		return false
	}
	grace := r.GraceDays
	if grace < 0 {
		grace = 0
	}
	return event.OccursBetween(today.AddDate(0, 0, -grace), today)
}

package utils

import (
	"time"

	"venuehub/models"
)

// NextOccurrence computes the next fire time for a repeating notification.
// All math happens in UTC; rendering local times is a presentation concern.
//
// The second return value is false when the rule does not recur (nil rule,
// type "none", or an unrecognized type). This function never panics: a
// malformed rule degrades to "stop repeating" rather than taking the
// dispatcher down with it.
func NextOccurrence(current time.Time, rule *models.RecurrenceRule) (time.Time, bool) {
	if rule == nil {
		return time.Time{}, false
	}

	current = current.UTC()
	every := rule.Every
	if every < 1 {
		every = 1
	}

	switch rule.Type {
	case models.RepeatDaily:
		return current.AddDate(0, 0, every), true

	case models.RepeatWeekly:
		return nextWeekly(current, every, rule.Weekdays), true

	case models.RepeatMonthly:
		return nextMonthly(current, every, rule.DayOfMonth), true

	default:
		return time.Time{}, false
	}
}

// nextWeekly scans forward day by day, starting the day after current, for the
// first date whose ISO weekday is in weekdays. The scan is bounded to
// 8*every weeks; a rule whose weekday set can never match (empty or out of
// range) falls back to a flat every-week jump instead of erroring.
func nextWeekly(current time.Time, every int, weekdays []int) time.Time {
	allowed := make(map[int]bool, len(weekdays))
	for _, d := range weekdays {
		if d >= 1 && d <= 7 {
			allowed[d] = true
		}
	}

	if len(allowed) > 0 {
		limit := 8 * every * 7
		for i := 1; i <= limit; i++ {
			candidate := current.AddDate(0, 0, i)
			if allowed[isoWeekday(candidate)] {
				return candidate
			}
		}
	}

	return current.AddDate(0, 0, 7*every)
}

// nextMonthly advances the month by every and clamps the rule's day-of-month
// to the last valid day of the target month (rule day 31 in a 30-day month
// resolves to day 30). Time-of-day is preserved.
func nextMonthly(current time.Time, every int, dayOfMonth int) time.Time {
	if dayOfMonth < 1 {
		dayOfMonth = current.Day()
	}

	// AddDate normalizes day overflow (Jan 31 + 1 month = Mar 2/3), so advance
	// from the first of the month and re-apply the day afterwards.
	firstOfTarget := time.Date(current.Year(), current.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, every, 0)
	year, month := firstOfTarget.Year(), firstOfTarget.Month()

	day := dayOfMonth
	if last := daysInMonth(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day,
		current.Hour(), current.Minute(), current.Second(), current.Nanosecond(), time.UTC)
}

// isoWeekday maps time.Weekday (Sunday=0) onto ISO 8601 (Monday=1 .. Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ValidateRecurrenceRule rejects rule shapes the engine would only be able to
// fail-safe around. Called when a schedule is created, not at dispatch time.
func ValidateRecurrenceRule(rule *models.RecurrenceRule) error {
	if rule == nil || rule.Type == models.RepeatNone {
		return nil
	}

	if rule.Every < 1 {
		return NewBadRequestError("repeat rule 'every' must be a positive integer")
	}

	switch rule.Type {
	case models.RepeatDaily:
		return nil
	case models.RepeatWeekly:
		if len(rule.Weekdays) == 0 {
			return NewBadRequestError("weekly repeat rule requires at least one weekday")
		}
		for _, d := range rule.Weekdays {
			if d < 1 || d > 7 {
				return NewBadRequestError("weekdays must be ISO weekdays 1..7")
			}
		}
		return nil
	case models.RepeatMonthly:
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return NewBadRequestError("monthly repeat rule requires dayOfMonth 1..31")
		}
		return nil
	default:
		return NewBadRequestError("unknown repeat rule type: " + rule.Type)
	}
}

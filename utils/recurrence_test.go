package utils

import (
	"testing"
	"time"

	"venuehub/models"

	"github.com/stretchr/testify/assert"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return ts.UTC()
}

func TestNextOccurrence_NilAndNone(t *testing.T) {
	now := mustTime(t, "2025-06-01T10:00:00Z")

	_, ok := NextOccurrence(now, nil)
	assert.False(t, ok)

	_, ok = NextOccurrence(now, &models.RecurrenceRule{Type: models.RepeatNone})
	assert.False(t, ok)

	_, ok = NextOccurrence(now, &models.RecurrenceRule{Type: "fortnightly", Every: 1})
	assert.False(t, ok)
}

func TestNextOccurrence_Daily(t *testing.T) {
	now := mustTime(t, "2025-06-01T10:30:00Z")

	next, ok := NextOccurrence(now, &models.RecurrenceRule{Type: models.RepeatDaily, Every: 1})
	assert.True(t, ok)
	assert.Equal(t, mustTime(t, "2025-06-02T10:30:00Z"), next)

	next, ok = NextOccurrence(now, &models.RecurrenceRule{Type: models.RepeatDaily, Every: 3})
	assert.True(t, ok)
	assert.Equal(t, mustTime(t, "2025-06-04T10:30:00Z"), next)
}

func TestNextOccurrence_DailyNormalizesEvery(t *testing.T) {
	now := mustTime(t, "2025-06-01T10:30:00Z")

	next, ok := NextOccurrence(now, &models.RecurrenceRule{Type: models.RepeatDaily, Every: 0})
	assert.True(t, ok)
	assert.Equal(t, mustTime(t, "2025-06-02T10:30:00Z"), next)
}

func TestNextOccurrence_WeeklyLandsOnRequestedWeekday(t *testing.T) {
	// 2025-06-02 is a Monday.
	monday := mustTime(t, "2025-06-02T09:00:00Z")

	rule := &models.RecurrenceRule{Type: models.RepeatWeekly, Every: 1, Weekdays: []int{1}}
	next, ok := NextOccurrence(monday, rule)
	assert.True(t, ok)
	assert.True(t, next.After(monday))
	assert.Equal(t, mustTime(t, "2025-06-09T09:00:00Z"), next)

	// Wednesday (3) and Friday (5): the scan picks the nearest.
	rule = &models.RecurrenceRule{Type: models.RepeatWeekly, Every: 1, Weekdays: []int{3, 5}}
	next, ok = NextOccurrence(monday, rule)
	assert.True(t, ok)
	assert.Equal(t, mustTime(t, "2025-06-04T09:00:00Z"), next)
}

func TestNextOccurrence_WeeklyResultWeekdayAlwaysInSet(t *testing.T) {
	start := mustTime(t, "2025-01-01T08:00:00Z")
	rule := &models.RecurrenceRule{Type: models.RepeatWeekly, Every: 2, Weekdays: []int{2, 7}}

	current := start
	for i := 0; i < 20; i++ {
		next, ok := NextOccurrence(current, rule)
		assert.True(t, ok)
		assert.True(t, next.After(current))

		iso := int(next.Weekday())
		if iso == 0 {
			iso = 7
		}
		assert.Contains(t, rule.Weekdays, iso)
		current = next
	}
}

func TestNextOccurrence_WeeklyEmptyWeekdaysFallsBack(t *testing.T) {
	now := mustTime(t, "2025-06-02T09:00:00Z")

	rule := &models.RecurrenceRule{Type: models.RepeatWeekly, Every: 2}
	next, ok := NextOccurrence(now, rule)
	assert.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, 14), next)

	// Out-of-range weekdays are as good as none.
	rule = &models.RecurrenceRule{Type: models.RepeatWeekly, Every: 1, Weekdays: []int{0, 8}}
	next, ok = NextOccurrence(now, rule)
	assert.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, 7), next)
}

func TestNextOccurrence_MonthlyClampsDayOfMonth(t *testing.T) {
	// Rule day 31, advancing into 30-day June.
	may := mustTime(t, "2025-05-31T18:00:00Z")
	rule := &models.RecurrenceRule{Type: models.RepeatMonthly, Every: 1, DayOfMonth: 31}

	next, ok := NextOccurrence(may, rule)
	assert.True(t, ok)
	assert.Equal(t, mustTime(t, "2025-06-30T18:00:00Z"), next)

	// And into February.
	jan := mustTime(t, "2025-01-31T18:00:00Z")
	next, ok = NextOccurrence(jan, rule)
	assert.True(t, ok)
	assert.Equal(t, mustTime(t, "2025-02-28T18:00:00Z"), next)
}

func TestNextOccurrence_MonthlyPreservesTimeOfDay(t *testing.T) {
	now := mustTime(t, "2025-03-15T07:45:30Z")
	rule := &models.RecurrenceRule{Type: models.RepeatMonthly, Every: 2, DayOfMonth: 15}

	next, ok := NextOccurrence(now, rule)
	assert.True(t, ok)
	assert.Equal(t, mustTime(t, "2025-05-15T07:45:30Z"), next)
}

func TestValidateRecurrenceRule(t *testing.T) {
	assert.NoError(t, ValidateRecurrenceRule(nil))
	assert.NoError(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatNone}))
	assert.NoError(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatDaily, Every: 1}))
	assert.NoError(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatWeekly, Every: 1, Weekdays: []int{1, 5}}))
	assert.NoError(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatMonthly, Every: 1, DayOfMonth: 31}))

	assert.Error(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatDaily, Every: 0}))
	assert.Error(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatWeekly, Every: 1}))
	assert.Error(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatWeekly, Every: 1, Weekdays: []int{9}}))
	assert.Error(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: models.RepeatMonthly, Every: 1}))
	assert.Error(t, ValidateRecurrenceRule(&models.RecurrenceRule{Type: "hourly", Every: 1}))
}

package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/clinic-scheduling/internal/interval"
)

func window(t *testing.T, start, end string) interval.Interval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	iv, err := interval.New(s, e)
	require.NoError(t, err)
	return iv
}

func starts(occs []interval.Interval) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Start.Format(time.RFC3339))
	}
	return out
}

func TestValidateRejectsBadRules(t *testing.T) {
	assert.ErrorIs(t, Rule{Frequency: "hourly", Interval: 1}.Validate(), ErrInvalidFrequency)
	assert.ErrorIs(t, Rule{Frequency: Daily, Interval: 0}.Validate(), ErrInvalidInterval)
	assert.ErrorIs(t, Rule{Frequency: Daily, Interval: -3}.Validate(), ErrInvalidInterval)
	assert.ErrorIs(t, Rule{Frequency: Weekly, Interval: 1, DaysOfWeek: []time.Weekday{7}}.Validate(), ErrInvalidWeekday)
	assert.NoError(t, Rule{Frequency: Monthly, Interval: 2}.Validate())
}

func TestExpandRejectsInvalidInputs(t *testing.T) {
	win := window(t, "2024-06-01T00:00:00Z", "2024-07-01T00:00:00Z")
	anchor := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := Expand(Rule{Frequency: "yearly", Interval: 1}, anchor, time.Hour, win)
	assert.ErrorIs(t, err, ErrInvalidFrequency)

	_, err = Expand(Rule{Frequency: Daily, Interval: 1}, anchor, 0, win)
	assert.ErrorIs(t, err, interval.ErrInvalid)

	_, err = Expand(Rule{Frequency: Daily, Interval: 1}, anchor, time.Hour, interval.Interval{Start: win.End, End: win.Start})
	assert.ErrorIs(t, err, interval.ErrInvalid)
}

func TestExpandDailyEveryThirdDay(t *testing.T) {
	anchor := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	win := window(t, "2024-06-01T00:00:00Z", "2024-06-11T00:00:00Z")

	occs, err := Expand(Rule{Frequency: Daily, Interval: 3}, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-01T09:00:00Z",
		"2024-06-04T09:00:00Z",
		"2024-06-07T09:00:00Z",
		"2024-06-10T09:00:00Z",
	}, starts(occs))
	assert.Equal(t, time.Hour, occs[0].Duration())
}

func TestExpandDailyBoundedByEndDate(t *testing.T) {
	anchor := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	endDate := time.Date(2024, 6, 3, 23, 59, 59, 0, time.UTC)
	win := window(t, "2024-06-01T00:00:00Z", "2024-06-30T00:00:00Z")

	occs, err := Expand(Rule{Frequency: Daily, Interval: 1, EndDate: &endDate}, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-01T09:00:00Z",
		"2024-06-02T09:00:00Z",
		"2024-06-03T09:00:00Z",
	}, starts(occs))
}

func TestExpandOpenEndedRuleBoundedByWindow(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	win := window(t, "2024-06-01T00:00:00Z", "2024-06-04T00:00:00Z")

	// No EndDate: the caller's window is the only bound.
	occs, err := Expand(Rule{Frequency: Daily, Interval: 1}, anchor, 30*time.Minute, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-01T09:00:00Z",
		"2024-06-02T09:00:00Z",
		"2024-06-03T09:00:00Z",
	}, starts(occs))
}

func TestExpandWeeklySkipsOffWeeks(t *testing.T) {
	// Every second week on Monday and Wednesday, anchored Monday 2024-06-03.
	anchor := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	win := window(t, "2024-06-01T00:00:00Z", "2024-06-21T00:00:00Z")

	rule := Rule{
		Frequency:  Weekly,
		Interval:   2,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
	}

	occs, err := Expand(rule, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-03T09:00:00Z",
		"2024-06-05T09:00:00Z",
		"2024-06-17T09:00:00Z",
		"2024-06-19T09:00:00Z",
	}, starts(occs))
}

func TestExpandWeeklyWithoutDaysUsesAnchorWeekday(t *testing.T) {
	anchor := time.Date(2024, 6, 4, 14, 0, 0, 0, time.UTC) // Tuesday
	win := window(t, "2024-06-01T00:00:00Z", "2024-06-30T00:00:00Z")

	occs, err := Expand(Rule{Frequency: Weekly, Interval: 1}, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-04T14:00:00Z",
		"2024-06-11T14:00:00Z",
		"2024-06-18T14:00:00Z",
		"2024-06-25T14:00:00Z",
	}, starts(occs))
}

func TestExpandWeeklyDoesNotEmitBeforeAnchor(t *testing.T) {
	// Anchored Wednesday; the Monday of week zero precedes the anchor and
	// must not appear.
	anchor := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	win := window(t, "2024-06-01T00:00:00Z", "2024-06-13T00:00:00Z")

	rule := Rule{
		Frequency:  Weekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
	}

	occs, err := Expand(rule, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-05T09:00:00Z",
		"2024-06-10T09:00:00Z",
		"2024-06-12T09:00:00Z",
	}, starts(occs))
}

func TestExpandWeeklyCollapsesDuplicateDays(t *testing.T) {
	anchor := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) // Monday
	win := window(t, "2024-06-01T00:00:00Z", "2024-06-15T00:00:00Z")

	rule := Rule{
		Frequency:  Weekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday, time.Monday, time.Wednesday, time.Monday},
	}

	occs, err := Expand(rule, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-03T09:00:00Z",
		"2024-06-05T09:00:00Z",
		"2024-06-10T09:00:00Z",
		"2024-06-12T09:00:00Z",
	}, starts(occs))
}

func TestExpandMonthlySkipsShortMonths(t *testing.T) {
	// Anchored on the 31st: February, April and June have no 31st and are
	// skipped rather than clamped.
	anchor := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	win := window(t, "2024-01-01T00:00:00Z", "2024-08-01T00:00:00Z")

	occs, err := Expand(Rule{Frequency: Monthly, Interval: 1}, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-01-31T10:00:00Z",
		"2024-03-31T10:00:00Z",
		"2024-05-31T10:00:00Z",
		"2024-07-31T10:00:00Z",
	}, starts(occs))
}

func TestExpandMonthlyEveryOtherMonthAcrossYearBoundary(t *testing.T) {
	anchor := time.Date(2024, 11, 15, 8, 0, 0, 0, time.UTC)
	win := window(t, "2024-11-01T00:00:00Z", "2025-04-01T00:00:00Z")

	occs, err := Expand(Rule{Frequency: Monthly, Interval: 2}, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-11-15T08:00:00Z",
		"2025-01-15T08:00:00Z",
		"2025-03-15T08:00:00Z",
	}, starts(occs))
}

func TestExpandIsRestartable(t *testing.T) {
	anchor := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	win := window(t, "2024-06-01T00:00:00Z", "2024-07-01T00:00:00Z")
	rule := Rule{Frequency: Weekly, Interval: 2, DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday}}

	first, err := Expand(rule, anchor, time.Hour, win)
	require.NoError(t, err)
	second, err := Expand(rule, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExpandIncludesOccurrenceStraddlingWindowStart(t *testing.T) {
	// An occurrence that starts before the window but runs into it still
	// counts as an occupied span.
	anchor := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	win := window(t, "2024-06-02T00:00:00Z", "2024-06-03T00:00:00Z")

	occs, err := Expand(Rule{Frequency: Daily, Interval: 1}, anchor, 2*time.Hour, win)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-06-01T23:00:00Z",
		"2024-06-02T23:00:00Z",
	}, starts(occs))
}

func TestExpandCapsOccurrenceCount(t *testing.T) {
	anchor := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	win := window(t, "2000-01-01T00:00:00Z", "2030-01-01T00:00:00Z")

	occs, err := Expand(Rule{Frequency: Daily, Interval: 1}, anchor, time.Hour, win)
	require.NoError(t, err)

	assert.Len(t, occs, maxOccurrences)
}

package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/medflow/clinic-scheduling/internal/interval"
)

// maxOccurrences caps a single expansion so a misconfigured open-ended rule
// can never materialize an unbounded series.
const maxOccurrences = 1000

// Expand generates the concrete occurrences of a rule anchored at anchor,
// each lasting duration, that overlap window. Results are sorted by start
// time. Expand is a pure function of its inputs: calling it twice with the
// same arguments yields identical sequences.
func Expand(r Rule, anchor time.Time, duration time.Duration, window interval.Interval) ([]interval.Interval, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: occurrence duration must be positive", interval.ErrInvalid)
	}

	c := &collector{window: window, duration: duration, endDate: r.EndDate}

	switch r.Frequency {
	case Daily:
		expandDaily(r, anchor.UTC(), c)
	case Weekly:
		expandWeekly(r, anchor.UTC(), c)
	case Monthly:
		expandMonthly(r, anchor.UTC(), c)
	}

	return c.out, nil
}

type collector struct {
	window   interval.Interval
	duration time.Duration
	endDate  *time.Time
	out      []interval.Interval
}

// add records the occurrence starting at start if it overlaps the window and
// reports whether iteration should continue. Occurrence starts are strictly
// increasing per rule, so the first start past a bound ends the expansion.
func (c *collector) add(start time.Time) bool {
	if c.endDate != nil && start.After(*c.endDate) {
		return false
	}
	if !start.Before(c.window.End) {
		return false
	}
	occ := interval.Interval{Start: start, End: start.Add(c.duration)}
	if occ.Overlaps(c.window) {
		c.out = append(c.out, occ)
	}
	return len(c.out) < maxOccurrences
}

func expandDaily(r Rule, anchor time.Time, c *collector) {
	for i := 0; ; i += r.Interval {
		if !c.add(anchor.AddDate(0, 0, i)) {
			return
		}
	}
}

func expandWeekly(r Rule, anchor time.Time, c *collector) {
	if len(r.DaysOfWeek) == 0 {
		for i := 0; ; i += 7 * r.Interval {
			if !c.add(anchor.AddDate(0, 0, i)) {
				return
			}
		}
	}

	days := append([]time.Weekday(nil), r.DaysOfWeek...)
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	// Collapse duplicate weekdays so each day fires at most once per week.
	uniq := days[:1]
	for _, d := range days[1:] {
		if d != uniq[len(uniq)-1] {
			uniq = append(uniq, d)
		}
	}
	days = uniq

	// Week zero is the Sunday-started week containing the anchor; every
	// Interval-th week after it is active. Days of week zero that fall
	// before the anchor itself are not occurrences.
	weekStart := anchor.AddDate(0, 0, -int(anchor.Weekday()))
	for week := 0; ; week += r.Interval {
		base := weekStart.AddDate(0, 0, week*7)
		for _, d := range days {
			start := base.AddDate(0, 0, int(d))
			if start.Before(anchor) {
				continue
			}
			if !c.add(start) {
				return
			}
		}
	}
}

func expandMonthly(r Rule, anchor time.Time, c *collector) {
	year, month, day := anchor.Date()
	hh, mm, ss := anchor.Clock()

	for i := 0; ; i += r.Interval {
		months := int(month) - 1 + i
		start := time.Date(year+months/12, time.Month(months%12+1), day,
			hh, mm, ss, anchor.Nanosecond(), time.UTC)

		// When the target month is shorter than the anchor day, time.Date
		// normalizes into the next month. Even then start grows
		// monotonically, so the bound checks stay valid.
		if c.endDate != nil && start.After(*c.endDate) {
			return
		}
		if !start.Before(c.window.End) {
			return
		}
		if start.Day() != day {
			// month has no such day (31st in February etc.); skip it
			// outright rather than clamp to month-end
			continue
		}
		if !c.add(start) {
			return
		}
	}
}

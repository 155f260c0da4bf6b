package recurrence

import (
	"errors"
	"fmt"
	"time"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

var (
	ErrInvalidFrequency = errors.New("unrecognized recurrence frequency")
	ErrInvalidInterval  = errors.New("recurrence interval must be >= 1")
	ErrInvalidWeekday   = errors.New("recurrence weekday out of range")
)

// Rule describes how an anchor occurrence repeats. Interval is the period
// multiplier (every Nth day/week/month). DaysOfWeek is only meaningful for
// weekly rules; when empty a weekly rule fires on the anchor's weekday.
// A nil EndDate means the rule is open-ended and is bounded only by the
// query window at expansion time.
type Rule struct {
	Frequency  Frequency
	Interval   int
	DaysOfWeek []time.Weekday
	EndDate    *time.Time
}

func (r Rule) Validate() error {
	switch r.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, r.Interval)
	}
	for _, d := range r.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
	}
	return nil
}

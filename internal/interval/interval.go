package interval

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalid = errors.New("interval start must be before end")

// Interval is a half-open time span [Start, End). All comparisons happen on
// absolute instants normalized to UTC; rendering in a clinic's local zone is
// the caller's problem.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New builds a validated interval with both endpoints normalized to UTC.
func New(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start.UTC(), End: end.UTC()}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

func (iv Interval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("%w (start=%s end=%s)",
			ErrInvalid, iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether the two spans share any instant. Touching
// endpoints do not overlap: [9:00, 10:00) and [10:00, 11:00) are disjoint.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether t falls inside the span. The start is inclusive,
// the end exclusive.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}

package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// daysOfYear lists every date of year from Jan 1 to Dec 31 inclusive.
func daysOfYear(year int) ([]time.Time, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("daily rule for %d: %w", year, err)
	}
	return r.All(), nil
}

// eventName is the zero-padded "MM-DD" label of a date.
func eventName(d time.Time) string {
	return d.Format("01-02")
}

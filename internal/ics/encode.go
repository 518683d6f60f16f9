// Package ics renders compiled day events as an iCalendar preview and reads
// such previews back.
//
// Each resolved entry becomes a zero-length VEVENT at its wall-clock time on
// the compiled date. Times are floating (no TZID, no Z): the controller runs
// on site-local time and so does the preview.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"astrosched/internal/model"
)

const (
	productService = "astrosched"

	floatingLayout = "20060102T150405"
	summarySep     = " = "
	defaultLabel   = "default"
)

// Calendar collects one or more compiled schedules for a single preview.
type Calendar struct {
	cal    *ical.Calendar
	events int
}

// NewCalendar returns an empty calendar named name.
func NewCalendar(name string) *Calendar {
	cal := ical.NewCalendarFor(productService)
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	if name != "" {
		cal.SetXWRCalName(name)
	}
	return &Calendar{cal: cal}
}

// Add appends the events of one schedule compiled for year.
func (c *Calendar) Add(schedule string, year int, events []model.DayEvent) error {
	stamp := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, ev := range events {
		date := time.Date(year, time.Month(ev.Month), ev.DayOfMonth, 0, 0, 0, 0, time.UTC)
		if date.Month() != time.Month(ev.Month) || date.Day() != ev.DayOfMonth {
			return fmt.Errorf("ics: %s is not a date in %d", ev.Name, year)
		}
		for i, e := range ev.Entries {
			at := date.Add(time.Duration(e.Hour)*time.Hour + time.Duration(e.Minute)*time.Minute)

			ve := c.cal.AddEvent(UID(schedule, ev.Name, i+1))
			ve.SetDtStampTime(stamp)
			ve.SetProperty(ical.ComponentPropertyDtStart, at.Format(floatingLayout))
			ve.SetProperty(ical.ComponentPropertyDtEnd, at.Format(floatingLayout))
			ve.SetSummary(Summary(schedule, e.Value))
			ve.SetProperty(ical.ComponentPropertyCategories, schedule)
			ve.SetDescription(fmt.Sprintf("%s entry %d", ev.Name, i+1))
			c.events++
		}
	}
	return nil
}

// Len is the number of VEVENTs added so far.
func (c *Calendar) Len() int { return c.events }

// Encode writes the calendar with CRLF line endings on every platform.
func (c *Calendar) Encode(w io.Writer) error {
	return c.cal.SerializeTo(w, ical.WithNewLineWindows)
}

// UID is the deterministic identifier of the n-th entry (1-based) of a day.
func UID(schedule, day string, n int) string {
	return fmt.Sprintf("%s-%s-%d", slug(schedule), day, n)
}

// Summary is "<schedule> = <value>", with "default" for a nil value.
func Summary(schedule string, v *int) string {
	val := defaultLabel
	if v != nil {
		val = model.FormatValue(v)
	}
	return schedule + summarySep + val
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}

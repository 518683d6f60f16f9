package schedule

import (
	"errors"
	"fmt"
	"time"

	"astrosched/internal/model"
	"astrosched/internal/suntime"
)

// ErrNoRulesConfigured is returned by Compile when there is nothing to emit.
var ErrNoRulesConfigured = errors.New("no rules configured")

// Compile produces one DayEvent per date of cfg.Year.
//
// Within a day, entries follow the configured rule order; the importer
// treats that order as evaluation priority, so nothing is sorted. Offset
// rules are skipped for a day when table is nil or has no sun times for
// that date.
func Compile(cfg model.ScheduleConfig, table *suntime.Table) ([]model.DayEvent, error) {
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("%w: schedule %q", ErrNoRulesConfigured, cfg.ScheduleName)
	}

	days, err := daysOfYear(cfg.Year)
	if err != nil {
		return nil, err
	}

	events := make([]model.DayEvent, 0, len(days))
	for _, d := range days {
		ev, err := compileDay(cfg.Rules, d, table)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", cfg.ScheduleName, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func compileDay(rules []model.Rule, date time.Time, table *suntime.Table) (model.DayEvent, error) {
	ev := model.DayEvent{
		Name:       eventName(date),
		DayOfMonth: date.Day(),
		Month:      int(date.Month()),
		Entries:    make([]model.ResolvedEntry, 0, len(rules)),
	}

	var (
		sun       suntime.Day
		sunLoaded bool
		sunOK     bool
	)

	for i, r := range rules {
		switch r.TimeReference {
		case model.Absolute:
			ev.Entries = append(ev.Entries, model.ResolvedEntry{
				Hour:   r.Hour,
				Minute: r.Minute,
				Value:  r.Value,
			})

		case model.SunriseOffset, model.SunsetOffset:
			if table == nil {
				continue
			}
			if !sunLoaded {
				sunLoaded = true
				d, err := table.At(ev.Month, ev.DayOfMonth)
				sunOK = err == nil
				sun = d
			}
			if !sunOK {
				continue
			}

			base := sun.Sunrise
			if r.TimeReference == model.SunsetOffset {
				base = sun.Sunset
			}
			t := Resolve(base, r.Offset())
			ev.Entries = append(ev.Entries, model.ResolvedEntry{
				Hour:   t.Hour,
				Minute: t.Minute,
				Value:  r.Value,
			})

		default:
			return ev, fmt.Errorf("rule %d on %s: %w: unknown time reference %q",
				i+1, ev.Name, model.ErrInvalidRule, r.TimeReference)
		}
	}
	return ev, nil
}

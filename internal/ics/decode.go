package ics

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "astrosched/internal/log"
	"astrosched/internal/model"
)

// Day is one schedule's entries on one date as read back from a preview.
type Day struct {
	Schedule string
	Date     time.Time
	Entries  []model.ResolvedEntry
}

// Name is the MM-DD event name of the day.
func (d Day) Name() string { return d.Date.Format("01-02") }

type decodedEntry struct {
	schedule string
	date     time.Time
	seq      int
	entry    model.ResolvedEntry
}

// Decode parses a preview calendar. Events that do not look like preview
// entries are logged and skipped. Days are returned grouped by schedule in
// order of first appearance, then by date; entries keep their original
// position within the day.
func Decode(r io.Reader) ([]Day, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ics: parse: %w", err)
	}

	var (
		entries  []decodedEntry
		schedIdx = map[string]int{}
	)
	for _, ve := range cal.Events() {
		de, err := decodeEvent(ve)
		if err != nil {
			appLog.Warn("ics: skipping vevent", "uid", ve.Id(), "err", err.Error())
			continue
		}
		if _, ok := schedIdx[de.schedule]; !ok {
			schedIdx[de.schedule] = len(schedIdx)
		}
		entries = append(entries, de)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if schedIdx[a.schedule] != schedIdx[b.schedule] {
			return schedIdx[a.schedule] < schedIdx[b.schedule]
		}
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		return a.seq < b.seq
	})

	var days []Day
	for _, de := range entries {
		n := len(days)
		if n == 0 || days[n-1].Schedule != de.schedule || !days[n-1].Date.Equal(de.date) {
			days = append(days, Day{Schedule: de.schedule, Date: de.date})
			n++
		}
		days[n-1].Entries = append(days[n-1].Entries, de.entry)
	}
	return days, nil
}

func decodeEvent(ve *ical.VEvent) (decodedEntry, error) {
	var out decodedEntry

	summary := ve.GetProperty(ical.ComponentPropertySummary)
	if summary == nil {
		return out, errors.New("missing SUMMARY")
	}
	name, val, ok := strings.Cut(summary.Value, summarySep)
	if !ok {
		return out, fmt.Errorf("summary %q has no value", summary.Value)
	}
	out.schedule = name
	if cat := ve.GetProperty(ical.ComponentPropertyCategories); cat != nil && cat.Value != "" {
		out.schedule = cat.Value
	}

	if val != defaultLabel {
		v, err := model.ParseValue(val)
		if err != nil {
			return out, err
		}
		if v == nil {
			return out, fmt.Errorf("summary %q has an empty value", summary.Value)
		}
		out.entry.Value = v
	}

	start := ve.GetProperty(ical.ComponentPropertyDtStart)
	if start == nil {
		return out, errors.New("missing DTSTART")
	}
	at, err := time.Parse(floatingLayout, strings.TrimSuffix(start.Value, "Z"))
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	out.date = time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	out.entry.Hour = at.Hour()
	out.entry.Minute = at.Minute()

	uid := ve.Id()
	if i := strings.LastIndexByte(uid, '-'); i >= 0 {
		if n, err := strconv.Atoi(uid[i+1:]); err == nil {
			out.seq = n
		}
	}
	return out, nil
}

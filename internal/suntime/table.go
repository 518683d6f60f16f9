package suntime

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	appLog "astrosched/internal/log"
)

// ErrDateNotFound is returned by Table.At for a (month, day) that is not in
// the built year, e.g. Feb 29 outside a leap year.
var ErrDateNotFound = errors.New("date not found in sun table")

type monthDay struct {
	month int
	day   int
}

// Table is an immutable per-year lookup of local sunrise/sunset by date for
// one location.
type Table struct {
	year int
	days map[monthDay]Day
}

// Build calls the provider once for every date of year (Jan 1 to Dec 31).
// Lookups run concurrently but each writes its own slot, so the resulting
// table does not depend on completion order.
//
// ErrLocationResolution from the provider aborts the build. Dates for which
// the provider reports ErrNoSunEvent are left out of the table.
func Build(ctx context.Context, p Provider, latitude, longitude float64, year int) (*Table, error) {
	if p == nil {
		return nil, errors.New("suntime: provider is nil")
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	n := int(start.AddDate(1, 0, 0).Sub(start).Hours() / 24)

	type slot struct {
		date time.Time
		day  Day
		ok   bool
	}
	slots := make([]slot, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range slots {
		i := i
		date := start.AddDate(0, 0, i)
		slots[i].date = date
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := p.SunTimes(latitude, longitude, date)
			if err != nil {
				if errors.Is(err, ErrNoSunEvent) {
					return nil
				}
				return fmt.Errorf("sun times for %s: %w", date.Format("2006-01-02"), err)
			}
			slots[i].day = d
			slots[i].ok = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := &Table{
		year: year,
		days: make(map[monthDay]Day, len(slots)),
	}
	missing := 0
	for _, s := range slots {
		if !s.ok {
			missing++
			continue
		}
		t.days[monthDay{int(s.date.Month()), s.date.Day()}] = s.day
	}
	if missing > 0 {
		appLog.Warn("sun table has days without sunrise or sunset",
			"latitude", latitude, "longitude", longitude, "year", year, "missing_days", missing)
	}
	appLog.Debug("sun table built",
		"latitude", latitude, "longitude", longitude, "year", year, "days", len(t.days))

	return t, nil
}

// At returns the sun times for the given date.
func (t *Table) At(month, day int) (Day, error) {
	d, ok := t.days[monthDay{month, day}]
	if !ok {
		return Day{}, fmt.Errorf("%w: %02d-%02d of %d", ErrDateNotFound, month, day, t.year)
	}
	return d, nil
}

// Len is the number of dates with sun times.
func (t *Table) Len() int { return len(t.days) }

func (t *Table) Year() int { return t.year }

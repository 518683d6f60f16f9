package suntime

import (
	"errors"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/nathan-osman/go-sunrise"
	"github.com/ringsaturn/tzf"

	"astrosched/internal/model"
)

var (
	// ErrLocationResolution means no timezone could be derived for the
	// coordinates, so no local sun times can be produced at all.
	ErrLocationResolution = errors.New("cannot resolve timezone for location")
	// ErrNoSunEvent means the sun does not rise or set on that date (polar
	// day or night).
	ErrNoSunEvent = errors.New("no sunrise or sunset on date")
)

// Day holds the local sunrise and sunset time of day for one date.
type Day struct {
	Sunrise model.TimeOfDay `json:"sunrise"`
	Sunset  model.TimeOfDay `json:"sunset"`
}

// Provider is the sun-time capability: given a location and a calendar date,
// return local sunrise and sunset.
type Provider interface {
	SunTimes(latitude, longitude float64, date time.Time) (Day, error)
}

// TimezoneFinder maps coordinates to an IANA zone name. An empty result
// means the location could not be resolved.
type TimezoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// AstroProvider computes sun times with go-sunrise and converts them into the
// zone tzf reports for the coordinates.
type AstroProvider struct {
	finder TimezoneFinder

	mu   sync.Mutex
	locs map[[2]float64]*time.Location
}

// NewAstroProvider loads the embedded tzf boundary data. This is slow enough
// that callers should create one provider and reuse it.
func NewAstroProvider() (*AstroProvider, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load timezone finder: %w", err)
	}
	return NewAstroProviderWithFinder(finder), nil
}

// NewAstroProviderWithFinder uses the given finder instead of tzf's default.
func NewAstroProviderWithFinder(finder TimezoneFinder) *AstroProvider {
	return &AstroProvider{
		finder: finder,
		locs:   make(map[[2]float64]*time.Location),
	}
}

// SunTimes implements Provider.
func (p *AstroProvider) SunTimes(latitude, longitude float64, date time.Time) (Day, error) {
	loc, err := p.location(latitude, longitude)
	if err != nil {
		return Day{}, err
	}

	rise, set := sunrise.SunriseSunset(latitude, longitude, date.Year(), date.Month(), date.Day())
	if rise.IsZero() || set.IsZero() {
		return Day{}, fmt.Errorf("%w: %s at (%v, %v)", ErrNoSunEvent, date.Format("2006-01-02"), latitude, longitude)
	}

	rise = rise.In(loc)
	set = set.In(loc)
	return Day{
		Sunrise: model.TimeOfDay{Hour: rise.Hour(), Minute: rise.Minute()},
		Sunset:  model.TimeOfDay{Hour: set.Hour(), Minute: set.Minute()},
	}, nil
}

func (p *AstroProvider) location(latitude, longitude float64) (*time.Location, error) {
	key := [2]float64{latitude, longitude}

	p.mu.Lock()
	defer p.mu.Unlock()

	if loc, ok := p.locs[key]; ok {
		return loc, nil
	}

	name := ""
	if p.finder != nil {
		name = p.finder.GetTimezoneName(longitude, latitude)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrLocationResolution, latitude, longitude)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: (%v, %v) zone %q: %v", ErrLocationResolution, latitude, longitude, name, err)
	}
	p.locs[key] = loc
	return loc, nil
}

package schedule

import "astrosched/internal/model"

var (
	startOfDay = model.TimeOfDay{Hour: 0, Minute: 0}
	endOfDay   = model.TimeOfDay{Hour: 23, Minute: 59}
)

// Resolve applies a signed hour/minute offset to a base time of day.
//
// Minutes are carried into hours first. A result before midnight saturates
// to 00:00 and one past the end of the day to 23:59; in both cases the
// computed minute is dropped. Events never spill into a neighbouring day.
func Resolve(base, offset model.TimeOfDay) model.TimeOfDay {
	hour := base.Hour + offset.Hour
	minute := base.Minute + offset.Minute

	carry, minute := floorDivMod(minute, 60)
	hour += carry

	switch {
	case hour < 0:
		return startOfDay
	case hour >= 24:
		return endOfDay
	}
	return model.TimeOfDay{Hour: hour, Minute: minute}
}

// floorDivMod is divmod rounding toward negative infinity, so the remainder
// is always in [0, d).
func floorDivMod(n, d int) (q, r int) {
	q, r = n/d, n%d
	if r < 0 {
		q--
		r += d
	}
	return q, r
}

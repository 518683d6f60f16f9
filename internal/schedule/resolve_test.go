package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"astrosched/internal/model"
)

func tod(h, m int) model.TimeOfDay {
	return model.TimeOfDay{Hour: h, Minute: m}
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name   string
		base   model.TimeOfDay
		offset model.TimeOfDay
		want   model.TimeOfDay
	}{
		{name: "Floor clamp", base: tod(6, 30), offset: tod(-7, 0), want: tod(0, 0)},
		{name: "Ceiling clamp", base: tod(23, 45), offset: tod(1, 0), want: tod(23, 59)},
		{name: "Minute carry", base: tod(10, 0), offset: tod(0, 75), want: tod(11, 15)},
		{name: "Minute borrow", base: tod(10, 50), offset: tod(0, -55), want: tod(9, 55)},
		{name: "Zero offset", base: tod(6, 33), offset: tod(0, 0), want: tod(6, 33)},
		{name: "Forty five before sunrise", base: tod(6, 13), offset: tod(0, -45), want: tod(5, 28)},
		{name: "Borrow across several hours", base: tod(12, 0), offset: tod(0, -185), want: tod(8, 55)},
		{name: "Carry into ceiling clamp", base: tod(23, 30), offset: tod(0, 30), want: tod(23, 59)},
		{name: "Borrow into floor clamp", base: tod(0, 10), offset: tod(0, -11), want: tod(0, 0)},
		{name: "Exactly midnight stays", base: tod(0, 45), offset: tod(0, -45), want: tod(0, 0)},
		{name: "Last minute stays", base: tod(23, 0), offset: tod(0, 59), want: tod(23, 59)},
		{name: "Mixed sign offset", base: tod(17, 3), offset: tod(1, -90), want: tod(16, 33)},
		{name: "Large negative hours", base: tod(5, 59), offset: tod(-100, 0), want: tod(0, 0)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.base, tc.offset))
		})
	}
}

func TestResolveAlwaysInRange(t *testing.T) {
	for h := -30; h <= 30; h += 3 {
		for m := -200; m <= 200; m += 7 {
			got := Resolve(tod(12, 0), tod(h, m))
			assert.GreaterOrEqual(t, got.Hour, 0)
			assert.LessOrEqual(t, got.Hour, 23)
			assert.GreaterOrEqual(t, got.Minute, 0)
			assert.LessOrEqual(t, got.Minute, 59)
		}
	}
}

package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRule is returned (wrapped) when a rule fails validation.
var ErrInvalidRule = errors.New("invalid rule")

// TimeReference selects how a rule's Hour/Minute are interpreted.
type TimeReference string

const (
	// Absolute rules carry a literal time of day.
	Absolute TimeReference = "Absolute"
	// SunriseOffset rules carry a signed delta applied to the day's sunrise.
	SunriseOffset TimeReference = "SunriseOffset"
	// SunsetOffset rules carry a signed delta applied to the day's sunset.
	SunsetOffset TimeReference = "SunsetOffset"
)

// TimeReferences lists the accepted references in canonical spelling.
var TimeReferences = []TimeReference{Absolute, SunriseOffset, SunsetOffset}

// ParseTimeReference accepts any casing of the three references and returns
// the canonical value.
func ParseTimeReference(s string) (TimeReference, error) {
	s = strings.TrimSpace(s)
	for _, ref := range TimeReferences {
		if strings.EqualFold(s, string(ref)) {
			return ref, nil
		}
	}
	return "", fmt.Errorf("%w: time reference must be one of %v, got %q", ErrInvalidRule, TimeReferences, s)
}

// IsOffset reports whether the reference is relative to a sun event.
func (r TimeReference) IsOffset() bool {
	return r == SunriseOffset || r == SunsetOffset
}

// TimeOfDay is an hour/minute pair. Depending on context it is either a
// wall-clock time or a signed offset.
type TimeOfDay struct {
	Hour   int `yaml:"hour" json:"hour"`
	Minute int `yaml:"minute" json:"minute"`
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Rule is one configured time-value pairing.
type Rule struct {
	TimeReference TimeReference `yaml:"time_reference" json:"time_reference"`
	Hour          int           `yaml:"hour" json:"hour"`
	Minute        int           `yaml:"minute" json:"minute"`
	// Value nil means "return to the schedule default".
	Value       *int   `yaml:"value" json:"value"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Offset returns the rule's hour/minute as a TimeOfDay.
func (r Rule) Offset() TimeOfDay {
	return TimeOfDay{Hour: r.Hour, Minute: r.Minute}
}

// Validate checks the authoring-time invariants. Offsets are unconstrained.
func (r Rule) Validate() error {
	switch r.TimeReference {
	case Absolute:
		if r.Hour < 0 || r.Hour > 23 {
			return fmt.Errorf("%w: absolute hour %d out of range [0,23]", ErrInvalidRule, r.Hour)
		}
		if r.Minute < 0 || r.Minute > 59 {
			return fmt.Errorf("%w: absolute minute %d out of range [0,59]", ErrInvalidRule, r.Minute)
		}
	case SunriseOffset, SunsetOffset:
	default:
		return fmt.Errorf("%w: unknown time reference %q", ErrInvalidRule, r.TimeReference)
	}
	return nil
}

// ResolvedEntry is a rule after resolution against a specific day.
type ResolvedEntry struct {
	Hour   int  `json:"hour"`
	Minute int  `json:"minute"`
	Value  *int `json:"value"`
}

// DayEvent is the compiled entry list for one calendar day.
type DayEvent struct {
	// Name is the zero-padded "MM-DD" label.
	Name       string          `json:"event_name"`
	DayOfMonth int             `json:"day_of_month"`
	Month      int             `json:"month"`
	Entries    []ResolvedEntry `json:"entries"`
}

// IntPtr is a small helper for building optional values.
func IntPtr(v int) *int {
	return &v
}

// FloatPtr is a small helper for building optional coordinates.
func FloatPtr(v float64) *float64 {
	return &v
}

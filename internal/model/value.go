package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseValue turns a loosely typed cell into an optional integer value.
// "", "null" and "none" (any case) are nil.
func ParseValue(s string) (*int, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "none":
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheets hand back whole numbers as "7.0" at times.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return nil, fmt.Errorf("%w: value %q must be an integer or one of null, none, empty", ErrInvalidRule, s)
		}
		n = int(f)
	}
	return &n, nil
}

// FormatValue is the inverse of ParseValue for display purposes.
func FormatValue(v *int) string {
	if v == nil {
		return "null"
	}
	return strconv.Itoa(*v)
}

package model

import (
	"errors"
	"fmt"
)

const (
	DefaultScheduleName = "AstroScheduler"
	DefaultScheduleType = "Multistate"
	DefaultEBOVersion   = "6.0.4.90"
	DefaultYear         = 2025
)

// ScheduleConfig is the single source of truth for one schedule. Everything
// downstream (sun table, compiled events, document) is derived from it.
type ScheduleConfig struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Year         int      `json:"reference_year"`
	DefaultValue *int     `json:"default_value"`
	ScheduleName string   `json:"schedule_name"`
	ScheduleType string   `json:"schedule_type"`
	EBOVersion   string   `json:"ebo_version"`
	Rules        []Rule   `json:"entries"`
}

// DefaultScheduleConfig returns a config with no location and no rules.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Year:         DefaultYear,
		DefaultValue: IntPtr(0),
		ScheduleName: DefaultScheduleName,
		ScheduleType: DefaultScheduleType,
		EBOVersion:   DefaultEBOVersion,
		Rules:        []Rule{},
	}
}

// HasLocation reports whether both coordinates are set.
func (c ScheduleConfig) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// AddRule validates and appends a rule.
func (c *ScheduleConfig) AddRule(ref TimeReference, hour, minute int, value *int) error {
	r := Rule{TimeReference: ref, Hour: hour, Minute: minute, Value: value}
	if err := r.Validate(); err != nil {
		return err
	}
	c.Rules = append(c.Rules, r)
	return nil
}

// Validate checks the year and every rule, reporting the offending index.
func (c ScheduleConfig) Validate() error {
	if c.Year < 1 || c.Year > 9999 {
		return fmt.Errorf("schedule %q: year %d out of range", c.ScheduleName, c.Year)
	}
	if c.Latitude != nil && (*c.Latitude < -90 || *c.Latitude > 90) {
		return fmt.Errorf("schedule %q: latitude %v out of range", c.ScheduleName, *c.Latitude)
	}
	if c.Longitude != nil && (*c.Longitude < -180 || *c.Longitude > 180) {
		return fmt.Errorf("schedule %q: longitude %v out of range", c.ScheduleName, *c.Longitude)
	}
	var errs []error
	for i, r := range c.Rules {
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("schedule %q rule %d: %w", c.ScheduleName, i+1, err))
		}
	}
	return errors.Join(errs...)
}

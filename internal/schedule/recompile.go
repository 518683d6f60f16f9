package schedule

import (
	"context"
	"errors"

	"astrosched/internal/ebo"
	appLog "astrosched/internal/log"
	"astrosched/internal/model"
	"astrosched/internal/suntime"
)

// Recompile derives a schedule document from cfg. Call it again after any
// change to cfg; nothing is cached on the config itself.
//
// A sun table is only requested when cfg has a location and at least one
// offset rule. Failing to resolve the location is fatal. Without a location,
// offset rules contribute nothing and absolute rules still compile. An empty
// rule list yields a schedule that only carries its default value.
func Recompile(ctx context.Context, cfg model.ScheduleConfig, tables suntime.Source) (ebo.Schedule, error) {
	doc := ebo.Schedule{
		Name:         cfg.ScheduleName,
		DefaultValue: cfg.DefaultValue,
	}

	if err := cfg.Validate(); err != nil {
		return doc, err
	}

	if len(cfg.Rules) == 0 {
		appLog.Info("schedule has no rules; emitting default only", "schedule", cfg.ScheduleName)
		return doc, nil
	}

	var table *suntime.Table
	if hasOffsetRules(cfg.Rules) {
		switch {
		case !cfg.HasLocation():
			appLog.Warn("schedule has sun offset rules but no location; they will be skipped",
				"schedule", cfg.ScheduleName)
		case tables == nil:
			return doc, errors.New("schedule: no sun table source configured")
		default:
			t, err := tables.Table(ctx, *cfg.Latitude, *cfg.Longitude, cfg.Year)
			if err != nil {
				return doc, err
			}
			table = t
		}
	}

	events, err := Compile(cfg, table)
	if err != nil {
		return doc, err
	}
	doc.Events = events

	appLog.Debug("schedule compiled",
		"schedule", cfg.ScheduleName,
		"year", cfg.Year,
		"rules", len(cfg.Rules),
		"day_events", len(events),
		"sun_table", table != nil,
	)
	return doc, nil
}

// RecompileAll compiles every config in order and collects them into one
// object set. Version and server path come from the first config that sets
// them unless overridden by the caller.
func RecompileAll(ctx context.Context, cfgs []model.ScheduleConfig, tables suntime.Source, version, serverFullPath string) (*ebo.ObjectSet, error) {
	if version == "" {
		for _, c := range cfgs {
			if c.EBOVersion != "" {
				version = c.EBOVersion
				break
			}
		}
	}
	set := ebo.NewObjectSet(version, serverFullPath)
	for _, c := range cfgs {
		doc, err := Recompile(ctx, c, tables)
		if err != nil {
			return nil, err
		}
		set.Add(doc)
	}
	return set, nil
}

func hasOffsetRules(rules []model.Rule) bool {
	for _, r := range rules {
		if r.TimeReference.IsOffset() {
			return true
		}
	}
	return false
}

// Package pipeline turns a loaded configuration into the combined import
// document and its calendar preview. The CLI and the server both go through
// it.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"astrosched/internal/config"
	"astrosched/internal/ebo"
	"astrosched/internal/ics"
	appLog "astrosched/internal/log"
	"astrosched/internal/model"
	"astrosched/internal/output"
	"astrosched/internal/schedule"
	"astrosched/internal/suntime"
	"astrosched/internal/workbook"
)

// ErrNoSchedules is returned when neither workbooks nor inline schedules are
// configured.
var ErrNoSchedules = errors.New("no schedules configured")

// Options adjust a run beyond what the config file says.
type Options struct {
	// BaseDir resolves relative workbook paths. Usually the config file's
	// directory.
	BaseDir string
	// Workbooks are loaded after the ones listed in the config.
	Workbooks []string
	// Year, if non-zero, replaces every schedule's reference year.
	Year int
}

// Resolve joins a relative path onto BaseDir.
func (o Options) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || o.BaseDir == "" {
		return p
	}
	return filepath.Join(o.BaseDir, p)
}

// Result is one successful compile.
type Result struct {
	Configs    []model.ScheduleConfig
	Set        *ebo.ObjectSet
	XML        []byte
	ICS        []byte
	CompiledAt time.Time
	Duration   time.Duration
}

// LoadSchedules gathers schedule configs: workbooks from cfg, then those from
// opts, then inline schedules.
func LoadSchedules(cfg *config.Config, opts Options) ([]model.ScheduleConfig, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is nil")
	}

	var out []model.ScheduleConfig
	paths := append(append([]string{}, cfg.Workbooks...), opts.Workbooks...)
	for _, p := range paths {
		p = opts.Resolve(p)
		sc, err := workbook.Load(p)
		if err != nil {
			return nil, err
		}
		appLog.Debug("workbook loaded", "path", p, "schedule", sc.ScheduleName, "rules", len(sc.Rules))
		out = append(out, sc)
	}

	inline, err := cfg.ScheduleConfigs()
	if err != nil {
		return nil, err
	}
	out = append(out, inline...)

	if opts.Year != 0 {
		for i := range out {
			out[i].Year = opts.Year
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSchedules
	}
	return out, nil
}

// Compile recompiles every schedule and encodes both outputs in memory.
func Compile(ctx context.Context, cfg *config.Config, tables suntime.Source, opts Options) (*Result, error) {
	start := time.Now()

	cfgs, err := LoadSchedules(cfg, opts)
	if err != nil {
		return nil, err
	}

	set, err := schedule.RecompileAll(ctx, cfgs, tables, cfg.EBOVersion, cfg.ServerFullPath)
	if err != nil {
		return nil, err
	}

	xmlDoc, err := ebo.Marshal(set)
	if err != nil {
		return nil, err
	}

	cal := ics.NewCalendar(calendarName(cfgs))
	for i, sc := range set.Schedules {
		if err := cal.Add(sc.Name, cfgs[i].Year, sc.Events); err != nil {
			return nil, err
		}
	}
	var icsBuf bytes.Buffer
	if err := cal.Encode(&icsBuf); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	if err := checkPreview(icsBuf.Bytes(), set); err != nil {
		appLog.Warn("calendar preview does not match the compiled schedules", "err", err.Error())
	}

	res := &Result{
		Configs:    cfgs,
		Set:        set,
		XML:        xmlDoc,
		ICS:        icsBuf.Bytes(),
		CompiledAt: time.Now(),
	}
	res.Duration = res.CompiledAt.Sub(start)

	appLog.Info("schedules compiled",
		"schedules", len(set.Schedules),
		"day_events", set.EventCount(),
		"duration", res.Duration.String(),
	)
	return res, nil
}

// Write stores the document at xmlPath and, when icsPath is set, the
// calendar preview.
func (r *Result) Write(xmlPath, icsPath string) error {
	if err := output.WriteBytes(xmlPath, 0o644, r.XML); err != nil {
		return err
	}
	appLog.Info("document written", "path", xmlPath, "bytes", len(r.XML))

	if icsPath != "" {
		if err := output.WriteBytes(icsPath, 0o644, r.ICS); err != nil {
			return err
		}
		appLog.Info("calendar preview written", "path", icsPath, "bytes", len(r.ICS))
	}
	return nil
}

// checkPreview reads the encoded calendar back and compares the number of
// entries per schedule with what was compiled.
func checkPreview(data []byte, set *ebo.ObjectSet) error {
	days, err := ics.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	got := make(map[string]int)
	for _, d := range days {
		got[d.Schedule] += len(d.Entries)
	}
	want := make(map[string]int)
	for _, sc := range set.Schedules {
		for _, ev := range sc.Events {
			want[sc.Name] += len(ev.Entries)
		}
	}

	var errs []error
	for _, sc := range set.Schedules {
		n, ok := want[sc.Name]
		if !ok {
			continue
		}
		delete(want, sc.Name)
		if got[sc.Name] != n {
			errs = append(errs, fmt.Errorf("schedule %q: %d entries in preview, %d compiled", sc.Name, got[sc.Name], n))
		}
	}
	return errors.Join(errs...)
}

func calendarName(cfgs []model.ScheduleConfig) string {
	if len(cfgs) == 1 {
		return cfgs[0].ScheduleName
	}
	return fmt.Sprintf("%d schedules", len(cfgs))
}

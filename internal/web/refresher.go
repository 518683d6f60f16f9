package web

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"astrosched/internal/config"
	appLog "astrosched/internal/log"
	"astrosched/internal/pipeline"
	"astrosched/internal/suntime"
)

const defaultDebounce = 500 * time.Millisecond

// Refresher recompiles the configured schedules and keeps the latest result.
// A compile runs at start, on the configured cron spec and whenever the
// config file or one of its workbooks changes on disk.
type Refresher struct {
	configPath string
	tables     suntime.Source
	opts       pipeline.Options
	debounce   time.Duration

	runMu sync.Mutex

	mu      sync.RWMutex
	cfg     *config.Config
	latest  *pipeline.Result
	lastErr error

	// Set by Start. cronSpec, cronID and dirs are guarded by runMu; files by mu.
	ctx      context.Context
	cron     *cron.Cron
	cronSpec string
	cronID   cron.EntryID
	watcher  *fsnotify.Watcher
	dirs     map[string]struct{}
	files    map[string]struct{}
}

// NewRefresher returns a refresher for the config file at configPath.
func NewRefresher(configPath string, tables suntime.Source, opts pipeline.Options) *Refresher {
	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(configPath)
	}
	return &Refresher{
		configPath: configPath,
		tables:     tables,
		opts:       opts,
		debounce:   defaultDebounce,
	}
}

// Latest returns the last successful compile, or nil.
func (r *Refresher) Latest() *pipeline.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// LastError is the error of the most recent compile, nil if it succeeded.
func (r *Refresher) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Config is the config used by the most recent compile attempt.
func (r *Refresher) Config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Refresh reloads the config, compiles and writes the outputs. A failed
// compile or write leaves the previous result in place. Once started, a
// changed refresh spec or workbook list re-arms the schedule and the watcher.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	err := r.refresh(ctx)

	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		appLog.Error("refresh failed", err, "config", r.configPath)
	}
	return err
}

func (r *Refresher) refresh(ctx context.Context) error {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()

	if r.cron != nil {
		if err := r.armCron(cfg.RefreshCron); err != nil {
			appLog.Error("keeping previous refresh schedule", err, "spec", r.cronSpec)
		}
		if err := r.watchPaths(r.watchedPaths(cfg)); err != nil {
			appLog.Error("updating watched files", err)
		}
	}

	res, err := pipeline.Compile(ctx, cfg, r.tables, r.opts)
	if err != nil {
		recordCompile(err, 0)
		return err
	}
	if err := res.Write(r.opts.Resolve(cfg.Output), r.opts.Resolve(cfg.ICSOutput)); err != nil {
		recordCompile(err, 0)
		return err
	}

	recordCompile(nil, res.Duration.Seconds())
	for i, sc := range res.Set.Schedules {
		dayEvents.WithLabelValues(res.Configs[i].ScheduleName).Set(float64(len(sc.Events)))
	}

	r.mu.Lock()
	r.latest = res
	r.mu.Unlock()
	return nil
}

// Start runs the first compile and then schedules further ones until ctx is
// canceled. A failing first compile is logged, not returned, so the server
// can still report it.
func (r *Refresher) Start(ctx context.Context) error {
	_ = r.Refresh(ctx)

	cfg := r.Config()
	if cfg == nil {
		return errors.New("refresher: config could not be loaded")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	r.runMu.Lock()
	r.ctx = ctx
	r.cron = cron.New()
	r.watcher = watcher
	r.dirs = make(map[string]struct{})
	err = r.armCron(cfg.RefreshCron)
	if err == nil {
		err = r.watchPaths(r.watchedPaths(cfg))
	}
	if err != nil {
		r.cron = nil
		r.watcher = nil
		r.runMu.Unlock()
		_ = watcher.Close()
		return err
	}
	r.cron.Start()
	r.runMu.Unlock()

	go r.watchLoop(ctx, watcher)
	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Stop halts the cron schedule and the file watcher.
func (r *Refresher) Stop() {
	r.runMu.Lock()
	c, w := r.cron, r.watcher
	r.runMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	if w != nil {
		_ = w.Close()
	}
}

// armCron replaces the scheduled refresh when spec differs from the armed
// one. An invalid spec leaves the current entry in place. Callers hold runMu.
func (r *Refresher) armCron(spec string) error {
	if spec == r.cronSpec {
		return nil
	}
	id, err := r.cron.AddFunc(spec, func() {
		appLog.Info("scheduled refresh", "spec", spec)
		_ = r.Refresh(r.ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", spec, err)
	}
	if r.cronSpec != "" {
		r.cron.Remove(r.cronID)
	}
	r.cronSpec, r.cronID = spec, id
	appLog.Info("refresh schedule armed", "spec", spec)
	return nil
}

func (r *Refresher) watchedPaths(cfg *config.Config) []string {
	paths := []string{r.configPath}
	for _, wb := range append(append([]string{}, cfg.Workbooks...), r.opts.Workbooks...) {
		paths = append(paths, r.opts.Resolve(wb))
	}
	return paths
}

// watchPaths follows the parent directories of paths so editors that replace
// files on save are still seen. Directories no longer needed are dropped.
// Callers hold runMu.
func (r *Refresher) watchPaths(paths []string) error {
	files := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		p = filepath.Clean(p)
		files[p] = struct{}{}
		dirs[filepath.Dir(p)] = struct{}{}
	}

	var errs []error
	for d := range dirs {
		if _, ok := r.dirs[d]; ok {
			continue
		}
		if err := r.watcher.Add(d); err != nil {
			errs = append(errs, fmt.Errorf("watch %s: %w", d, err))
			continue
		}
		r.dirs[d] = struct{}{}
	}
	for d := range r.dirs {
		if _, ok := dirs[d]; !ok {
			_ = r.watcher.Remove(d)
			delete(r.dirs, d)
		}
	}

	r.mu.Lock()
	r.files = files
	r.mu.Unlock()

	appLog.Info("watching schedule sources", "files", len(files), "dirs", len(r.dirs))
	return errors.Join(errs...)
}

func (r *Refresher) tracked(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.files[filepath.Clean(path)]
	return ok
}

func (r *Refresher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !r.tracked(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			appLog.Debug("schedule source changed", "path", event.Name, "op", event.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(r.debounce, func() {
				_ = r.Refresh(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			appLog.Error("file watcher error", err)
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"astrosched/internal/model"
	"astrosched/internal/output"
)

// RuleSpec is the YAML form of one rule. Value is a string so that "null",
// "none" and an empty value can be written the same way as in a workbook.
type RuleSpec struct {
	TimeReference string `yaml:"time_reference" json:"time_reference"`
	Hour          int    `yaml:"hour" json:"hour"`
	Minute        int    `yaml:"minute" json:"minute"`
	Value         string `yaml:"value" json:"value"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ScheduleSpec describes a schedule written inline in the config file.
type ScheduleSpec struct {
	Name string `yaml:"name" json:"name"`
	// Latitude and Longitude are both required for sun offset rules.
	Latitude     *float64   `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude    *float64   `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	Year         int        `yaml:"year,omitempty" json:"year,omitempty"`
	DefaultValue string     `yaml:"default_value,omitempty" json:"default_value,omitempty"`
	ScheduleType string     `yaml:"schedule_type,omitempty" json:"schedule_type,omitempty"`
	Rules        []RuleSpec `yaml:"rules" json:"rules"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the preview API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// RefreshCron is a cron-style schedule string (e.g. "0 3 * * *") used to
	// recompile periodically in serve mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Output is where the combined import document is written.
	Output string `yaml:"output" json:"output"`

	// ICSOutput, if set, also writes a calendar preview of the compiled days.
	ICSOutput string `yaml:"ics_output,omitempty" json:"ics_output,omitempty"`

	EBOVersion     string `yaml:"ebo_version" json:"ebo_version"`
	ServerFullPath string `yaml:"server_full_path" json:"server_full_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format" json:"log_format"`

	// Workbooks are spreadsheet sources, compiled before inline schedules.
	Workbooks []string `yaml:"workbooks" json:"workbooks"`

	Schedules []ScheduleSpec `yaml:"schedules" json:"schedules"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:8080",
		RefreshCron:    "0 3 * * *",
		Output:         "astroschedule.xml",
		EBOVersion:     model.DefaultEBOVersion,
		ServerFullPath: "/Server 1",
		LogLevel:       "info",
		LogFormat:      "console",
		Workbooks:      []string{},
		Schedules:      []ScheduleSpec{},
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Output == "" {
		c.Output = def.Output
	}
	if c.EBOVersion == "" {
		c.EBOVersion = def.EBOVersion
	}
	if c.ServerFullPath == "" {
		c.ServerFullPath = def.ServerFullPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		c.LogFormat = def.LogFormat
	}
	if c.Workbooks == nil {
		c.Workbooks = []string{}
	}
	if c.Schedules == nil {
		c.Schedules = []ScheduleSpec{}
	}
}

// ScheduleConfigs converts the inline schedules into model configs. The
// config-level EBO version is applied to each of them.
func (c *Config) ScheduleConfigs() ([]model.ScheduleConfig, error) {
	out := make([]model.ScheduleConfig, 0, len(c.Schedules))
	var errs []error
	for i, s := range c.Schedules {
		sc, err := s.ScheduleConfig()
		if err != nil {
			errs = append(errs, fmt.Errorf("schedules[%d]: %w", i, err))
			continue
		}
		if c.EBOVersion != "" {
			sc.EBOVersion = c.EBOVersion
		}
		out = append(out, sc)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduleConfig validates s and converts it to a model config.
func (s ScheduleSpec) ScheduleConfig() (model.ScheduleConfig, error) {
	sc := model.DefaultScheduleConfig()
	if s.Name != "" {
		sc.ScheduleName = s.Name
	}
	if s.Year != 0 {
		sc.Year = s.Year
	}
	if s.ScheduleType != "" {
		sc.ScheduleType = s.ScheduleType
	}
	if s.DefaultValue != "" {
		v, err := model.ParseValue(s.DefaultValue)
		if err != nil {
			return sc, fmt.Errorf("default_value: %w", err)
		}
		sc.DefaultValue = v
	}
	sc.Latitude = s.Latitude
	sc.Longitude = s.Longitude

	for i, r := range s.Rules {
		ref, err := model.ParseTimeReference(r.TimeReference)
		if err != nil {
			return sc, fmt.Errorf("rules[%d]: %w", i, err)
		}
		v, err := model.ParseValue(r.Value)
		if err != nil {
			return sc, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if err := sc.AddRule(ref, r.Hour, r.Minute, v); err != nil {
			return sc, fmt.Errorf("rules[%d]: %w", i, err)
		}
		sc.Rules[len(sc.Rules)-1].Description = r.Description
	}

	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it as YAML with 0600 permissions. The
// previous file is replaced atomically.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return output.WriteBytes(path, 0o600, data)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

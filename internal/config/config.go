// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Storage  StorageConfig           `mapstructure:"storage"`
	Schedule ScheduleConfig          `mapstructure:"schedule"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Admin    AdminConfig             `mapstructure:"admin"`
	Sources  map[string]SourceConfig `mapstructure:"sources"`
}

// StorageConfig sets the on-disk layout for persisted documents.
type StorageConfig struct {
	Root          string `mapstructure:"root"`
	AttachmentExt string `mapstructure:"attachment_ext"`
}

// ScheduleConfig governs when harvest passes fire.
type ScheduleConfig struct {
	WindowDays     int    `mapstructure:"window_days"`
	Weekday        string `mapstructure:"weekday"`
	Hour           int    `mapstructure:"hour"`
	Minute         int    `mapstructure:"minute"`
	Hourly         bool   `mapstructure:"hourly"`
	Once           bool   `mapstructure:"once"`
	BackoffSeconds int    `mapstructure:"backoff_seconds"`
}

// HTTPConfig configures outbound HTTP behavior shared by harvesters.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// LoggingConfig controls the console logger and the per-run log files.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Dir         string `mapstructure:"dir"`
	Level       string `mapstructure:"level"`
}

// AdminConfig controls the metrics/health endpoint. Port 0 disables it.
type AdminConfig struct {
	Port int `mapstructure:"port"`
}

// SourceConfig describes one harvested source. Kind selects the harvester
// implementation; the selector fields apply to listing sources only.
type SourceConfig struct {
	Kind     string  `mapstructure:"kind"`
	URL      string  `mapstructure:"url"`
	Language string  `mapstructure:"language"`
	DocType  string  `mapstructure:"doc_type"`
	IDBasis  string  `mapstructure:"id_basis"`
	RPS      float64 `mapstructure:"rps"`

	ItemSelector  string `mapstructure:"item_selector"`
	LinkSelector  string `mapstructure:"link_selector"`
	TitleSelector string `mapstructure:"title_selector"`
	DateSelector  string `mapstructure:"date_selector"`
	BodySelector  string `mapstructure:"body_selector"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.root", "data")
	v.SetDefault("storage.attachment_ext", "pdf")
	v.SetDefault("schedule.window_days", 7)
	v.SetDefault("schedule.weekday", "Monday")
	v.SetDefault("schedule.hour", 6)
	v.SetDefault("schedule.minute", 0)
	v.SetDefault("schedule.backoff_seconds", 60)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "docharvest/0.1")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("admin.port", 0)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root must be set")
	}
	if c.Schedule.WindowDays <= 0 {
		return fmt.Errorf("schedule.window_days must be > 0")
	}
	if _, ok := weekdays[strings.ToLower(c.Schedule.Weekday)]; !ok {
		return fmt.Errorf("schedule.weekday %q is not a weekday name", c.Schedule.Weekday)
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		return fmt.Errorf("schedule.hour must be in [0, 23]")
	}
	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		return fmt.Errorf("schedule.minute must be in [0, 59]")
	}
	if c.Schedule.BackoffSeconds <= 0 {
		return fmt.Errorf("schedule.backoff_seconds must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Admin.Port < 0 {
		return fmt.Errorf("admin.port must be >= 0")
	}
	for name, src := range c.Sources {
		if err := src.validate(); err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}
	}
	return nil
}

func (s SourceConfig) validate() error {
	switch s.Kind {
	case "feed":
	case "listing":
		if s.ItemSelector == "" || s.LinkSelector == "" {
			return fmt.Errorf("listing sources require item_selector and link_selector")
		}
	default:
		return fmt.Errorf("kind %q must be feed or listing", s.Kind)
	}
	if s.URL == "" {
		return fmt.Errorf("url must be set")
	}
	switch s.IDBasis {
	case "", "raw", "canonical":
	default:
		return fmt.Errorf("id_basis %q must be raw or canonical", s.IDBasis)
	}
	if s.RPS < 0 {
		return fmt.Errorf("rps must be >= 0")
	}
	return nil
}

// ScheduleWeekday resolves the configured weekday name.
func (c Config) ScheduleWeekday() time.Weekday {
	return weekdays[strings.ToLower(c.Schedule.Weekday)]
}

// Backoff converts the configured loop backoff into a duration.
func (c Config) Backoff() time.Duration {
	return time.Duration(c.Schedule.BackoffSeconds) * time.Second
}

// HTTPTimeout converts the outbound HTTP timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment overrides. Env always wins over the file.
const (
	EnvConfig       = "EVENTGRAPH_CONFIG"
	EnvInput        = "EVENTGRAPH_INPUT"
	EnvOutputDir    = "EVENTGRAPH_OUTPUT_DIR"
	EnvEventHashtag = "EVENTGRAPH_EVENT_HASHTAG"
	EnvSchedule     = "EVENTGRAPH_SCHEDULE"
	EnvLogLevel     = "LOG_LEVEL"
	EnvSMTPPassword = "EVENTGRAPH_SMTP_PASSWORD"
)

// Config holds all application configuration
type Config struct {
	Version      int                `toml:"version"`
	Input        InputConfig        `toml:"input"`
	Event        EventConfig        `toml:"event"`
	Hashtags     HashtagsConfig     `toml:"hashtags"`
	Applications ApplicationsConfig `toml:"applications"`
	Timeline     TimelineConfig     `toml:"timeline"`
	Output       OutputConfig       `toml:"output"`
	Schedule     ScheduleConfig     `toml:"schedule"`
	Notify       NotifyConfig       `toml:"notify"`
	Logging      LoggingConfig      `toml:"logging"`
}

type InputConfig struct {
	Path        string   `toml:"path"`
	Sheet       string   `toml:"sheet"`
	DropColumns []string `toml:"drop_columns"`
}

// EventConfig describes the event the export was collected for.
// WindowEnd is exclusive.
type EventConfig struct {
	Hashtag     string    `toml:"hashtag"`
	WindowStart time.Time `toml:"window_start"`
	WindowEnd   time.Time `toml:"window_end"`
}

type HashtagsConfig struct {
	Threshold    int  `toml:"threshold"`
	ExcludeEvent bool `toml:"exclude_event"`
}

type ApplicationsConfig struct {
	TopN int `toml:"top_n"`
}

// TimelineConfig pins the hourly timeline to a day ("2006-01-02").
// Empty means the busiest day in the data.
type TimelineConfig struct {
	Day string `toml:"day"`
}

type OutputConfig struct {
	Dir     string `toml:"dir"`
	SQLite  bool   `toml:"sqlite"`
	Report  bool   `toml:"report"`
	Metrics bool   `toml:"metrics"`
}

// ScheduleConfig re-runs the whole batch on a cron spec. Empty Cron runs once.
type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

// NotifyConfig mails the run report after every committed run.
type NotifyConfig struct {
	Enabled  bool   `toml:"enabled"`
	Provider string `toml:"provider"` // "smtp"
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_addr"`
	ToAddr   string `toml:"to_addr"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Input: InputConfig{
			Path:        filepath.Join("data", "CometLanding.csv"),
			DropColumns: []string{"time"},
		},
		Event: EventConfig{
			Hashtag:     "CometLanding",
			WindowStart: time.Date(2014, time.November, 12, 0, 0, 0, 0, time.UTC),
			WindowEnd:   time.Date(2014, time.December, 6, 0, 0, 0, 0, time.UTC),
		},
		Hashtags: HashtagsConfig{
			Threshold:    100,
			ExcludeEvent: true,
		},
		Applications: ApplicationsConfig{
			TopN: 6,
		},
		Output: OutputConfig{
			Dir:     filepath.Join("data", "out"),
			SQLite:  true,
			Report:  true,
			Metrics: true,
		},
		Schedule: ScheduleConfig{
			Timezone: "UTC",
		},
		Notify: NotifyConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "eventgraph"), nil
}

// ConfigPath returns the config file location, honouring EVENTGRAPH_CONFIG.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from path on top of Default, then applies .env files and
// environment overrides. An empty path resolves through ConfigPath.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist. created reports whether the fallback was used.
func LoadOrDefault(path string) (cfg *Config, created bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	cfg = Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Save writes config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.Path) == "" {
		return &ValidationError{Field: "input.path", Message: "is required"}
	}
	if strings.TrimSpace(c.EventToken()) == "" {
		return &ValidationError{Field: "event.hashtag", Message: "is required"}
	}
	if !c.Event.WindowEnd.After(c.Event.WindowStart) {
		return &ValidationError{Field: "event.window_end", Message: "must be after event.window_start"}
	}
	if c.Hashtags.Threshold < 0 {
		return &ValidationError{Field: "hashtags.threshold", Message: "must be non-negative"}
	}
	if c.Applications.TopN <= 0 {
		return &ValidationError{Field: "applications.top_n", Message: "must be positive"}
	}
	if c.Timeline.Day != "" {
		if _, err := time.Parse(time.DateOnly, c.Timeline.Day); err != nil {
			return &ValidationError{Field: "timeline.day", Message: "must look like 2006-01-02"}
		}
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return &ValidationError{Field: "output.dir", Message: "is required"}
	}
	if c.Notify.Enabled {
		if c.Notify.SMTPHost == "" {
			return &ValidationError{Field: "notify.smtp_host", Message: "is required when notify is enabled"}
		}
		if c.Notify.ToAddr == "" {
			return &ValidationError{Field: "notify.to_addr", Message: "is required when notify is enabled"}
		}
		if !c.Output.Report {
			return &ValidationError{Field: "notify.enabled", Message: "needs output.report"}
		}
	}
	return nil
}

// EventToken is the event hashtag without a leading '#'.
func (c *Config) EventToken() string {
	return strings.TrimPrefix(strings.TrimSpace(c.Event.Hashtag), "#")
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvInput); v != "" {
		c.Input.Path = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvEventHashtag); v != "" {
		c.Event.Hashtag = v
	}
	if v := os.Getenv(EnvSchedule); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		c.Notify.SMTPPass = v
	}
}

// loadEnvFiles loads .env.local then .env; missing files are ignored and
// variables already set are never overwritten.
func loadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

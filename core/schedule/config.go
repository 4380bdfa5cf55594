package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the scheduling business rules loaded from configuration.
// All rules are evaluated in UTC.
type Config struct {
	DayStartHour           int      `json:"day_start_hour" yaml:"day_start_hour"`
	DayEndHour             int      `json:"day_end_hour" yaml:"day_end_hour"`
	AllowedWeekdays        []string `json:"allowed_weekdays" yaml:"allowed_weekdays"`
	SessionDurationMinutes int      `json:"session_duration_minutes" yaml:"session_duration_minutes"`
	MaxSessionsPerDay      int      `json:"max_sessions_per_day" yaml:"max_sessions_per_day"`
	MinBreakMinutes        int      `json:"min_break_minutes" yaml:"min_break_minutes"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// SetDefaults fills unset fields with the standard clinic rules: three-hour
// sessions on weekdays between 08:00 and 18:00, at most two sessions per RBT
// per day with a thirty-minute break between them.
func (c *Config) SetDefaults() {
	if c.DayStartHour == 0 && c.DayEndHour == 0 {
		c.DayStartHour = 8
		c.DayEndHour = 18
	}
	if len(c.AllowedWeekdays) == 0 {
		c.AllowedWeekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	}
	if c.SessionDurationMinutes == 0 {
		c.SessionDurationMinutes = 180
	}
	if c.MaxSessionsPerDay == 0 {
		c.MaxSessionsPerDay = 2
	}
	if c.MinBreakMinutes == 0 {
		c.MinBreakMinutes = 30
	}
}

// Validate checks rule coherence.
func (c Config) Validate() error {
	if c.DayStartHour < 0 || c.DayStartHour > 23 {
		return fmt.Errorf("day_start_hour out of range: %d", c.DayStartHour)
	}
	if c.DayEndHour < 1 || c.DayEndHour > 24 {
		return fmt.Errorf("day_end_hour out of range: %d", c.DayEndHour)
	}
	if c.DayEndHour <= c.DayStartHour {
		return fmt.Errorf("day_end_hour must be after day_start_hour")
	}
	if c.SessionDurationMinutes <= 0 {
		return fmt.Errorf("session_duration_minutes must be positive")
	}
	if c.SessionDurationMinutes > (c.DayEndHour-c.DayStartHour)*60 {
		return fmt.Errorf("session duration exceeds the business day")
	}
	if c.MaxSessionsPerDay <= 0 {
		return fmt.Errorf("max_sessions_per_day must be positive")
	}
	if c.MinBreakMinutes < 0 {
		return fmt.Errorf("min_break_minutes must not be negative")
	}
	for _, d := range c.AllowedWeekdays {
		if _, ok := weekdayNames[strings.ToLower(d)]; !ok {
			return fmt.Errorf("unknown weekday %q", d)
		}
	}
	return nil
}

// SessionDuration returns the mandated session length.
func (c Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationMinutes) * time.Minute
}

// MinBreak returns the mandated gap between an RBT's sessions.
func (c Config) MinBreak() time.Duration {
	return time.Duration(c.MinBreakMinutes) * time.Minute
}

// WeekdayAllowed reports whether sessions may start on the given weekday.
func (c Config) WeekdayAllowed(d time.Weekday) bool {
	for _, name := range c.AllowedWeekdays {
		if wd, ok := weekdayNames[strings.ToLower(name)]; ok && wd == d {
			return true
		}
	}
	return false
}

// LoadConfig loads a Config from a JSON or YAML file and applies defaults.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg Config
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err != nil {
		return Config{}, err
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// DecodeConfig reads from r to decode a Config. Defaults are not applied.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, nil
}

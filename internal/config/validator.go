package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/logging"
	"github.com/tgienger/sprintdash/internal/timers"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
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

// ParseWeekday accepts a full English weekday name, any case
func ParseWeekday(s string) (time.Weekday, error) {
	if d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Owner) == "" {
		errs = append(errs, ValidationError{Field: "owner", Value: c.Owner, Message: "must not be empty"})
	}

	if c.Goals.DailyHours <= 0 {
		errs = append(errs, ValidationError{Field: "goals.daily_hours", Value: c.Goals.DailyHours, Message: "must be positive"})
	}
	if c.Goals.SprintHours <= 0 {
		errs = append(errs, ValidationError{Field: "goals.sprint_hours", Value: c.Goals.SprintHours, Message: "must be positive"})
	}
	if _, err := ParseWeekday(c.Goals.WeekStart); err != nil {
		errs = append(errs, ValidationError{Field: "goals.week_start", Value: c.Goals.WeekStart, Message: "must be a weekday name"})
	}

	if _, err := analytics.ParsePeriod(c.Velocity.Period); err != nil {
		errs = append(errs, ValidationError{Field: "velocity.period", Value: c.Velocity.Period, Message: "must be week, month or quarter"})
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"timers.pomodoro_work", c.Timers.PomodoroWork},
		{"timers.pomodoro_break", c.Timers.PomodoroBreak},
		{"timers.standup", c.Timers.Standup},
	}
	for _, tm := range durations {
		if tm.value <= 0 {
			errs = append(errs, ValidationError{Field: tm.field, Value: tm.value, Message: "must be positive"})
		}
	}

	if t := c.Timers.StandupTurn; t < timers.MinTurn || t > timers.MaxTurn {
		errs = append(errs, ValidationError{Field: "timers.standup_turn", Value: t, Message: "must be between 1m and 10m"})
	}

	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, ValidationError{Field: "logging.level", Value: c.Logging.Level, Message: "must be one of debug, info, warn, error"})
	}

	return errs
}

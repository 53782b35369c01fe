package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/sprintdash/internal/analytics"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Owner)
	assert.True(t, cfg.Store.Watch)
	assert.Equal(t, 8.0, cfg.Goals.DailyHours)
	assert.Equal(t, 40.0, cfg.Goals.SprintHours)
	assert.Equal(t, "sunday", cfg.Goals.WeekStart)
	assert.Equal(t, "week", cfg.Velocity.Period)
	assert.Equal(t, 25*time.Minute, cfg.Timers.PomodoroWork)
	assert.Equal(t, 5*time.Minute, cfg.Timers.PomodoroBreak)
	assert.Equal(t, 15*time.Minute, cfg.Timers.Standup)
	assert.Equal(t, 2*time.Minute, cfg.Timers.StandupTurn)
	assert.Empty(t, cfg.NewStandup().Speakers())
	assert.Equal(t, "Member", cfg.DefaultRole)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Empty(t, cfg.Validate())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
owner: team-rocket
goals:
  daily_hours: 6
  week_start: Monday
velocity:
  period: quarter
timers:
  pomodoro_work: 50m
  standup_turn: 3m
  standup_speakers: [Jessie, James, Meowth]
roles:
  - identity: jessie@example.com
    role: Lead
`), 0644))

	t.Setenv("SPRINTDASH_GOALS_SPRINT_HOURS", "30")
	t.Setenv("SPRINTDASH_IDENTITY", "james@example.com")

	v := viper.New()
	require.NoError(t, Init(v, file))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "team-rocket", cfg.Owner)
	assert.Equal(t, "james@example.com", cfg.Identity)
	assert.Equal(t, 6.0, cfg.Goals.DailyHours)
	assert.Equal(t, 30.0, cfg.Goals.SprintHours)
	assert.Equal(t, 50*time.Minute, cfg.Timers.PomodoroWork)
	assert.Equal(t, 5*time.Minute, cfg.Timers.PomodoroBreak)

	standup := cfg.NewStandup()
	assert.Equal(t, []string{"Jessie", "James", "Meowth"}, standup.Speakers())
	assert.Equal(t, 3*time.Minute, standup.Remaining())

	goals := cfg.AnalyticsGoals()
	assert.Equal(t, time.Monday, goals.WeekStart)
	assert.Equal(t, analytics.PeriodQuarter, cfg.VelocityPeriod())

	assert.Equal(t, "Lead", cfg.RoleFor("Jessie@example.com"))
	assert.Equal(t, "Member", cfg.RoleFor("james@example.com"))
}

func TestInitWithoutConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SPRINTDASH_OWNER", "solo")

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "solo", cfg.Owner)
	assert.Equal(t, "solo", cfg.Identity, "identity defaults to owner")
}

func TestInitMissingExplicitFile(t *testing.T) {
	v := viper.New()
	assert.Error(t, Init(v, filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty owner", func(c *Config) { c.Owner = " " }, "owner"},
		{"zero daily goal", func(c *Config) { c.Goals.DailyHours = 0 }, "goals.daily_hours"},
		{"negative sprint goal", func(c *Config) { c.Goals.SprintHours = -1 }, "goals.sprint_hours"},
		{"bad week start", func(c *Config) { c.Goals.WeekStart = "funday" }, "goals.week_start"},
		{"bad period", func(c *Config) { c.Velocity.Period = "year" }, "velocity.period"},
		{"zero pomodoro", func(c *Config) { c.Timers.PomodoroWork = 0 }, "timers.pomodoro_work"},
		{"negative standup", func(c *Config) { c.Timers.Standup = -time.Second }, "timers.standup"},
		{"short standup turn", func(c *Config) { c.Timers.StandupTurn = 30 * time.Second }, "timers.standup_turn"},
		{"long standup turn", func(c *Config) { c.Timers.StandupTurn = time.Hour }, "timers.standup_turn"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidationErrorsError(t *testing.T) {
	single := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
	assert.Equal(t, "a: bad (got: 1)", single.Error())

	multi := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}, {Field: "b", Value: "x", Message: "worse"}}
	assert.Contains(t, multi.Error(), "2 validation errors")
	assert.Contains(t, multi.Error(), "2. b: worse (got: x)")
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/sprintdash", ConfigDir())
	assert.Equal(t, "/tmp/xdg/sprintdash/config.yaml", ConfigFile())
}

func TestLogFile(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	cfg := Default()
	assert.Equal(t, "/tmp/data/sprintdash/sprintdash.log", cfg.LogFile())
	cfg.Logging.File = "/var/log/sd.log"
	assert.Equal(t, "/var/log/sd.log", cfg.LogFile())
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/timers"
)

// Config represents the complete sprintdash configuration
type Config struct {
	// Owner scopes every collection; everyone sharing a board uses the same owner
	Owner string `mapstructure:"owner"`
	// Identity is who is acting, recorded on session claims (default: owner)
	Identity    string          `mapstructure:"identity"`
	Store       StoreConfig     `mapstructure:"store"`
	Goals       GoalsConfig     `mapstructure:"goals"`
	Velocity    VelocityConfig  `mapstructure:"velocity"`
	Timers      TimersConfig    `mapstructure:"timers"`
	Roles       []RoleConfig    `mapstructure:"roles"`
	DefaultRole string          `mapstructure:"default_role"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

// RoleConfig assigns a role to an identity, usually an email
type RoleConfig struct {
	Identity string `mapstructure:"identity"`
	Role     string `mapstructure:"role"`
}

// StoreConfig locates the database
type StoreConfig struct {
	// Path is the SQLite file (default: $XDG_DATA_HOME/sprintdash/sprintdash.db)
	Path string `mapstructure:"path"`
	// Watch refreshes live views when another process writes the database
	Watch bool `mapstructure:"watch"`
}

// GoalsConfig sets the progress meter targets
type GoalsConfig struct {
	DailyHours  float64 `mapstructure:"daily_hours"`
	SprintHours float64 `mapstructure:"sprint_hours"`
	// WeekStart is the weekday a sprint begins, e.g. "sunday" or "monday"
	WeekStart string `mapstructure:"week_start"`
}

// VelocityConfig picks the default velocity chart window
type VelocityConfig struct {
	// Period is one of week, month, quarter
	Period string `mapstructure:"period"`
}

// TimersConfig sets timer lengths
type TimersConfig struct {
	PomodoroWork  time.Duration `mapstructure:"pomodoro_work"`
	PomodoroBreak time.Duration `mapstructure:"pomodoro_break"`
	Standup       time.Duration `mapstructure:"standup"`
	// StandupTurn is each speaker's share when StandupSpeakers is set
	StandupTurn     time.Duration `mapstructure:"standup_turn"`
	StandupSpeakers []string      `mapstructure:"standup_speakers"`
}

// LoggingConfig controls the structured log
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File is the log destination (default: <data dir>/sprintdash.log)
	File string `mapstructure:"file"`
}

// TelemetryConfig controls OpenTelemetry export
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Stdout prints spans and metrics to stdout
	Stdout bool `mapstructure:"stdout"`
	// Endpoint is an OTLP/HTTP metrics collector, host:port
	Endpoint string `mapstructure:"endpoint"`
}

// Default returns the built-in configuration
func Default() *Config {
	owner := os.Getenv("USER")
	if owner == "" {
		owner = "local"
	}
	return &Config{
		Owner: owner,
		Store: StoreConfig{Watch: true},
		Goals: GoalsConfig{
			DailyHours:  8,
			SprintHours: 40,
			WeekStart:   "sunday",
		},
		Velocity: VelocityConfig{Period: string(analytics.PeriodWeek)},
		Timers: TimersConfig{
			PomodoroWork:  25 * time.Minute,
			PomodoroBreak: 5 * time.Minute,
			Standup:       15 * time.Minute,
			StandupTurn:   2 * time.Minute,
		},
		Roles:       []RoleConfig{},
		DefaultRole: "Member",
		Logging:     LoggingConfig{Level: "info"},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("owner", defaults.Owner)
	v.SetDefault("identity", defaults.Identity)

	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("store.watch", defaults.Store.Watch)

	v.SetDefault("goals.daily_hours", defaults.Goals.DailyHours)
	v.SetDefault("goals.sprint_hours", defaults.Goals.SprintHours)
	v.SetDefault("goals.week_start", defaults.Goals.WeekStart)

	v.SetDefault("velocity.period", defaults.Velocity.Period)

	v.SetDefault("timers.pomodoro_work", defaults.Timers.PomodoroWork)
	v.SetDefault("timers.pomodoro_break", defaults.Timers.PomodoroBreak)
	v.SetDefault("timers.standup", defaults.Timers.Standup)
	v.SetDefault("timers.standup_turn", defaults.Timers.StandupTurn)
	v.SetDefault("timers.standup_speakers", []string{})

	v.SetDefault("roles", defaults.Roles)
	v.SetDefault("default_role", defaults.DefaultRole)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)

	v.SetDefault("telemetry.enabled", defaults.Telemetry.Enabled)
	v.SetDefault("telemetry.stdout", defaults.Telemetry.Stdout)
	v.SetDefault("telemetry.endpoint", defaults.Telemetry.Endpoint)
}

// Init prepares v to read the config file and SPRINTDASH_ environment
// variables. cfgFile overrides the default location when set.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	v.SetEnvPrefix("SPRINTDASH")
	// SPRINTDASH_GOALS_DAILY_HOURS for goals.daily_hours
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads the configuration from v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Identity == "" {
		cfg.Identity = cfg.Owner
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sprintdash")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sprintdash"
	}
	return filepath.Join(home, ".config", "sprintdash")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LogFile returns the configured log file or the default one in the data dir
func (c *Config) LogFile() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	dir, err := db.DataDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "sprintdash.log")
}

// RoleFor looks up identity in the roles table, ignoring case, falling
// back to the default role
func (c *Config) RoleFor(identity string) string {
	for _, r := range c.Roles {
		if strings.EqualFold(r.Identity, identity) && r.Role != "" {
			return r.Role
		}
	}
	return c.DefaultRole
}

// AnalyticsGoals converts the goals section. Call after Validate.
func (c *Config) AnalyticsGoals() analytics.Goals {
	day, _ := ParseWeekday(c.Goals.WeekStart)
	return analytics.Goals{
		DailyHours:  c.Goals.DailyHours,
		SprintHours: c.Goals.SprintHours,
		WeekStart:   day,
	}
}

// VelocityPeriod returns the configured default period. Call after Validate.
func (c *Config) VelocityPeriod() analytics.Period {
	p, err := analytics.ParsePeriod(c.Velocity.Period)
	if err != nil {
		return analytics.PeriodWeek
	}
	return p
}

// NewStandup builds the standup timer, with the configured speaker rotation
func (c *Config) NewStandup() *timers.Standup {
	s := timers.NewStandup(c.Timers.Standup)
	s.SetTurn(c.Timers.StandupTurn)
	for _, name := range c.Timers.StandupSpeakers {
		s.AddSpeaker(name)
	}
	return s
}

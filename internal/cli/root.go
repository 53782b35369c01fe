// Package cli is the sprintdash command tree. With no subcommand it opens
// the dashboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tgienger/sprintdash/internal/archive"
	"github.com/tgienger/sprintdash/internal/config"
	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/excuses"
	"github.com/tgienger/sprintdash/internal/logging"
	"github.com/tgienger/sprintdash/internal/sessions"
	"github.com/tgienger/sprintdash/internal/tasks"
	"github.com/tgienger/sprintdash/internal/telemetry"
	"github.com/tgienger/sprintdash/internal/timers"
	"github.com/tgienger/sprintdash/internal/ui"
)

// BuildInfo is stamped in by the linker
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// env is the state shared by every command of one invocation
type env struct {
	cfgFile string
	build   BuildInfo
	now     func() time.Time

	cfg      *config.Config
	logger   *logging.Logger
	store    *db.DB
	shutdown telemetry.Shutdown
}

func (e *env) tasks() *tasks.Manager {
	return tasks.NewManager(e.store, e.cfg.Owner, tasks.WithClock(e.now), tasks.WithLogger(e.logger))
}

func (e *env) archive() *archive.Engine {
	return archive.NewEngine(e.store, archive.WithClock(e.now), archive.WithLogger(e.logger))
}

func (e *env) excuses() *excuses.Log {
	return excuses.New(e.store, e.cfg.Owner, e.logger, excuses.WithClock(e.now))
}

func (e *env) sessions() *sessions.Scheduler {
	return sessions.NewScheduler(e.store, e.cfg.Owner, e.cfg.Identity, e.cfg.RoleFor(e.cfg.Identity), e.logger)
}

// setup loads config and opens the logger, telemetry and store
func (e *env) setup(cmd *cobra.Command) error {
	v := viper.New()
	if err := config.Init(v, e.cfgFile); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	e.cfg = cfg

	logger, err := logging.NewLogger(cfg.LogFile(), cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	e.logger = logger

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Options{
		Enabled:  cfg.Telemetry.Enabled,
		Stdout:   cfg.Telemetry.Stdout,
		Endpoint: cfg.Telemetry.Endpoint,
		Writer:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	e.shutdown = shutdown

	path := cfg.Store.Path
	if path == "" {
		if path, err = db.DefaultPath(); err != nil {
			return err
		}
	}
	store, err := db.New(path,
		db.WithClock(e.now),
		db.WithLogger(logger),
		db.WithWatch(cfg.Store.Watch),
	)
	if err != nil {
		return err
	}
	e.store = store
	e.logger.Debug("command started", "command", cmd.CommandPath(), "owner", cfg.Owner)
	return nil
}

// run wraps a command body with setup and teardown of the env
func (e *env) run(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := e.setup(cmd); err != nil {
			_ = e.teardown()
			return err
		}
		defer func() {
			if cerr := e.teardown(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, e, args)
	}
}

func (e *env) teardown() error {
	var errs []error
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	if e.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, e.shutdown(ctx))
	}
	if e.logger != nil {
		errs = append(errs, e.logger.Close())
	}
	e.store, e.shutdown, e.logger = nil, nil, nil
	return errors.Join(errs...)
}

// NewRootCmd builds the command tree
func NewRootCmd(build BuildInfo) *cobra.Command {
	return newRootCmd(build, time.Now)
}

func newRootCmd(build BuildInfo, now func() time.Time) *cobra.Command {
	e := &env{build: build, now: now}

	root := &cobra.Command{
		Use:   "sprintdash",
		Short: "Sprint dashboard for the terminal",
		Long: `sprintdash tracks a small team's sprint board: tasks move through
todo, in progress, blocked and done, completed work is archived by the
daily reset, and progress and velocity are computed from both.

Run without a subcommand to open the dashboard.`,
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          e.run(runDashboard),
	}
	root.PersistentFlags().StringVarP(&e.cfgFile, "config", "c", "", "config file (default is "+config.ConfigFile()+")")

	root.AddCommand(
		newAddCmd(e),
		newListCmd(e),
		newMoveCmd(e),
		newEditCmd(e),
		newDeleteCmd(e),
		newResetCmd(e),
		newProgressCmd(e),
		newGoalCmd(e),
		newVelocityCmd(e),
		newExportCmd(e),
		newWatchCmd(e),
		newExcuseCmd(e),
		newSessionCmd(e),
		newVersionCmd(e),
	)
	return root
}

// Execute runs the command line and reports a failure on stderr
func Execute(build BuildInfo) error {
	root := NewRootCmd(build)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runDashboard(cmd *cobra.Command, e *env, args []string) error {
	cfg := e.cfg
	goals, err := cfg.RuntimeGoals(e.store)
	if err != nil {
		return err
	}
	app := ui.NewApp(ui.Deps{
		Settings: e.store,
		Store:    e.store,
		Tasks:    e.tasks(),
		Archive:  e.archive(),
		Excuses:  e.excuses(),
		Sessions: e.sessions(),
		Goals:    goals,
		Period:   cfg.VelocityPeriod(),
		Pomodoro: timers.NewPomodoro(cfg.Timers.PomodoroWork, cfg.Timers.PomodoroBreak),
		Standup:  cfg.NewStandup(),
		Logger:   e.logger,
		Now:      e.now,
	})
	defer app.Close()

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sprintdash %s (commit: %s, built: %s)\n",
				e.build.Version, e.build.Commit, e.build.Date)
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/config"
	"github.com/tgienger/sprintdash/internal/export"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
	"github.com/tgienger/sprintdash/internal/ui/styles"
)

const barWidth = 30

func newResetCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Archive done tasks and clear them from the board",
		Long: `Run the daily reset: every task in the done column is copied to the
archive and removed from the board in one atomic batch. If the batch fails
nothing is archived and the board is untouched.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		live, err := e.tasks().ListTasks(cmd.Context())
		if err != nil {
			return err
		}
		res, err := e.archive().PerformDailyReset(cmd.Context(), e.cfg.Owner, live)
		if err != nil {
			return err
		}
		if res.ArchivedCount == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to archive.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %d tasks (%s)\n", res.ArchivedCount, hours(res.ArchivedHours))
		return nil
	})
	return cmd
}

// loadAll reads the live board and the whole archive
func loadAll(ctx context.Context, e *env) ([]models.Task, []models.ArchivedTask, error) {
	live, err := e.tasks().ListTasks(ctx)
	if err != nil {
		return nil, nil, err
	}
	archived, err := e.archive().ListArchived(ctx, e.cfg.Owner, time.Time{})
	if err != nil {
		return nil, nil, err
	}
	return live, archived, nil
}

func meter(label string, p analytics.Progress) string {
	color := styles.RatingColor(analytics.RatingFor(p.Percent))
	return fmt.Sprintf("%-7s %s %s / %s (%.0f%%)",
		label, theme.Bar(p.Percent, barWidth, color), hours(p.Hours), hours(p.Goal), p.Percent)
}

func newProgressCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show today, sprint and board progress",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		live, archived, err := loadAll(cmd.Context(), e)
		if err != nil {
			return err
		}
		goals, err := e.cfg.RuntimeGoals(e.store)
		if err != nil {
			return err
		}
		all := analytics.Combine(live, archived)
		pv := analytics.ComputeProgress(all, goals, e.now())
		board := analytics.Board(live)
		dist := analytics.TimeDistribution(all)

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, meter("Today", pv.Today))
		fmt.Fprintln(w, meter("Sprint", pv.Sprint))
		fmt.Fprintf(w, "%-7s %s %d/%d done (%.0f%%)\n",
			"Board", theme.Bar(board.Percent, barWidth, styles.RatingColor(analytics.RatingFor(board.Percent))),
			board.Done, board.Total, board.Percent)
		if overdue := tasks.Overdue(live, e.now()); len(overdue) > 0 {
			fmt.Fprintf(w, "%d overdue\n", len(overdue))
		}
		fmt.Fprintf(w, "Sizes   quick (≤2h) %d · medium (2-8h) %d · large (>8h) %d\n", dist.Quick, dist.Medium, dist.Large)
		fmt.Fprintln(w, theme.TitleMuted.Render(dist.Tip()))
		return nil
	})
	return cmd
}

func newGoalCmd(e *env) *cobra.Command {
	var add float64

	cmd := &cobra.Command{
		Use:   "goal [hours]",
		Short: "Show or change the sprint goal",
		Long: `Show the sprint goal, set it to a number of hours, or move it with --add.
The goal is saved in the database and overrides goals.sprint_hours.`,
		Example: `  sprintdash goal
  sprintdash goal 32
  sprintdash goal --add -5`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		goal, err := e.cfg.SprintGoal(e.store)
		if err != nil {
			return err
		}
		changed := cmd.Flags().Changed("add")
		if len(args) == 1 {
			if goal, err = strconv.ParseFloat(args[0], 64); err != nil {
				return fmt.Errorf("invalid goal %q: %w", args[0], err)
			}
			changed = true
		}
		if cmd.Flags().Changed("add") {
			goal = analytics.AdjustGoal(goal, add)
		}
		if changed {
			if err := config.SaveSprintGoal(e.store, goal); err != nil {
				return err
			}
			e.logger.Info("sprint goal changed", "hours", goal)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sprint goal: %gh\n", goal)
		return nil
	})
	cmd.Flags().Float64Var(&add, "add", 0, "hours to add to the goal, negative to lower it")
	return cmd
}

func newVelocityCmd(e *env) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "velocity",
		Short: "Chart archived hours per day or week",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		p := e.cfg.VelocityPeriod()
		if period != "" {
			var err error
			if p, err = analytics.ParsePeriod(period); err != nil {
				return err
			}
		}
		archived, err := e.archive().ListArchived(cmd.Context(), e.cfg.Owner, time.Time{})
		if err != nil {
			return err
		}

		now := e.now()
		win, bucketing := analytics.WindowFor(p, now, e.cfg.AnalyticsGoals().WeekStart)
		vel := analytics.ComputeVelocity(archived, win, bucketing)

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, theme.Title.Render("Velocity: "+p.Title()))
		for _, b := range vel.Buckets {
			pct := 0.0
			if vel.PeakHours > 0 {
				pct = b.Hours / vel.PeakHours * 100
			}
			fmt.Fprintf(w, "%-10s %s %s (%d)\n", b.Label, theme.Bar(pct, barWidth, styles.Current.Primary), hours(b.Hours), b.Tasks)
		}
		fmt.Fprintf(w, "%d tasks, %s total, %.1f tasks and %.1fh per %s\n",
			vel.TotalTasks, hours(vel.TotalHours), vel.TasksPerBucket, vel.HoursPerBucket, bucketing)

		stats := analytics.OverallStats(archived, now)
		fmt.Fprintf(w, "All time: %d tasks, %s. Last 7 days: %d tasks, %.1fh per day\n",
			stats.TotalTasks, hours(stats.TotalHours), stats.RecentTasks, stats.HoursPerDay7d)
		return nil
	})
	cmd.Flags().StringVarP(&period, "period", "p", "", "week, month or quarter (default from config)")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var copyOut, asCSV bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print today's accomplishments",
		Long: `Print the tasks completed today, including ones already archived by a
reset. --copy puts the summary on the clipboard instead.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		live, archived, err := loadAll(cmd.Context(), e)
		if err != nil {
			return err
		}
		all := analytics.Combine(live, archived)
		now := e.now()

		if asCSV {
			return export.WriteCSV(cmd.OutOrStdout(), export.CompletedOn(all, now))
		}
		text, err := export.DailySummary(all, now)
		if err != nil {
			return err
		}
		if !copyOut {
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		}
		if err := export.CopyToClipboard(text); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Copied %d completed tasks to the clipboard\n", len(export.CompletedOn(all, now)))
		return nil
	})
	cmd.Flags().BoolVar(&copyOut, "copy", false, "copy to the clipboard")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write today's completed tasks as CSV")
	cmd.MarkFlagsMutuallyExclusive("copy", "csv")
	return cmd
}

func columnCounts(list []models.Task) string {
	groups := tasks.GroupByStatus(list)
	parts := make([]string, 0, len(groups))
	for _, s := range models.Statuses() {
		parts = append(parts, fmt.Sprintf("%s %d", s, len(groups[s])))
	}
	return strings.Join(parts, " · ")
}

func newWatchCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the board whenever it changes",
		Long: `Follow the live board and print a line for every change, including
changes made by other sprintdash processes. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = e.run(func(cmd *cobra.Command, e *env, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		snapshots := make(chan []models.Task, 16)
		unsub, err := e.tasks().LoadLiveTasks(ctx, func(list []models.Task) {
			select {
			case snapshots <- list:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return err
		}
		defer unsub()

		for {
			select {
			case <-ctx.Done():
				return nil
			case list := <-snapshots:
				fmt.Fprintf(w, "%s  %d tasks: %s\n", e.now().Format("15:04:05"), len(list), columnCounts(list))
			}
		}
	})
	return cmd
}

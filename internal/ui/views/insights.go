package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/ui/keys"
	"github.com/tgienger/sprintdash/internal/ui/styles"
)

var periods = []analytics.Period{analytics.PeriodWeek, analytics.PeriodMonth, analytics.PeriodQuarter}

// InsightsView shows the progress meter, the velocity chart and archive totals
type InsightsView struct {
	styles   *styles.Styles
	keys     keys.KeyMap
	goals    analytics.Goals
	period   analytics.Period
	now      func() time.Time
	live     []models.Task
	archived []models.ArchivedTask
	width    int
	height   int
}

// NewInsightsView creates the insights page
func NewInsightsView(goals analytics.Goals, period analytics.Period, now func() time.Time) *InsightsView {
	return &InsightsView{
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
		goals:  goals,
		period: period,
		now:    now,
	}
}

// Capturing is always false; the page has no inputs
func (v *InsightsView) Capturing() bool {
	return false
}

func (v *InsightsView) Init() tea.Cmd {
	return nil
}

func (v *InsightsView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
	case TasksLoadedMsg:
		v.live = msg.Tasks
	case ArchiveLoadedMsg:
		v.archived = msg.Archived
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Period):
			v.period = nextPeriod(v.period)
		case key.Matches(msg, v.keys.GoalUp):
			return v, v.adjustGoal(1)
		case key.Matches(msg, v.keys.GoalDown):
			return v, v.adjustGoal(-1)
		case key.Matches(msg, v.keys.GoalUpMore):
			return v, v.adjustGoal(5)
		case key.Matches(msg, v.keys.GoalDownMore):
			return v, v.adjustGoal(-5)
		}
	}
	return v, nil
}

func (v *InsightsView) adjustGoal(delta float64) tea.Cmd {
	v.goals.SprintHours = analytics.AdjustGoal(v.goals.SprintHours, delta)
	hours := v.goals.SprintHours
	return func() tea.Msg { return SprintGoalMsg{Hours: hours} }
}

// SprintGoal is the goal the sprint meter measures against
func (v *InsightsView) SprintGoal() float64 {
	return v.goals.SprintHours
}

func nextPeriod(p analytics.Period) analytics.Period {
	for i, candidate := range periods {
		if candidate == p {
			return periods[(i+1)%len(periods)]
		}
	}
	return analytics.PeriodWeek
}

// Progress computes the meter: today and sprint count archived work too,
// the board ratio only the live board
func (v *InsightsView) Progress() analytics.ProgressView {
	now := v.now()
	pv := analytics.ComputeProgress(analytics.Combine(v.live, v.archived), v.goals, now)
	pv.Board = analytics.Board(v.live)
	return pv
}

// Velocity computes the chart for the selected period
func (v *InsightsView) Velocity() analytics.Velocity {
	w, b := analytics.WindowFor(v.period, v.now(), v.goals.WeekStart)
	return analytics.ComputeVelocity(v.archived, w, b)
}

func (v *InsightsView) View() string {
	s := v.styles
	width := styles.ContentWidth(v.width)
	barWidth := clamp(width-40, 10, 60)

	pv := v.Progress()
	progress := []string{
		s.Title.Render("Progress"),
		v.meter("Today", pv.Today, barWidth),
		v.meter("Sprint", pv.Sprint, barWidth),
		fmt.Sprintf("%-8s %s %d/%d done (%.0f%%)",
			"Board",
			s.Bar(pv.Board.Percent, barWidth, styles.RatingColor(analytics.RatingFor(pv.Board.Percent))),
			pv.Board.Done, pv.Board.Total, pv.Board.Percent),
	}

	vel := v.Velocity()
	unit := "day"
	if vel.Bucketing == analytics.Week {
		unit = "week"
	}
	chart := []string{
		s.Title.Render("Velocity: " + v.period.Title()),
	}
	for _, b := range vel.Buckets {
		pct := 0.0
		if vel.PeakHours > 0 {
			pct = b.Hours / vel.PeakHours * 100
		}
		chart = append(chart, fmt.Sprintf("%-10s %s %sh (%d)",
			b.Label, s.Bar(pct, barWidth, styles.Current.Primary), formatHours(b.Hours), b.Tasks))
	}
	chart = append(chart, s.TitleMuted.Render(fmt.Sprintf("%d tasks · %sh · %.1f tasks and %.1fh per %s",
		vel.TotalTasks, formatHours(vel.TotalHours), vel.TasksPerBucket, vel.HoursPerBucket, unit)))

	dist := analytics.TimeDistribution(analytics.Combine(v.live, v.archived))
	sizes := []string{
		s.Title.Render("Task Time Distribution"),
		fmt.Sprintf("Quick (≤2h) %d · Medium (2-8h) %d · Large (>8h) %d", dist.Quick, dist.Medium, dist.Large),
		s.TitleMuted.Render(dist.Tip()),
	}

	stats := analytics.OverallStats(v.archived, v.now())
	overall := []string{
		s.Title.Render("All Time"),
		fmt.Sprintf("%d tasks archived, %sh total", stats.TotalTasks, formatHours(stats.TotalHours)),
		fmt.Sprintf("Last 7 days: %d tasks, %.1fh per day", stats.RecentTasks, stats.HoursPerDay7d),
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		strings.Join(progress, "\n"),
		"",
		strings.Join(chart, "\n"),
		"",
		strings.Join(sizes, "\n"),
		"",
		strings.Join(overall, "\n"),
		"",
		s.Help.Render(s.HelpKey.Render("p")+" change period · "+
			s.HelpKey.Render("+/-")+" sprint goal ±1h · "+
			s.HelpKey.Render("</>")+" ±5h"),
	)
}

func (v *InsightsView) meter(label string, p analytics.Progress, width int) string {
	color := styles.RatingColor(analytics.RatingFor(p.Percent))
	return fmt.Sprintf("%-8s %s %sh / %sh (%.0f%%)",
		label, v.styles.Bar(p.Percent, width, color), formatHours(p.Hours), formatHours(p.Goal), p.Percent)
}

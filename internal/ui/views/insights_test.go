package views

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/tgienger/sprintdash/internal/analytics"
	"github.com/tgienger/sprintdash/internal/models"
)

func doneTask(id string, hours float64, completed time.Time) models.Task {
	return models.Task{
		ID:            id,
		Title:         id,
		AssignedTo:    "Bob",
		TimeEstimate:  hours,
		Priority:      models.PriorityMedium,
		Status:        models.StatusDone,
		CompletedDate: &completed,
	}
}

func TestInsightsProgressCountsArchivedWork(t *testing.T) {
	v := NewInsightsView(analytics.DefaultGoals(), analytics.PeriodWeek, clock)

	live := []models.Task{
		doneTask("live-done", 2, now.Add(-time.Hour)),
		{ID: "open", Title: "open", Status: models.StatusTodo, TimeEstimate: 3},
	}
	archived := []models.ArchivedTask{
		{Task: doneTask("a1", 4, now.Add(-2*time.Hour)), TaskID: "a1", ArchivedDate: now.Add(-time.Minute)},
		{Task: doneTask("a2", 1, now.AddDate(0, 0, -10)), TaskID: "a2", ArchivedDate: now.AddDate(0, 0, -10)},
	}
	v.Update(TasksLoadedMsg{Tasks: live})
	v.Update(ArchiveLoadedMsg{Archived: archived})

	pv := v.Progress()
	assert.Equal(t, 2, pv.Today.Tasks)
	assert.InDelta(t, 6, pv.Today.Hours, 0.001)
	assert.InDelta(t, 75, pv.Today.Percent, 0.001)
	assert.Equal(t, analytics.BoardProgress{Done: 1, Total: 2, Percent: 50}, pv.Board)

	vel := v.Velocity()
	assert.Equal(t, analytics.Day, vel.Bucketing)
	assert.Equal(t, 1, vel.TotalTasks)
	assert.InDelta(t, 4, vel.PeakHours, 0.001)
}

func TestInsightsPeriodKeyCycles(t *testing.T) {
	v := NewInsightsView(analytics.DefaultGoals(), analytics.PeriodWeek, clock)

	v.Update(runes("p"))
	assert.Equal(t, analytics.PeriodMonth, v.period)
	v.Update(runes("p"))
	assert.Equal(t, analytics.PeriodQuarter, v.period)
	assert.Equal(t, analytics.Week, v.Velocity().Bucketing)
	v.Update(runes("p"))
	assert.Equal(t, analytics.PeriodWeek, v.period)
}

func TestInsightsViewRendersWithoutData(t *testing.T) {
	v := NewInsightsView(analytics.DefaultGoals(), analytics.PeriodWeek, clock)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	out := v.View()
	assert.Contains(t, out, "Today")
	assert.Contains(t, out, analytics.PeriodWeek.Title())
}

func TestInsightsGoalKeys(t *testing.T) {
	v := NewInsightsView(analytics.DefaultGoals(), analytics.PeriodWeek, clock)

	steps := []struct {
		key  string
		want float64
	}{
		{"+", 41},
		{">", 46},
		{"-", 45},
		{"<", 40},
	}
	for _, step := range steps {
		_, cmd := v.Update(runes(step.key))
		assert.NotNil(t, cmd)
		assert.Equal(t, SprintGoalMsg{Hours: step.want}, cmd())
		assert.Equal(t, step.want, v.SprintGoal())
	}

	goals := analytics.DefaultGoals()
	goals.SprintHours = 3
	v = NewInsightsView(goals, analytics.PeriodWeek, clock)
	v.Update(runes("<"))
	assert.Equal(t, analytics.MinSprintGoal, v.SprintGoal())
	assert.Equal(t, analytics.MinSprintGoal, v.Progress().Sprint.Goal)
}

func TestInsightsShowsTimeDistribution(t *testing.T) {
	v := NewInsightsView(analytics.DefaultGoals(), analytics.PeriodWeek, clock)
	v.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	v.Update(TasksLoadedMsg{Tasks: []models.Task{doneTask("small", 1, now), doneTask("big", 12, now)}})
	v.Update(ArchiveLoadedMsg{Archived: []models.ArchivedTask{
		{Task: doneTask("mid", 4, now.AddDate(0, 0, -1)), TaskID: "mid", ArchivedDate: now.AddDate(0, 0, -1)},
	}})

	out := v.View()
	assert.Contains(t, out, "Task Time Distribution")
	assert.Contains(t, out, "Quick (≤2h) 1 · Medium (2-8h) 1 · Large (>8h) 1")
	assert.Contains(t, out, "Break large tasks")
}

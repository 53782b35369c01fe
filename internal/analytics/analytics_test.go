package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/sprintdash/internal/models"
)

// Wednesday afternoon
var now = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func at(days int, hour int) *time.Time {
	t := time.Date(2025, 3, 12+days, hour, 0, 0, 0, time.UTC)
	return &t
}

func done(estimate float64, completed *time.Time) models.Task {
	return models.Task{Status: models.StatusDone, TimeEstimate: estimate, CompletedDate: completed}
}

func archivedAt(estimate float64, t time.Time) models.ArchivedTask {
	return models.ArchivedTask{Task: done(estimate, &t), ArchivedDate: t}
}

func sampleTasks() []models.Task {
	return []models.Task{
		done(3, at(0, 9)),   // today
		done(2, at(0, 0)),   // today, midnight
		done(4, at(-1, 17)), // yesterday
		done(5, at(-3, 12)), // Sunday, start of sprint
		done(6, at(-4, 12)), // Saturday, previous sprint
		{Status: models.StatusTodo, TimeEstimate: 7},
		{Status: models.StatusInProgress, TimeEstimate: 1},
	}
}

func TestAdjustGoal(t *testing.T) {
	assert.Equal(t, 45.0, AdjustGoal(40, 5))
	assert.Equal(t, 39.0, AdjustGoal(40, -1))
	assert.Equal(t, MinSprintGoal, AdjustGoal(3, -5))
	assert.Equal(t, MinSprintGoal, AdjustGoal(1, -1))
}

func TestTimeDistribution(t *testing.T) {
	list := []models.Task{
		done(1, at(0, 9)),
		done(2, at(0, 9)),
		done(2.5, at(0, 9)),
		done(8, at(0, 9)),
		done(12, at(0, 9)),
		{Status: models.StatusTodo, TimeEstimate: 20},
	}
	d := TimeDistribution(list)
	assert.Equal(t, Distribution{Quick: 2, Medium: 2, Large: 1}, d)
	assert.Equal(t, 5, d.Total())
	assert.Contains(t, d.Tip(), "consistent")

	assert.Contains(t, TimeDistribution(list[:2]).Tip(), "Complete more")
	assert.Contains(t, Distribution{Quick: 2, Large: 2}.Tip(), "Break large tasks")
}

func TestDailyProgress(t *testing.T) {
	p := DailyProgress(sampleTasks(), now, 8)
	assert.Equal(t, 2, p.Tasks)
	assert.Equal(t, 5.0, p.Hours)
	assert.InDelta(t, 62.5, p.Percent, 1e-9)

	empty := DailyProgress(sampleTasks(), now.AddDate(0, 0, 5), 8)
	assert.Zero(t, empty.Hours)
	assert.Zero(t, empty.Percent)
}

func TestPeriodProgressIsHalfOpen(t *testing.T) {
	start := *at(-1, 17)
	p := PeriodProgress(sampleTasks(), start, *at(0, 9), 40)
	assert.Equal(t, 2, p.Tasks, "includes start, excludes end")
	assert.Equal(t, 6.0, p.Hours)
}

func TestProgressIsCappedAt100(t *testing.T) {
	p := DailyProgress(sampleTasks(), now, 1)
	assert.Equal(t, 100.0, p.Percent)
	assert.Equal(t, 5.0, p.Hours, "hours are not capped")

	assert.Zero(t, PeriodProgress(sampleTasks(), now.AddDate(0, 0, -30), now, 0).Percent)
}

func TestDoneWithoutCompletedDateIsIgnored(t *testing.T) {
	p := DailyProgress([]models.Task{done(3, nil)}, now, 8)
	assert.Zero(t, p.Tasks)
}

func TestComputeProgress(t *testing.T) {
	view := ComputeProgress(sampleTasks(), DefaultGoals(), now)
	assert.Equal(t, 5.0, view.Today.Hours)
	assert.Equal(t, 14.0, view.Sprint.Hours, "sprint starts Sunday")
	assert.InDelta(t, 35.0, view.Sprint.Percent, 1e-9)
	assert.Equal(t, 5, view.Board.Done)
	assert.Equal(t, 7, view.Board.Total)
	assert.InDelta(t, 5.0/7*100, view.Board.Percent, 1e-9)

	monday := DefaultGoals()
	monday.WeekStart = time.Monday
	view = ComputeProgress(sampleTasks(), monday, now)
	assert.Equal(t, 9.0, view.Sprint.Hours)
}

func TestComputeIsIdempotent(t *testing.T) {
	tasks := sampleTasks()
	assert.Equal(t, ComputeProgress(tasks, DefaultGoals(), now), ComputeProgress(tasks, DefaultGoals(), now))

	archived := []models.ArchivedTask{archivedAt(2, *at(-1, 18)), archivedAt(3, *at(-2, 18))}
	w, b := WindowFor(PeriodWeek, now, time.Sunday)
	assert.Equal(t, ComputeVelocity(archived, w, b), ComputeVelocity(archived, w, b))
}

func TestStartOfWeek(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), StartOfWeek(now, time.Sunday))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), StartOfWeek(now, time.Monday))
	assert.Equal(t, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), StartOfWeek(now, time.Wednesday))
	assert.Equal(t, time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), StartOfWeek(now, time.Thursday))
}

func TestWindowFor(t *testing.T) {
	tests := []struct {
		period  Period
		buckets int
		width   Bucketing
		start   time.Time
	}{
		{PeriodWeek, 7, Day, time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC)},
		{PeriodMonth, 30, Day, time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC)},
		{PeriodQuarter, 12, Week, time.Date(2024, 12, 22, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			w, b := WindowFor(tt.period, now, time.Sunday)
			assert.Equal(t, tt.width, b)
			assert.Equal(t, tt.start, w.Start)
			assert.Len(t, VelocitySeries(nil, w, b), tt.buckets)
		})
	}
}

func TestVelocitySeriesZeroFills(t *testing.T) {
	for _, p := range []Period{PeriodWeek, PeriodMonth, PeriodQuarter} {
		w, b := WindowFor(p, now, time.Sunday)
		series := VelocitySeries(nil, w, b)
		require.NotEmpty(t, series)
		for _, bucket := range series {
			assert.Zero(t, bucket.Tasks)
			assert.Zero(t, bucket.Hours)
			assert.NotEmpty(t, bucket.Label)
		}
	}

	// Activity entirely outside the window still yields a full empty series
	w, b := WindowFor(PeriodWeek, now, time.Sunday)
	series := VelocitySeries([]models.ArchivedTask{archivedAt(5, now.AddDate(0, -2, 0))}, w, b)
	assert.Len(t, series, 7)
	assert.Zero(t, ComputeVelocity(nil, w, b).TotalTasks)
}

func TestVelocitySeriesBuckets(t *testing.T) {
	archived := []models.ArchivedTask{
		archivedAt(2, *at(0, 10)),
		archivedAt(1, *at(0, 23)),
		archivedAt(4, *at(-2, 8)),
		archivedAt(8, *at(-6, 0)),  // first bucket boundary
		archivedAt(9, *at(-7, 23)), // just before the window
	}

	w, b := WindowFor(PeriodWeek, now, time.Sunday)
	v := ComputeVelocity(archived, w, b)
	require.Len(t, v.Buckets, 7)

	assert.Equal(t, "Thu Mar 6", v.Buckets[0].Label)
	assert.Equal(t, 1, v.Buckets[0].Tasks)
	assert.Equal(t, 8.0, v.Buckets[0].Hours)
	assert.Equal(t, 1, v.Buckets[4].Tasks)
	assert.Equal(t, 2, v.Buckets[6].Tasks)
	assert.Equal(t, 3.0, v.Buckets[6].Hours)

	assert.Equal(t, 4, v.TotalTasks)
	assert.Equal(t, 15.0, v.TotalHours)
	assert.InDelta(t, 4.0/7, v.TasksPerBucket, 1e-9)
	assert.InDelta(t, 15.0/7, v.HoursPerBucket, 1e-9)
	assert.Equal(t, 8.0, v.PeakHours)

	w, b = WindowFor(PeriodQuarter, now, time.Sunday)
	v = ComputeVelocity(archived, w, b)
	require.Len(t, v.Buckets, 12)
	assert.Equal(t, "Week 12", v.Buckets[11].Label)
	assert.Equal(t, 3, v.Buckets[11].Tasks, "Sunday to Wednesday of this week")
	assert.Equal(t, 2, v.Buckets[10].Tasks)
}

func TestVelocitySeriesAlignsWindowStart(t *testing.T) {
	noon := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	archived := []models.ArchivedTask{
		archivedAt(3, time.Date(2026, 10, 2, 8, 0, 0, 0, time.UTC)),
		archivedAt(1, time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)),
		archivedAt(7, time.Date(2026, 10, 4, 0, 0, 0, 0, time.UTC)),
	}

	v := ComputeVelocity(archived, Window{Start: noon, End: noon.AddDate(0, 0, 2)}, Day)
	require.Len(t, v.Buckets, 3)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), v.Buckets[0].Start)
	assert.Equal(t, "Thu Oct 1", v.Buckets[0].Label)
	assert.Equal(t, 1, v.Buckets[0].Tasks)
	assert.Equal(t, "Fri Oct 2", v.Buckets[1].Label)
	assert.Equal(t, 1, v.Buckets[1].Tasks)
	assert.Equal(t, 3.0, v.Buckets[1].Hours)
	assert.Zero(t, v.Buckets[2].Tasks)
	assert.Equal(t, 2, v.TotalTasks)

	// Thursday noon aligns back to Monday for Monday-start weeks
	w := Window{Start: noon, End: noon.AddDate(0, 0, 14), WeekStart: time.Monday}
	v = ComputeVelocity(archived, w, Week)
	require.Len(t, v.Buckets, 3)
	assert.Equal(t, time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC), v.Buckets[0].Start)
	assert.Equal(t, 3, v.Buckets[0].Tasks)
	assert.Equal(t, 11.0, v.Buckets[0].Hours)
}

func TestCombineKeepsLiveIDs(t *testing.T) {
	live := []models.Task{{ID: "live", Status: models.StatusTodo}}
	a := archivedAt(3, now)
	a.ID = "archive-record"
	a.TaskID = "original"

	got := Combine(live, []models.ArchivedTask{a})
	require.Len(t, got, 2)
	assert.Equal(t, "live", got[0].ID)
	assert.Equal(t, "original", got[1].ID)

	assert.Equal(t, 3.0, DailyProgress(got, now, 8).Hours)
}

func TestOverallStats(t *testing.T) {
	archived := []models.ArchivedTask{
		archivedAt(7, *at(-1, 12)),
		archivedAt(7, *at(-6, 12)),
		archivedAt(3, *at(-20, 12)),
	}
	s := OverallStats(archived, now)
	assert.Equal(t, 3, s.TotalTasks)
	assert.Equal(t, 17.0, s.TotalHours)
	assert.Equal(t, 2, s.RecentTasks)
	assert.Equal(t, 2.0, s.HoursPerDay7d)
}

func TestParsePeriodAndRating(t *testing.T) {
	p, err := ParsePeriod(" Quarter ")
	require.NoError(t, err)
	assert.Equal(t, PeriodQuarter, p)
	assert.Equal(t, "Last 12 Weeks", p.Title())

	_, err = ParsePeriod("year")
	assert.Error(t, err)

	assert.Equal(t, RatingGood, RatingFor(80))
	assert.Equal(t, RatingFair, RatingFor(60))
	assert.Equal(t, RatingLow, RatingFor(59.9))
}

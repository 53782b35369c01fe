// Package analytics derives progress and velocity figures from task sets.
// Everything here is a pure function of its inputs; nothing is stored.
package analytics

import (
	"math"
	"time"

	"github.com/tgienger/sprintdash/internal/models"
)

// Goals are the hour targets progress is measured against
type Goals struct {
	DailyHours  float64
	SprintHours float64
	WeekStart   time.Weekday
}

// DefaultGoals is an 8 hour day and a 40 hour sprint starting Sunday
func DefaultGoals() Goals {
	return Goals{DailyHours: 8, SprintHours: 40, WeekStart: time.Sunday}
}

// MinSprintGoal is the smallest sprint goal, in hours
const MinSprintGoal = 1.0

// AdjustGoal moves a sprint goal by delta hours, never below MinSprintGoal
func AdjustGoal(goal, delta float64) float64 {
	return math.Max(goal+delta, MinSprintGoal)
}

// Progress is completed hours measured against a goal
type Progress struct {
	Tasks   int
	Hours   float64
	Goal    float64
	Percent float64
}

// BoardProgress is the share of board tasks that are done
type BoardProgress struct {
	Done    int
	Total   int
	Percent float64
}

// ProgressView is everything the progress meter shows
type ProgressView struct {
	Today  Progress
	Sprint Progress
	Board  BoardProgress
}

// Rating buckets a percentage for display
type Rating int

const (
	RatingLow Rating = iota
	RatingFair
	RatingGood
)

// RatingFor returns good from 80%, fair from 60%, low otherwise
func RatingFor(percent float64) Rating {
	switch {
	case percent >= 80:
		return RatingGood
	case percent >= 60:
		return RatingFair
	}
	return RatingLow
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the most recent weekStart on or before t
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

func percent(hours, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return math.Min(hours/goal*100, 100)
}

// PeriodProgress sums the estimates of done tasks completed in [start, end)
// and measures them against goalHours, capped at 100%
func PeriodProgress(tasks []models.Task, start, end time.Time, goalHours float64) Progress {
	p := Progress{Goal: goalHours}
	for _, t := range tasks {
		if t.Status != models.StatusDone || t.CompletedDate == nil {
			continue
		}
		c := *t.CompletedDate
		if c.Before(start) || !c.Before(end) {
			continue
		}
		p.Tasks++
		p.Hours += t.TimeEstimate
	}
	p.Percent = percent(p.Hours, goalHours)
	return p
}

// DailyProgress is PeriodProgress over the calendar day containing day
func DailyProgress(tasks []models.Task, day time.Time, goalHours float64) Progress {
	start := StartOfDay(day)
	return PeriodProgress(tasks, start, start.AddDate(0, 0, 1), goalHours)
}

// Board reports how many of tasks are done
func Board(tasks []models.Task) BoardProgress {
	b := BoardProgress{Total: len(tasks)}
	for _, t := range tasks {
		if t.IsDone() {
			b.Done++
		}
	}
	if b.Total > 0 {
		b.Percent = float64(b.Done) / float64(b.Total) * 100
	}
	return b
}

// ComputeProgress builds the progress meter for now. The sprint runs from
// the start of the current week to the end of today.
func ComputeProgress(tasks []models.Task, goals Goals, now time.Time) ProgressView {
	tomorrow := StartOfDay(now).AddDate(0, 0, 1)
	return ProgressView{
		Today:  DailyProgress(tasks, now, goals.DailyHours),
		Sprint: PeriodProgress(tasks, StartOfWeek(now, goals.WeekStart), tomorrow, goals.SprintHours),
		Board:  Board(tasks),
	}
}

// Combine merges the live board with archived tasks so progress counts work
// already cleared by a daily reset. Archived copies keep their live task id.
func Combine(live []models.Task, archived []models.ArchivedTask) []models.Task {
	out := make([]models.Task, 0, len(live)+len(archived))
	out = append(out, live...)
	for _, a := range archived {
		t := a.Task
		t.ID = a.TaskID
		out = append(out, t)
	}
	return out
}

// Distribution counts completed tasks by estimate size
type Distribution struct {
	Quick  int // up to 2h
	Medium int // over 2h, up to 8h
	Large  int // over 8h
}

// Total is the number of completed tasks counted
func (d Distribution) Total() int {
	return d.Quick + d.Medium + d.Large
}

// TimeDistribution sorts the done tasks of list into size classes
func TimeDistribution(list []models.Task) Distribution {
	var d Distribution
	for _, t := range list {
		if t.Status != models.StatusDone {
			continue
		}
		switch {
		case t.TimeEstimate <= 2:
			d.Quick++
		case t.TimeEstimate <= 8:
			d.Medium++
		default:
			d.Large++
		}
	}
	return d
}

// Tip is a one-line estimation hint for the distribution
func (d Distribution) Tip() string {
	switch {
	case float64(d.Large) > float64(d.Total())*0.3:
		return "Break large tasks into smaller chunks for better estimates."
	case d.Total() < 3:
		return "Complete more tasks to see your estimation patterns."
	}
	return "Your estimates look consistent."
}

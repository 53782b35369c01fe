package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tgienger/sprintdash/internal/models"
)

// Bucketing is the width of a velocity bucket
type Bucketing int

const (
	Day Bucketing = iota
	Week
)

func (b Bucketing) String() string {
	if b == Week {
		return "week"
	}
	return "day"
}

// align truncates t to the start of its bucket
func (b Bucketing) align(t time.Time, weekStart time.Weekday) time.Time {
	if b == Week {
		return StartOfWeek(t, weekStart)
	}
	return StartOfDay(t)
}

func (b Bucketing) next(t time.Time) time.Time {
	if b == Week {
		return t.AddDate(0, 0, 7)
	}
	return t.AddDate(0, 0, 1)
}

// Window is the range a velocity series spans. Start is truncated to its
// day, or to its week starting on WeekStart for weekly buckets; End is
// exclusive.
type Window struct {
	Start     time.Time
	End       time.Time
	WeekStart time.Weekday
}

// Period names a preset velocity window
type Period string

const (
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
)

// ParsePeriod accepts week, month or quarter
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PeriodWeek, PeriodMonth, PeriodQuarter:
		return p, nil
	}
	return "", fmt.Errorf("unknown velocity period %q (want week, month or quarter)", s)
}

// Title is the chart heading for p
func (p Period) Title() string {
	switch p {
	case PeriodMonth:
		return "Last 30 Days"
	case PeriodQuarter:
		return "Last 12 Weeks"
	}
	return "Last 7 Days"
}

// WindowFor returns the window and bucketing for a period ending today:
// week is 7 daily buckets, month 30 daily buckets and quarter 12 weekly
// buckets aligned to weekStart.
func WindowFor(p Period, now time.Time, weekStart time.Weekday) (Window, Bucketing) {
	tomorrow := StartOfDay(now).AddDate(0, 0, 1)
	switch p {
	case PeriodMonth:
		return Window{Start: tomorrow.AddDate(0, 0, -30), End: tomorrow, WeekStart: weekStart}, Day
	case PeriodQuarter:
		thisWeek := StartOfWeek(now, weekStart)
		return Window{Start: thisWeek.AddDate(0, 0, -7*11), End: thisWeek.AddDate(0, 0, 7), WeekStart: weekStart}, Week
	}
	return Window{Start: tomorrow.AddDate(0, 0, -7), End: tomorrow, WeekStart: weekStart}, Day
}

// Bucket is one point of a velocity series
type Bucket struct {
	Label string
	Start time.Time
	Tasks int
	Hours float64
}

// VelocitySeries groups archived tasks by archivedDate truncated to the
// bucket width. Every bucket from the aligned window start up to End is
// present, empty ones with zero counts. Tasks outside the window are ignored.
func VelocitySeries(archived []models.ArchivedTask, w Window, b Bucketing) []Bucket {
	loc := w.Start.Location()
	var buckets []Bucket
	for i, start := 0, b.align(w.Start, w.WeekStart); start.Before(w.End); i, start = i+1, b.next(start) {
		buckets = append(buckets, Bucket{Label: label(b, start, i), Start: start})
	}
	if len(buckets) == 0 {
		return buckets
	}

	for _, a := range archived {
		key := b.align(a.ArchivedDate.In(loc), w.WeekStart)
		i := sort.Search(len(buckets), func(i int) bool {
			return !buckets[i].Start.Before(key)
		})
		if i == len(buckets) || !buckets[i].Start.Equal(key) {
			continue
		}
		buckets[i].Tasks++
		buckets[i].Hours += a.TimeEstimate
	}
	return buckets
}

func label(b Bucketing, start time.Time, i int) string {
	if b == Week {
		return fmt.Sprintf("Week %d", i+1)
	}
	return start.Format("Mon Jan 2")
}

// Velocity is a velocity series with its totals
type Velocity struct {
	Bucketing      Bucketing
	Buckets        []Bucket
	TotalTasks     int
	TotalHours     float64
	TasksPerBucket float64
	HoursPerBucket float64
	PeakHours      float64
}

// ComputeVelocity builds the velocity chart for archived over w
func ComputeVelocity(archived []models.ArchivedTask, w Window, b Bucketing) Velocity {
	v := Velocity{Bucketing: b, Buckets: VelocitySeries(archived, w, b)}
	for _, bucket := range v.Buckets {
		v.TotalTasks += bucket.Tasks
		v.TotalHours += bucket.Hours
		if bucket.Hours > v.PeakHours {
			v.PeakHours = bucket.Hours
		}
	}
	if n := len(v.Buckets); n > 0 {
		v.TasksPerBucket = float64(v.TotalTasks) / float64(n)
		v.HoursPerBucket = v.TotalHours / float64(n)
	}
	return v
}

// Stats are all-time archive figures plus the trailing week average
type Stats struct {
	TotalTasks    int
	TotalHours    float64
	RecentTasks   int
	HoursPerDay7d float64
}

// OverallStats summarizes the archive. Recent covers the 7 days before now.
func OverallStats(archived []models.ArchivedTask, now time.Time) Stats {
	var s Stats
	weekAgo := now.AddDate(0, 0, -7)
	var recentHours float64
	for _, a := range archived {
		s.TotalTasks++
		s.TotalHours += a.TimeEstimate
		if !a.ArchivedDate.Before(weekAgo) && !a.ArchivedDate.After(now) {
			s.RecentTasks++
			recentHours += a.TimeEstimate
		}
	}
	s.HoursPerDay7d = recentHours / 7
	return s
}

package tasks

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/tgienger/sprintdash/internal/models"
)

// Filter narrows the board. Zero fields match everything.
type Filter struct {
	Assignee string
	Priority models.Priority
	Status   models.Status
	Search   string
}

// IsZero reports whether the filter matches every task
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// searchSource adapts tasks for fuzzy matching on title and description
type searchSource []models.Task

func (s searchSource) String(i int) string {
	return s[i].Title + " " + s[i].Description
}

func (s searchSource) Len() int {
	return len(s)
}

// Apply returns the tasks that match f. Without a search term the input
// order is kept; with one, results are ranked by match score.
func (f Filter) Apply(tasks []models.Task) []models.Task {
	var kept []models.Task
	for _, t := range tasks {
		if f.Assignee != "" && !strings.EqualFold(t.AssignedTo, f.Assignee) {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		kept = append(kept, t)
	}

	search := strings.TrimSpace(f.Search)
	if search == "" {
		return kept
	}

	matches := fuzzy.FindFrom(search, searchSource(kept))
	out := make([]models.Task, 0, len(matches))
	for _, match := range matches {
		out = append(out, kept[match.Index])
	}
	return out
}

// GroupByStatus splits tasks into the four board columns, keeping order
// within each column
func GroupByStatus(tasks []models.Task) map[models.Status][]models.Task {
	groups := make(map[models.Status][]models.Task, 4)
	for _, s := range models.Statuses() {
		groups[s] = nil
	}
	for _, t := range tasks {
		groups[t.Status] = append(groups[t.Status], t)
	}
	return groups
}

// Assignees lists the distinct assignees, sorted
func Assignees(tasks []models.Task) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range tasks {
		if _, ok := seen[t.AssignedTo]; ok || t.AssignedTo == "" {
			continue
		}
		seen[t.AssignedTo] = struct{}{}
		out = append(out, t.AssignedTo)
	}
	sort.Strings(out)
	return out
}

// Overdue returns the tasks past their due date that are not done
func Overdue(tasks []models.Task, now time.Time) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	return out
}

// SortByPriority orders tasks high to low, keeping input order among equals
func SortByPriority(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
	})
}

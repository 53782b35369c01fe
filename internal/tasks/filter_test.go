package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/sprintdash/internal/models"
)

func board() []models.Task {
	due := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	return []models.Task{
		{ID: "1", Title: "Fix login bug", AssignedTo: "Bob", Priority: models.PriorityHigh, Status: models.StatusTodo, DueDate: &due},
		{ID: "2", Title: "Write release notes", AssignedTo: "alice", Priority: models.PriorityLow, Status: models.StatusDone},
		{ID: "3", Title: "Review PR", Description: "login flow", AssignedTo: "bob", Priority: models.PriorityMedium, Status: models.StatusBlocked},
		{ID: "4", Title: "Deploy", AssignedTo: "Carol", Priority: models.PriorityHigh, Status: models.StatusInProgress},
	}
}

func ids(tasks []models.Task) []string {
	var out []string
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero", Filter{}, []string{"1", "2", "3", "4"}},
		{"assignee ignores case", Filter{Assignee: "BOB"}, []string{"1", "3"}},
		{"priority", Filter{Priority: models.PriorityHigh}, []string{"1", "4"}},
		{"status", Filter{Status: models.StatusDone}, []string{"2"}},
		{"combined", Filter{Assignee: "bob", Priority: models.PriorityHigh}, []string{"1"}},
		{"no match", Filter{Assignee: "dave"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(board())))
		})
	}
}

func TestFilterSearchIsFuzzy(t *testing.T) {
	got := Filter{Search: "login"}.Apply(board())
	assert.ElementsMatch(t, []string{"1", "3"}, ids(got))

	got = Filter{Search: "rlsnotes"}.Apply(board())
	assert.Equal(t, []string{"2"}, ids(got))

	assert.Empty(t, Filter{Search: "zzzz"}.Apply(board()))
}

func TestGroupByStatus(t *testing.T) {
	groups := GroupByStatus(board())
	require.Len(t, groups, 4)
	assert.Equal(t, []string{"1"}, ids(groups[models.StatusTodo]))
	assert.Equal(t, []string{"4"}, ids(groups[models.StatusInProgress]))
	assert.Equal(t, []string{"3"}, ids(groups[models.StatusBlocked]))
	assert.Equal(t, []string{"2"}, ids(groups[models.StatusDone]))

	empty := GroupByStatus(nil)
	assert.Len(t, empty, 4)
}

func TestAssigneesAndOverdue(t *testing.T) {
	assert.Equal(t, []string{"Bob", "Carol", "alice", "bob"}, Assignees(board()))

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"1"}, ids(Overdue(board(), now)))

	onDueDay := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	assert.Empty(t, Overdue(board(), onDueDay))
}

func TestSortByPriority(t *testing.T) {
	tasks := board()
	SortByPriority(tasks)
	assert.Equal(t, []string{"1", "4", "3", "2"}, ids(tasks))
}

func TestParseDueDate(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC) // Monday

	got, err := ParseDueDate("2025-04-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDueDate("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "2025-03-11", FormatDueDate(&got))

	_, err = ParseDueDate("", now)
	assert.Error(t, err)
	_, err = ParseDueDate("banana", now)
	assert.Error(t, err)

	assert.Empty(t, FormatDueDate(nil))
}

package views

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
)

var now = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func newStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "ui.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m tea.Model, s string) {
	for _, r := range s {
		m.Update(runes(string(r)))
	}
}

func press(t *testing.T, m tea.Model, msg tea.KeyMsg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

// run executes cmd and requires a successful StatusMsg
func run(t *testing.T, cmd tea.Cmd) StatusMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(StatusMsg)
	require.True(t, ok, "expected a StatusMsg")
	require.NoError(t, msg.Err)
	return msg
}

type boardFixture struct {
	manager *tasks.Manager
	board   *BoardView
}

func newBoard(t *testing.T, titles ...string) boardFixture {
	t.Helper()
	ctx := context.Background()
	m := tasks.NewManager(newStore(t), "alice", tasks.WithClock(clock))
	for _, title := range titles {
		_, err := m.AddTask(ctx, tasks.NewTask{Title: title, AssignedTo: "Bob", TimeEstimate: 2})
		require.NoError(t, err)
	}
	f := boardFixture{manager: m, board: NewBoardView(ctx, m, clock)}
	f.board.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	f.reload(t)
	return f
}

func (f boardFixture) reload(t *testing.T) {
	t.Helper()
	list, err := f.manager.ListTasks(context.Background())
	require.NoError(t, err)
	f.board.Update(TasksLoadedMsg{Tasks: list})
}

func (f boardFixture) task(t *testing.T, title string) models.Task {
	t.Helper()
	list, err := f.manager.ListTasks(context.Background())
	require.NoError(t, err)
	for _, task := range list {
		if task.Title == title {
			return task
		}
	}
	t.Fatalf("task %q not found", title)
	return models.Task{}
}

func TestBoardMovesSelectedTaskRight(t *testing.T) {
	f := newBoard(t, "Write docs")

	msg := run(t, press(t, f.board, runes("L")))
	assert.Contains(t, msg.Text, "In Progress")
	assert.Equal(t, models.StatusInProgress, f.task(t, "Write docs").Status)
}

func TestBoardMoveIntoBlockedAsksForReason(t *testing.T) {
	f := newBoard(t, "Ship release")
	task := f.task(t, "Ship release")
	require.NoError(t, f.manager.ChangeStatus(context.Background(), task.ID, models.StatusInProgress, nil))
	f.reload(t)

	press(t, f.board, runes("l"))
	assert.Nil(t, press(t, f.board, runes("L")))
	require.True(t, f.board.Capturing())

	typeText(f.board, "waiting on API")
	run(t, press(t, f.board, tea.KeyMsg{Type: tea.KeyEnter}))
	assert.False(t, f.board.Capturing())

	got := f.task(t, "Ship release")
	assert.Equal(t, models.StatusBlocked, got.Status)
	assert.Equal(t, "waiting on API", got.BlockReason)
}

func TestBoardBulkMovesMarkedTasks(t *testing.T) {
	f := newBoard(t, "one", "two", "three")

	press(t, f.board, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	press(t, f.board, runes("j"))
	press(t, f.board, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	msg := run(t, press(t, f.board, runes("L")))
	assert.Contains(t, msg.Text, "2 tasks")

	moved := 0
	for _, title := range []string{"one", "two", "three"} {
		if f.task(t, title).Status == models.StatusInProgress {
			moved++
		}
	}
	assert.Equal(t, 2, moved)
}

func TestBoardFormRejectsEmptyTask(t *testing.T) {
	f := newBoard(t)

	press(t, f.board, runes("n"))
	require.True(t, f.board.Capturing())
	assert.Nil(t, press(t, f.board, tea.KeyMsg{Type: tea.KeyCtrlS}))
	assert.Contains(t, f.board.form.err, "title")
	assert.True(t, f.board.Capturing())
}

func TestBoardFormAddsTask(t *testing.T) {
	f := newBoard(t)

	press(t, f.board, runes("n"))
	typeText(f.board, "Review PR")
	press(t, f.board, tea.KeyMsg{Type: tea.KeyTab})
	press(t, f.board, tea.KeyMsg{Type: tea.KeyTab})
	typeText(f.board, "Carol")
	press(t, f.board, tea.KeyMsg{Type: tea.KeyTab})
	typeText(f.board, "1.5")
	press(t, f.board, tea.KeyMsg{Type: tea.KeyTab})
	press(t, f.board, runes("l"))
	press(t, f.board, tea.KeyMsg{Type: tea.KeyTab})
	typeText(f.board, "tomorrow")

	run(t, press(t, f.board, tea.KeyMsg{Type: tea.KeyCtrlS}))

	got := f.task(t, "Review PR")
	assert.Equal(t, "Carol", got.AssignedTo)
	assert.Equal(t, 1.5, got.TimeEstimate)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, models.StatusTodo, got.Status)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2025-03-13", got.DueDate.UTC().Format("2006-01-02"))
}

func TestBoardEditKeepsStatus(t *testing.T) {
	f := newBoard(t, "Draft")
	task := f.task(t, "Draft")
	require.NoError(t, f.manager.ChangeStatus(context.Background(), task.ID, models.StatusDone, nil))
	f.reload(t)

	for range 3 {
		press(t, f.board, runes("l"))
	}
	press(t, f.board, runes("e"))
	assert.Equal(t, task.ID, f.board.form.editingID)
	typeText(f.board, " v2")
	run(t, press(t, f.board, tea.KeyMsg{Type: tea.KeyCtrlS}))

	got := f.task(t, "Draft v2")
	assert.Equal(t, models.StatusDone, got.Status)
	assert.NotNil(t, got.CompletedDate)
}

func TestBoardSearchNarrowsColumns(t *testing.T) {
	f := newBoard(t, "Write docs", "Fix login bug")
	require.Len(t, f.board.columns[models.StatusTodo], 2)

	press(t, f.board, runes("/"))
	typeText(f.board, "login")
	require.Len(t, f.board.columns[models.StatusTodo], 1)
	assert.Equal(t, "Fix login bug", f.board.columns[models.StatusTodo][0].Title)

	press(t, f.board, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, f.board.columns[models.StatusTodo], 2)
	assert.False(t, f.board.Capturing())
}

func TestBoardFilterCyclesAssignee(t *testing.T) {
	f := newBoard(t, "a")
	_, err := f.manager.AddTask(context.Background(), tasks.NewTask{Title: "b", AssignedTo: "Zed", TimeEstimate: 1})
	require.NoError(t, err)
	f.reload(t)

	press(t, f.board, runes("f"))
	press(t, f.board, runes("l"))
	assert.Equal(t, "Bob", f.board.filter.Assignee)
	require.Len(t, f.board.columns[models.StatusTodo], 1)

	press(t, f.board, tea.KeyMsg{Type: tea.KeyEnter})
	press(t, f.board, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, f.board.filter.IsZero())
	assert.Len(t, f.board.columns[models.StatusTodo], 2)
}

func TestBoardDeleteNeedsConfirmation(t *testing.T) {
	f := newBoard(t, "Obsolete")

	assert.Nil(t, press(t, f.board, runes("d")))
	assert.Nil(t, press(t, f.board, runes("n")))
	f.task(t, "Obsolete")

	press(t, f.board, runes("d"))
	run(t, press(t, f.board, runes("y")))

	list, err := f.manager.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBoardViewRendersColumns(t *testing.T) {
	f := newBoard(t, "Visible task")

	out := f.board.View()
	for _, s := range models.Statuses() {
		assert.Contains(t, out, s.Label())
	}
	assert.Contains(t, out, "Visible task")
}

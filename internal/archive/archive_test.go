package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
)

var resetTime = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return resetTime }

type fixture struct {
	store   *db.DB
	manager *tasks.Manager
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &fixture{
		store:   store,
		manager: tasks.NewManager(store, "alice"),
		engine:  NewEngine(store, WithClock(fixedClock)),
	}
}

func (f *fixture) add(t *testing.T, title string, estimate float64, status models.Status) string {
	t.Helper()
	ctx := context.Background()
	id, err := f.manager.AddTask(ctx, tasks.NewTask{Title: title, AssignedTo: "Bob", TimeEstimate: estimate})
	require.NoError(t, err)
	if status != models.StatusTodo {
		require.NoError(t, f.manager.ChangeStatus(ctx, id, status, nil))
	}
	return id
}

func (f *fixture) live(t *testing.T) []models.Task {
	t.Helper()
	live, err := f.manager.ListTasks(context.Background())
	require.NoError(t, err)
	return live
}

func (f *fixture) archived(t *testing.T) []models.ArchivedTask {
	t.Helper()
	archived, err := f.engine.ListArchived(context.Background(), "alice", time.Time{})
	require.NoError(t, err)
	return archived
}

func TestDailyResetArchivesDoneTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	done := f.add(t, "ship it", 3, models.StatusDone)
	todo := f.add(t, "next up", 2, models.StatusTodo)

	res, err := f.engine.PerformDailyReset(ctx, "alice", f.live(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ArchivedCount)
	assert.Equal(t, 3.0, res.ArchivedHours)
	assert.Equal(t, []string{done}, res.TaskIDs)
	assert.True(t, res.ArchivedDate.Equal(resetTime))

	live := f.live(t)
	require.Len(t, live, 1)
	assert.Equal(t, todo, live[0].ID)
	assert.Equal(t, models.StatusTodo, live[0].Status)

	archived := f.archived(t)
	require.Len(t, archived, 1)
	rec := archived[0]
	assert.Equal(t, done, rec.TaskID)
	assert.NotEqual(t, done, rec.ID, "archive records get their own id")
	assert.Equal(t, "ship it", rec.Title)
	assert.Equal(t, 3.0, rec.TimeEstimate)
	assert.Equal(t, models.StatusDone, rec.Status)
	assert.NotNil(t, rec.CompletedDate)
	assert.True(t, rec.ArchivedDate.Equal(resetTime))
}

func TestDailyResetLeavesOtherTasksUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.add(t, "a", 1, models.StatusDone)
	f.add(t, "b", 2, models.StatusInProgress)
	f.add(t, "c", 3, models.StatusBlocked)
	f.add(t, "d", 4, models.StatusDone)
	f.add(t, "e", 5, models.StatusTodo)

	before := f.live(t)
	var notDone []models.Task
	for _, task := range before {
		if !task.IsDone() {
			notDone = append(notDone, task)
		}
	}

	res, err := f.engine.PerformDailyReset(ctx, "alice", before)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ArchivedCount)
	assert.Equal(t, 5.0, res.ArchivedHours)

	assert.Equal(t, notDone, f.live(t))

	archived := f.archived(t)
	require.Len(t, archived, 2)
	for _, rec := range archived {
		assert.Equal(t, models.StatusDone, rec.Status)
		assert.True(t, rec.ArchivedDate.Equal(archived[0].ArchivedDate), "one cohort per reset")
	}
}

func TestDailyResetIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.add(t, "real", 2, models.StatusDone)
	f.add(t, "still todo", 1, models.StatusTodo)
	before := f.live(t)

	// A done task that no longer exists in the store makes one delete fail
	now := resetTime
	snapshot := append(tasks.Clone(before), models.Task{
		ID: "vanished", OwnerID: "alice", Title: "ghost", Status: models.StatusDone,
		TimeEstimate: 1, CompletedDate: &now,
	})

	res, err := f.engine.PerformDailyReset(ctx, "alice", snapshot)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArchivalFailed)
	assert.ErrorIs(t, err, db.ErrBatchFailed)
	assert.Zero(t, res.ArchivedCount)

	assert.Equal(t, before, f.live(t), "live collection must be unchanged")
	assert.Empty(t, f.archived(t), "no archive record may be created")

	// Retrying from the current snapshot succeeds
	res, err = f.engine.PerformDailyReset(ctx, "alice", f.live(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ArchivedCount)
	assert.Len(t, f.archived(t), 1)
}

func TestDailyResetRejectsTaskUndoneAfterSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id := f.add(t, "flip-flop", 2, models.StatusDone)
	snapshot := f.live(t)

	require.NoError(t, f.manager.ChangeStatus(ctx, id, models.StatusTodo, nil))

	_, err := f.engine.PerformDailyReset(ctx, "alice", snapshot)
	require.ErrorIs(t, err, ErrArchivalFailed)
	assert.ErrorIs(t, err, db.ErrPreconditionFailed)

	live := f.live(t)
	require.Len(t, live, 1)
	assert.Equal(t, models.StatusTodo, live[0].Status)
	assert.Empty(t, f.archived(t))
}

func TestDailyResetSkipsOtherOwners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bob := tasks.NewManager(f.store, "bob")
	bobID, err := bob.AddTask(ctx, tasks.NewTask{Title: "bob's", AssignedTo: "Bob", TimeEstimate: 1})
	require.NoError(t, err)
	require.NoError(t, bob.ChangeStatus(ctx, bobID, models.StatusDone, nil))
	bobLive, err := bob.ListTasks(ctx)
	require.NoError(t, err)

	mine := f.add(t, "mine", 1, models.StatusDone)

	res, err := f.engine.PerformDailyReset(ctx, "alice", append(f.live(t), bobLive...))
	require.NoError(t, err)
	assert.Equal(t, []string{mine}, res.TaskIDs)

	_, err = bob.GetTask(ctx, bobID)
	assert.NoError(t, err)
}

// countingStore records every call made to it
type countingStore struct {
	calls int
}

func (s *countingStore) NewID() string { s.calls++; return "id" }

func (s *countingStore) NewBatch() db.WriteBatch { s.calls++; return nil }

func (s *countingStore) Query(context.Context, string, db.Query) ([]db.Document, error) {
	s.calls++
	return nil, errors.New("unexpected query")
}

func TestDailyResetWithNothingDoneIsNoop(t *testing.T) {
	store := &countingStore{}
	engine := NewEngine(store)

	now := resetTime
	snapshots := [][]models.Task{
		nil,
		{},
		{
			{ID: "1", OwnerID: "alice", Status: models.StatusTodo, TimeEstimate: 2},
			{ID: "2", OwnerID: "alice", Status: models.StatusBlocked, TimeEstimate: 1},
			{ID: "3", OwnerID: "bob", Status: models.StatusDone, TimeEstimate: 1, CompletedDate: &now},
		},
	}
	for _, snapshot := range snapshots {
		res, err := engine.PerformDailyReset(context.Background(), "alice", snapshot)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
	}
	assert.Zero(t, store.calls, "no store calls on an empty reset")
}

func TestNilLoggerOption(t *testing.T) {
	f := newFixture(t)
	assert.NotPanics(t, func() { NewEngine(f.store, WithLogger(nil)) })
}

func TestListArchivedSince(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	day := resetTime
	clock := func() time.Time { return day }
	f.engine = NewEngine(f.store, WithClock(clock))

	for i := 0; i < 3; i++ {
		f.add(t, "task", float64(i+1), models.StatusDone)
		_, err := f.engine.PerformDailyReset(ctx, "alice", f.live(t))
		require.NoError(t, err)
		day = day.AddDate(0, 0, 1)
	}

	all := f.archived(t)
	require.Len(t, all, 3)
	assert.True(t, all[0].ArchivedDate.Before(all[2].ArchivedDate), "oldest first")

	recent, err := f.engine.ListArchived(ctx, "alice", resetTime.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2.0, recent[0].TimeEstimate)
}

func TestWatchDeliversArchive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got := make(chan []models.ArchivedTask, 8)
	unsubscribe, err := Watch(ctx, f.store, "alice", nil, func(a []models.ArchivedTask) { got <- a })
	require.NoError(t, err)
	defer unsubscribe()
	assert.Empty(t, <-got)

	f.add(t, "done", 1, models.StatusDone)
	_, err = f.engine.PerformDailyReset(ctx, "alice", f.live(t))
	require.NoError(t, err)

	select {
	case a := <-got:
		assert.Len(t, a, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no archive snapshot")
	}
}

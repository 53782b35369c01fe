// Package archive implements the daily reset: moving every completed task
// off the live board into the archive in one atomic batch.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/logging"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// ErrArchivalFailed is returned when the reset batch is rejected. The live
// board is unchanged and the whole reset can be retried.
var ErrArchivalFailed = errors.New("archival failed")

// Store is what the engine needs from the document store
type Store interface {
	NewID() string
	NewBatch() db.WriteBatch
	Query(ctx context.Context, collection string, q db.Query) ([]db.Document, error)
}

// Result describes one daily reset
type Result struct {
	ArchivedCount int
	ArchivedDate  time.Time
	ArchivedHours float64
	TaskIDs       []string
}

// Engine runs daily resets
type Engine struct {
	store  Store
	now    func() time.Time
	logger *logging.Logger

	archived metric.Int64Counter
	failed   metric.Int64Counter
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the clock that stamps archivedDate
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger. Nil keeps the default.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine over store
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "archive")

	meter := telemetry.Meter("archive")
	e.archived = telemetry.Counter(meter, "sprintdash.archive.tasks", "Tasks moved to the archive")
	e.failed = telemetry.Counter(meter, "sprintdash.archive.failed_resets", "Daily resets rejected by the store")
	return e
}

// Completed selects the done tasks of owner from a live snapshot
func Completed(owner string, live []models.Task) []models.Task {
	var out []models.Task
	for _, t := range live {
		if t.Status == models.StatusDone && t.OwnerID == owner {
			out = append(out, t)
		}
	}
	return out
}

// PerformDailyReset archives every done task of owner in live. All archive
// records share one archivedDate. With nothing to archive it returns a zero
// Result without touching the store.
//
// Each live delete is conditional on the task still being done, so a task
// moved out of done by another session after the snapshot was taken makes
// the whole batch fail instead of being archived.
func (e *Engine) PerformDailyReset(ctx context.Context, owner string, live []models.Task) (res Result, err error) {
	completed := Completed(owner, live)
	if len(completed) == 0 {
		e.logger.Debug("daily reset: nothing to archive", "owner", owner)
		return Result{}, nil
	}

	ctx, span := telemetry.Tracer("archive").Start(ctx, "daily-reset")
	span.SetAttributes(attribute.String("owner", owner), attribute.Int("tasks", len(completed)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "daily reset failed")
		}
		span.End()
	}()

	archivedDate := e.now().UTC()
	res = Result{ArchivedDate: archivedDate, TaskIDs: make([]string, 0, len(completed))}

	batch := e.store.NewBatch()
	for _, t := range completed {
		record := models.ArchivedTask{Task: t, TaskID: t.ID, ArchivedDate: archivedDate}
		batch.Set(db.CollectionArchive, e.store.NewID(), db.ArchivedTaskFields(record))
		batch.Delete(db.CollectionTasks, t.ID,
			db.OwnedBy(owner),
			db.Where("status", db.OpEq, string(models.StatusDone)),
		)
		res.TaskIDs = append(res.TaskIDs, t.ID)
		res.ArchivedHours += t.TimeEstimate
	}

	if err := batch.Commit(ctx); err != nil {
		e.failed.Add(ctx, 1)
		e.logger.Error("daily reset failed", "owner", owner, "tasks", len(completed), "error", err)
		return Result{}, fmt.Errorf("%w: %w", ErrArchivalFailed, err)
	}

	res.ArchivedCount = len(completed)
	e.archived.Add(ctx, int64(res.ArchivedCount), metric.WithAttributes(attribute.String("owner", owner)))
	e.logger.Info("daily reset complete", "owner", owner, "archived", res.ArchivedCount,
		"hours", res.ArchivedHours, "archivedDate", archivedDate)
	return res, nil
}

// ListArchived returns owner's archived tasks with archivedDate at or after
// since, oldest first. A zero since returns the whole archive.
func (e *Engine) ListArchived(ctx context.Context, owner string, since time.Time) ([]models.ArchivedTask, error) {
	q := db.Query{
		Filters: []db.Filter{db.OwnedBy(owner)},
		OrderBy: []db.Order{{Field: "archivedDate"}},
	}
	if !since.IsZero() {
		q.Filters = append(q.Filters, db.Where("archivedDate", db.OpGte, since))
	}
	docs, err := e.store.Query(ctx, db.CollectionArchive, q)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	return db.DecodeArchivedTasks(docs)
}

// Subscriber is a store that can push archive snapshots
type Subscriber interface {
	Subscribe(ctx context.Context, collection string, q db.Query, fn db.SnapshotFunc) (func(), error)
}

// Watch subscribes to owner's archive, oldest first
func Watch(ctx context.Context, store Subscriber, owner string, logger *logging.Logger, fn func([]models.ArchivedTask)) (func(), error) {
	q := db.Query{
		Filters: []db.Filter{db.OwnedBy(owner)},
		OrderBy: []db.Order{{Field: "archivedDate"}},
	}
	return store.Subscribe(ctx, db.CollectionArchive, q, func(docs []db.Document) {
		archived, err := db.DecodeArchivedTasks(docs)
		if err != nil {
			logger.Error("archive snapshot dropped", "owner", owner, "error", err)
			return
		}
		fn(archived)
	})
}

// Package tasks owns the task lifecycle: creation, status transitions, edits
// and the live projection of the current owner's board.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/logging"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Store is the subset of the document store the manager writes through
type Store interface {
	Create(ctx context.Context, collection string, fields db.Fields) (string, error)
	Get(ctx context.Context, collection, id string) (db.Document, error)
	Update(ctx context.Context, collection, id string, fields db.Fields, preconditions ...db.Filter) error
	Delete(ctx context.Context, collection, id string, preconditions ...db.Filter) error
	Query(ctx context.Context, collection string, q db.Query) ([]db.Document, error)
	Subscribe(ctx context.Context, collection string, q db.Query, fn db.SnapshotFunc) (func(), error)
}

// Manager applies task operations for a single owner
type Manager struct {
	store  Store
	owner  string
	now    func() time.Time
	logger *logging.Logger

	mu   sync.RWMutex
	live []models.Task

	created metric.Int64Counter
	changed metric.Int64Counter
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock used for local date checks
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's logger. Nil keeps the default.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager scoped to owner
func NewManager(store Store, owner string, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		owner:  owner,
		now:    time.Now,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "tasks", "owner", owner)

	meter := telemetry.Meter("tasks")
	m.created = telemetry.Counter(meter, "sprintdash.tasks.created", "Tasks added to the board")
	m.changed = telemetry.Counter(meter, "sprintdash.tasks.status_changes", "Task status transitions")
	return m
}

// Owner returns the owner scope
func (m *Manager) Owner() string {
	return m.owner
}

// NewTask holds the fields of the add-task form
type NewTask struct {
	Title        string
	Description  string
	AssignedTo   string
	TimeEstimate float64
	Priority     models.Priority
	DueDate      *time.Time
}

// Validate checks the form. An empty priority defaults to medium.
func (n *NewTask) Validate() error {
	verr := &models.ValidationError{}
	if strings.TrimSpace(n.Title) == "" {
		verr.Add("title", "must not be empty")
	}
	if strings.TrimSpace(n.AssignedTo) == "" {
		verr.Add("assignedTo", "must not be empty")
	}
	if !validEstimate(n.TimeEstimate) {
		verr.Add("timeEstimate", "must be greater than zero")
	}
	if n.Priority == "" {
		n.Priority = models.PriorityMedium
	}
	if !n.Priority.IsValid() {
		verr.Add("priority", fmt.Sprintf("unknown priority %q", n.Priority))
	}
	return verr.Err()
}

// validEstimate rejects zero, negative, NaN and infinite hours
func validEstimate(h float64) bool {
	return h > 0 && !math.IsInf(h, 1)
}

// AddTask validates n and creates it in todo. Nothing is written when
// validation fails.
func (m *Manager) AddTask(ctx context.Context, n NewTask) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}

	t := models.Task{
		OwnerID:      m.owner,
		Title:        strings.TrimSpace(n.Title),
		Description:  n.Description,
		AssignedTo:   strings.TrimSpace(n.AssignedTo),
		TimeEstimate: n.TimeEstimate,
		Priority:     n.Priority,
		Status:       models.StatusTodo,
		DueDate:      n.DueDate,
	}
	fields := db.TaskFields(t)
	fields["createdDate"] = db.ServerTimestamp
	if t.DueDate == nil {
		delete(fields, "dueDate")
	}
	delete(fields, "blockReason")

	id, err := m.store.Create(ctx, db.CollectionTasks, fields)
	if err != nil {
		m.logger.Error("add task failed", "title", t.Title, "error", err)
		return "", fmt.Errorf("add task: %w", err)
	}
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.String("priority", string(t.Priority))))
	m.logger.Info("task added", "id", id, "assignedTo", t.AssignedTo, "estimate", t.TimeEstimate)
	return id, nil
}

// ChangeStatus moves a task to status. Entering done stamps completedDate;
// any other status clears it. blockReason is stored when moving to blocked
// (empty if nil) and otherwise only overwrites the old reason when given.
func (m *Manager) ChangeStatus(ctx context.Context, id string, status models.Status, blockReason *string) error {
	if !status.IsValid() {
		verr := &models.ValidationError{}
		verr.Add("status", fmt.Sprintf("unknown status %q", status))
		return verr
	}

	fields := db.Fields{"status": string(status)}
	if status == models.StatusDone {
		fields["completedDate"] = db.ServerTimestamp
	} else {
		fields["completedDate"] = nil
	}
	switch {
	case blockReason != nil:
		fields["blockReason"] = *blockReason
	case status == models.StatusBlocked:
		fields["blockReason"] = ""
	}

	if err := m.store.Update(ctx, db.CollectionTasks, id, fields, db.OwnedBy(m.owner)); err != nil {
		m.logger.Error("status change failed", "id", id, "status", status, "error", err)
		return fmt.Errorf("change status of %s: %w", id, err)
	}
	m.changed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	m.logger.Info("task status changed", "id", id, "status", status)
	return nil
}

// BulkChangeStatus applies ChangeStatus to every id. It is not atomic:
// successful moves are kept and failures are joined into the returned error.
func (m *Manager) BulkChangeStatus(ctx context.Context, ids []string, status models.Status) error {
	var errs []error
	for _, id := range ids {
		if err := m.ChangeStatus(ctx, id, status, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Edit lists the detail fields to change. Nil fields are left untouched.
type Edit struct {
	Title        *string
	Description  *string
	AssignedTo   *string
	TimeEstimate *float64
	Priority     *models.Priority
	DueDate      *time.Time
	ClearDueDate bool
	BlockReason  *string
}

// IsEmpty reports whether the edit changes nothing
func (e Edit) IsEmpty() bool {
	return e.Title == nil && e.Description == nil && e.AssignedTo == nil &&
		e.TimeEstimate == nil && e.Priority == nil && e.DueDate == nil &&
		!e.ClearDueDate && e.BlockReason == nil
}

func (e Edit) fields() (db.Fields, error) {
	verr := &models.ValidationError{}
	fields := db.Fields{}
	if e.Title != nil {
		if strings.TrimSpace(*e.Title) == "" {
			verr.Add("title", "must not be empty")
		}
		fields["title"] = strings.TrimSpace(*e.Title)
	}
	if e.Description != nil {
		fields["description"] = *e.Description
	}
	if e.AssignedTo != nil {
		if strings.TrimSpace(*e.AssignedTo) == "" {
			verr.Add("assignedTo", "must not be empty")
		}
		fields["assignedTo"] = strings.TrimSpace(*e.AssignedTo)
	}
	if e.TimeEstimate != nil {
		if !validEstimate(*e.TimeEstimate) {
			verr.Add("timeEstimate", "must be greater than zero")
		}
		fields["timeEstimate"] = *e.TimeEstimate
	}
	if e.Priority != nil {
		if !e.Priority.IsValid() {
			verr.Add("priority", fmt.Sprintf("unknown priority %q", *e.Priority))
		}
		fields["priority"] = string(*e.Priority)
	}
	switch {
	case e.DueDate != nil && e.ClearDueDate:
		verr.Add("dueDate", "cannot both set and clear")
	case e.DueDate != nil:
		fields["dueDate"] = *e.DueDate
	case e.ClearDueDate:
		fields["dueDate"] = nil
	}
	if e.BlockReason != nil {
		fields["blockReason"] = *e.BlockReason
	}
	return fields, verr.Err()
}

// UpdateDetails applies an edit. Status and dates owned by the lifecycle
// are never touched here.
func (m *Manager) UpdateDetails(ctx context.Context, id string, e Edit) error {
	fields, err := e.fields()
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	if err := m.store.Update(ctx, db.CollectionTasks, id, fields, db.OwnedBy(m.owner)); err != nil {
		m.logger.Error("task edit failed", "id", id, "error", err)
		return fmt.Errorf("edit task %s: %w", id, err)
	}
	m.logger.Info("task edited", "id", id, "fields", len(fields))
	return nil
}

// DeleteTask removes a live task. Like every write, it only touches tasks of
// the manager's owner; others are reported as not found.
func (m *Manager) DeleteTask(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, db.CollectionTasks, id, db.OwnedBy(m.owner)); err != nil {
		m.logger.Error("task delete failed", "id", id, "error", err)
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	m.logger.Info("task deleted", "id", id)
	return nil
}

// GetTask reads one task. Tasks of other owners are reported as not found.
func (m *Manager) GetTask(ctx context.Context, id string) (models.Task, error) {
	doc, err := m.store.Get(ctx, db.CollectionTasks, id)
	if err != nil {
		return models.Task{}, err
	}
	t, err := db.DecodeTask(doc)
	if err != nil {
		return models.Task{}, err
	}
	if t.OwnerID != m.owner {
		return models.Task{}, fmt.Errorf("get task %s: %w", id, db.ErrNotFound)
	}
	return t, nil
}

func (m *Manager) liveQuery() db.Query {
	return db.Query{
		Filters: []db.Filter{db.OwnedBy(m.owner)},
		OrderBy: []db.Order{{Field: "createdDate", Desc: true}},
	}
}

// ListTasks reads the owner's live tasks once, newest first
func (m *Manager) ListTasks(ctx context.Context) ([]models.Task, error) {
	docs, err := m.store.Query(ctx, db.CollectionTasks, m.liveQuery())
	if err != nil {
		return nil, err
	}
	return db.DecodeTasks(docs)
}

// LoadLiveTasks subscribes to the owner's live tasks, newest first. Each
// snapshot replaces the manager's projection and is then passed to fn.
// Release the returned function when the consumer goes away.
func (m *Manager) LoadLiveTasks(ctx context.Context, fn func([]models.Task)) (func(), error) {
	return m.store.Subscribe(ctx, db.CollectionTasks, m.liveQuery(), func(docs []db.Document) {
		tasks, err := db.DecodeTasks(docs)
		if err != nil {
			m.logger.Error("live snapshot dropped", "error", err)
			return
		}
		m.mu.Lock()
		m.live = tasks
		m.mu.Unlock()
		if fn != nil {
			fn(Clone(tasks))
		}
	})
}

// Snapshot returns a copy of the last delivered live set
func (m *Manager) Snapshot() []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Clone(m.live)
}

// Clone copies a task slice so callers can't alias the projection
func Clone(tasks []models.Task) []models.Task {
	if tasks == nil {
		return nil
	}
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	return out
}

// Package excuses keeps the team's excuse log and its review verdicts
package excuses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/logging"
	"github.com/tgienger/sprintdash/internal/models"
)

// Store is what the log needs from the document store
type Store interface {
	Create(ctx context.Context, collection string, fields db.Fields) (string, error)
	Update(ctx context.Context, collection, id string, fields db.Fields, preconditions ...db.Filter) error
	Query(ctx context.Context, collection string, q db.Query) ([]db.Document, error)
	Subscribe(ctx context.Context, collection string, q db.Query, fn db.SnapshotFunc) (func(), error)
}

// Log is one owner's excuse log
type Log struct {
	store  Store
	owner  string
	logger *logging.Logger
	now    func() time.Time
}

// Option configures a Log
type Option func(*Log)

// WithClock overrides the clock that decides which day is today
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates the excuse log for owner. A nil logger discards output.
func New(store Store, owner string, logger *logging.Logger, opts ...Option) *Log {
	if logger == nil {
		logger = logging.NopLogger()
	}
	l := &Log{store: store, owner: owner, logger: logger.With("component", "excuses", "owner", owner), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewExcuse is the input to Add. An empty MeetingType means standup and a
// zero Date means today.
type NewExcuse struct {
	Text        string
	AssignedTo  string
	MeetingType models.MeetingType
	Date        time.Time
}

// Add records a new pending excuse
func (l *Log) Add(ctx context.Context, in NewExcuse) (string, error) {
	text := strings.TrimSpace(in.Text)
	assignedTo := strings.TrimSpace(in.AssignedTo)

	verr := &models.ValidationError{}
	if text == "" {
		verr.Add("excuseText", "must not be empty")
	}
	if assignedTo == "" {
		verr.Add("assignedTo", "must not be empty")
	}
	meeting, err := models.ParseMeetingType(string(in.MeetingType))
	if err != nil {
		verr.Add("meetingType", err.Error())
	}
	if err := verr.Err(); err != nil {
		return "", err
	}

	date := in.Date
	if date.IsZero() {
		date = l.now()
	}
	fields := db.ExcuseFields(models.Excuse{
		OwnerID:     l.owner,
		Text:        text,
		AssignedTo:  assignedTo,
		MeetingType: meeting,
		Date:        day(date),
	})
	fields["createdDate"] = db.ServerTimestamp

	id, err := l.store.Create(ctx, db.CollectionExcuses, fields)
	if err != nil {
		return "", fmt.Errorf("log excuse: %w", err)
	}
	l.logger.Info("excuse logged", "id", id, "assignedTo", assignedTo, "meetingType", meeting)
	return id, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the excuses given for meetings held on the day of now
func Today(excuses []models.Excuse, now time.Time) []models.Excuse {
	today := day(now)
	var out []models.Excuse
	for _, e := range excuses {
		if e.Date.UTC().Equal(today) {
			out = append(out, e)
		}
	}
	return out
}

// Judge sets the verdict of an excuse. Pending clears an earlier verdict.
func (l *Log) Judge(ctx context.Context, id string, v models.Verdict) error {
	var isValid any
	switch v {
	case models.VerdictValid:
		isValid = true
	case models.VerdictInvalid:
		isValid = false
	case models.VerdictPending:
		isValid = nil
	default:
		verr := &models.ValidationError{}
		verr.Add("verdict", fmt.Sprintf("unknown verdict %q", v))
		return verr
	}

	if err := l.store.Update(ctx, db.CollectionExcuses, id, db.Fields{"isValid": isValid}, db.OwnedBy(l.owner)); err != nil {
		return fmt.Errorf("judge excuse %s: %w", id, err)
	}
	l.logger.Info("excuse judged", "id", id, "verdict", v)
	return nil
}

func (l *Log) query() db.Query {
	return db.Query{
		Filters: []db.Filter{db.OwnedBy(l.owner)},
		OrderBy: []db.Order{{Field: "createdDate", Desc: true}},
	}
}

// List returns the log, newest first
func (l *Log) List(ctx context.Context) ([]models.Excuse, error) {
	docs, err := l.store.Query(ctx, db.CollectionExcuses, l.query())
	if err != nil {
		return nil, err
	}
	return db.DecodeExcuses(docs)
}

// Subscribe pushes the full log, newest first, on every change
func (l *Log) Subscribe(ctx context.Context, fn func([]models.Excuse)) (func(), error) {
	return l.store.Subscribe(ctx, db.CollectionExcuses, l.query(), func(docs []db.Document) {
		excuses, err := db.DecodeExcuses(docs)
		if err != nil {
			l.logger.Error("excuse snapshot dropped", "error", err)
			return
		}
		fn(excuses)
	})
}

// Tally counts excuses per verdict
type Tally struct {
	Pending int
	Valid   int
	Invalid int
}

// Count tallies excuses by verdict
func Count(excuses []models.Excuse) Tally {
	var t Tally
	for _, e := range excuses {
		switch e.Verdict() {
		case models.VerdictValid:
			t.Valid++
		case models.VerdictInvalid:
			t.Invalid++
		default:
			t.Pending++
		}
	}
	return t
}

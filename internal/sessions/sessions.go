// Package sessions schedules support sessions in 30 minute slots between
// 10:00 and 17:00. A slot is claimed by creating its document and released
// by deleting it.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tgienger/sprintdash/internal/db"
	"github.com/tgienger/sprintdash/internal/logging"
	"github.com/tgienger/sprintdash/internal/models"
)

const (
	firstHour   = 10
	lastHour    = 17
	slotMinutes = 30
	dateLayout  = "2006-01-02"
)

var (
	ErrSlotClaimed = errors.New("slot already claimed")
	ErrNotClaimant = errors.New("slot is claimed by someone else")
	ErrNotClaimed  = errors.New("slot is not claimed")
	ErrUnknownSlot = errors.New("unknown slot")
)

// Slot is one bookable half hour
type Slot struct {
	ID     string
	Date   string
	Hour   int
	Minute int
}

// Time is the slot start as H:MM
func (s Slot) Time() string {
	return fmt.Sprintf("%d:%02d", s.Hour, s.Minute)
}

// Label is the slot start on a 12 hour clock
func (s Slot) Label() string {
	hour, suffix := s.Hour, "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	if hour > 12 {
		hour -= 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, s.Minute, suffix)
}

// Slots lists the day's slots in order
func Slots(date string) []Slot {
	var out []Slot
	for hour := firstHour; hour < lastHour; hour++ {
		for minute := 0; minute < 60; minute += slotMinutes {
			out = append(out, Slot{
				ID:     fmt.Sprintf("%s-%d-%d", date, hour, minute),
				Date:   date,
				Hour:   hour,
				Minute: minute,
			})
		}
	}
	return out
}

// DateString formats t as a slot date
func DateString(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseSlotID reverses Slot.ID
func ParseSlotID(id string) (Slot, error) {
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownSlot, id)
	}
	date := strings.Join(parts[:3], "-")
	hour, herr := strconv.Atoi(parts[3])
	minute, merr := strconv.Atoi(parts[4])
	if herr != nil || merr != nil {
		return Slot{}, fmt.Errorf("%w: %q", ErrUnknownSlot, id)
	}
	return Lookup(date, hour, minute)
}

// ParseSlot finds the slot on date starting at clock, written H:MM
func ParseSlot(date, clock string) (Slot, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return Slot{}, fmt.Errorf("%w: time %q", ErrUnknownSlot, clock)
	}
	return Lookup(date, t.Hour(), t.Minute())
}

// Lookup validates a slot by its date and start time
func Lookup(date string, hour, minute int) (Slot, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return Slot{}, fmt.Errorf("%w: date %q", ErrUnknownSlot, date)
	}
	if hour < firstHour || hour >= lastHour || minute < 0 || minute%slotMinutes != 0 || minute >= 60 {
		return Slot{}, fmt.Errorf("%w: %d:%02d is outside %d:00-%d:00", ErrUnknownSlot, hour, minute, firstHour, lastHour)
	}
	return Slot{ID: fmt.Sprintf("%s-%d-%d", date, hour, minute), Date: date, Hour: hour, Minute: minute}, nil
}

// State is how a slot appears to the viewer
type State int

const (
	Available State = iota
	Mine
	Claimed
)

func (s State) String() string {
	switch s {
	case Mine:
		return "mine"
	case Claimed:
		return "claimed"
	}
	return "available"
}

// SlotView is a slot together with its claim
type SlotView struct {
	Slot
	State   State
	Session *models.Session
}

// Store is what the scheduler needs from the document store
type Store interface {
	CreateWithID(ctx context.Context, collection, id string, fields db.Fields) error
	NewBatch() db.WriteBatch
	Query(ctx context.Context, collection string, q db.Query) ([]db.Document, error)
	Subscribe(ctx context.Context, collection string, q db.Query, fn db.SnapshotFunc) (func(), error)
}

// Scheduler claims and releases slots on behalf of identity
type Scheduler struct {
	store    Store
	owner    string
	identity string
	role     string
	logger   *logging.Logger
}

// NewScheduler creates a Scheduler. role is recorded on each claim so other
// viewers can see who holds the slot.
func NewScheduler(store Store, owner, identity, role string, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Scheduler{
		store:    store,
		owner:    owner,
		identity: identity,
		role:     role,
		logger:   logger.With("component", "sessions", "owner", owner, "identity", identity),
	}
}

// docID scopes a slot id to the owner
func (s *Scheduler) docID(slotID string) string {
	return s.owner + ":" + slotID
}

// Claim books slot for the scheduler's identity
func (s *Scheduler) Claim(ctx context.Context, slot Slot) error {
	session := models.Session{
		OwnerID:       s.owner,
		SlotID:        slot.ID,
		Date:          slot.Date,
		Time:          slot.Time(),
		ClaimedBy:     s.identity,
		ClaimedByRole: s.role,
	}
	fields := db.SessionFields(session)
	fields["claimedAt"] = db.ServerTimestamp

	err := s.store.CreateWithID(ctx, db.CollectionSessions, s.docID(slot.ID), fields)
	if errors.Is(err, db.ErrAlreadyExists) {
		return fmt.Errorf("claim %s: %w", slot.Label(), ErrSlotClaimed)
	}
	if err != nil {
		return fmt.Errorf("claim %s: %w", slot.Label(), err)
	}
	s.logger.Info("session claimed", "slot", slot.ID)
	return nil
}

// Release frees a slot. Only the claimant may release it.
func (s *Scheduler) Release(ctx context.Context, slot Slot) error {
	batch := s.store.NewBatch()
	batch.Delete(db.CollectionSessions, s.docID(slot.ID), db.Where("claimedBy", db.OpEq, s.identity))

	err := batch.Commit(ctx)
	switch {
	case errors.Is(err, db.ErrPreconditionFailed):
		return fmt.Errorf("release %s: %w", slot.Label(), ErrNotClaimant)
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("release %s: %w", slot.Label(), ErrNotClaimed)
	case err != nil:
		return fmt.Errorf("release %s: %w", slot.Label(), err)
	}
	s.logger.Info("session released", "slot", slot.ID)
	return nil
}

// Toggle claims an available slot or releases one held by the identity
func (s *Scheduler) Toggle(ctx context.Context, view SlotView) error {
	switch view.State {
	case Available:
		return s.Claim(ctx, view.Slot)
	case Mine:
		return s.Release(ctx, view.Slot)
	}
	return fmt.Errorf("claim %s: %w", view.Label(), ErrSlotClaimed)
}

func (s *Scheduler) query(date string) db.Query {
	return db.Query{
		Filters: []db.Filter{db.OwnedBy(s.owner), db.Where("date", db.OpEq, date)},
	}
}

// Board returns every slot of date as seen by the scheduler's identity
func (s *Scheduler) Board(ctx context.Context, date string) ([]SlotView, error) {
	docs, err := s.store.Query(ctx, db.CollectionSessions, s.query(date))
	if err != nil {
		return nil, err
	}
	sessions, err := db.DecodeSessions(docs)
	if err != nil {
		return nil, err
	}
	return BuildBoard(date, sessions, s.identity), nil
}

// Subscribe pushes the board for date whenever a claim changes
func (s *Scheduler) Subscribe(ctx context.Context, date string, fn func([]SlotView)) (func(), error) {
	return s.store.Subscribe(ctx, db.CollectionSessions, s.query(date), func(docs []db.Document) {
		sessions, err := db.DecodeSessions(docs)
		if err != nil {
			s.logger.Error("session snapshot dropped", "error", err)
			return
		}
		fn(BuildBoard(date, sessions, s.identity))
	})
}

// BuildBoard lays claims over the day's slots. Claims for slots that don't
// exist on that day are ignored.
func BuildBoard(date string, sessions []models.Session, identity string) []SlotView {
	bySlot := make(map[string]models.Session, len(sessions))
	for _, sess := range sessions {
		bySlot[sess.SlotID] = sess
	}

	slots := Slots(date)
	views := make([]SlotView, len(slots))
	for i, slot := range slots {
		views[i] = SlotView{Slot: slot, State: Available}
		sess, ok := bySlot[slot.ID]
		if !ok {
			continue
		}
		views[i].Session = &sess
		if sess.ClaimedBy == identity {
			views[i].State = Mine
		} else {
			views[i].State = Claimed
		}
	}
	return views
}

// MineOnly keeps the slots held by the viewer
func MineOnly(views []SlotView) []SlotView {
	var out []SlotView
	for _, v := range views {
		if v.State == Mine {
			out = append(out, v)
		}
	}
	return out
}

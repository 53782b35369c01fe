package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the kanban column a task sits in
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// Statuses returns the board columns in display order
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}
}

// IsValid reports whether s is one of the four board statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Label returns the column heading for s
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do Today"
	case StatusInProgress:
		return "In Progress"
	case StatusBlocked:
		return "Blocked"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// Priority is a task's urgency
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is low, medium or high
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities so that high sorts first
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	}
	return 0
}

// Task represents a single live task on the board
type Task struct {
	ID            string     `json:"-"`
	OwnerID       string     `json:"userId"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	AssignedTo    string     `json:"assignedTo"`
	TimeEstimate  float64    `json:"timeEstimate"`
	Priority      Priority   `json:"priority"`
	Status        Status     `json:"status"`
	BlockReason   string     `json:"blockReason,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	CreatedDate   time.Time  `json:"createdDate"`
	CompletedDate *time.Time `json:"completedDate"`
}

// IsDone reports whether the task is in the done column
func (t Task) IsDone() bool {
	return t.Status == StatusDone
}

// IsOverdue reports whether the task is not done and its due day has
// passed. Due dates are calendar days stored as midnight UTC.
func (t Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsDone() {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return t.DueDate.UTC().Before(today)
}

// CheckInvariants verifies the status/completedDate coupling
func (t Task) CheckInvariants() error {
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %q", t.Status)
	}
	if t.Status == StatusDone && t.CompletedDate == nil {
		return fmt.Errorf("done task %s has no completedDate", t.ID)
	}
	if t.Status != StatusDone && t.CompletedDate != nil {
		return fmt.Errorf("task %s in %s has a completedDate", t.ID, t.Status)
	}
	return nil
}

// ArchivedTask is an immutable copy of a completed task taken at daily reset.
// The embedded Task.ID is the archive record's own id; TaskID is the id the
// task had on the live board.
type ArchivedTask struct {
	Task
	TaskID       string    `json:"taskId"`
	ArchivedDate time.Time `json:"archivedDate"`
}

// Verdict is the review outcome of a logged excuse
type Verdict string

const (
	VerdictPending Verdict = "pending"
	VerdictValid   Verdict = "valid"
	VerdictInvalid Verdict = "invalid"
)

// ParseVerdict accepts pending, valid or invalid (case-insensitive)
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case VerdictPending, VerdictValid, VerdictInvalid:
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q (want pending, valid or invalid)", s)
}

// MeetingType is the meeting an excuse was given for
type MeetingType string

const (
	MeetingStandup       MeetingType = "standup"
	MeetingRetrospective MeetingType = "retrospective"
	MeetingPlanning      MeetingType = "planning"
	MeetingDemo          MeetingType = "demo"
	MeetingOther         MeetingType = "other"
)

// MeetingTypes returns the meeting types in form order
func MeetingTypes() []MeetingType {
	return []MeetingType{MeetingStandup, MeetingRetrospective, MeetingPlanning, MeetingDemo, MeetingOther}
}

// ParseMeetingType accepts a meeting type name (case-insensitive). Empty
// means standup.
func ParseMeetingType(s string) (MeetingType, error) {
	m := MeetingType(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return MeetingStandup, nil
	}
	for _, known := range MeetingTypes() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown meeting type %q (want standup, retrospective, planning, demo or other)", s)
}

// Label returns the display name of m
func (m MeetingType) Label() string {
	switch m {
	case MeetingStandup:
		return "Daily Standup"
	case MeetingRetrospective:
		return "Retrospective"
	case MeetingPlanning:
		return "Sprint Planning"
	case MeetingDemo:
		return "Demo"
	case MeetingOther:
		return "Other"
	}
	return string(m)
}

// Excuse is an entry in the excuse log. AssignedTo is the person who gave
// the excuse and Date the day of the meeting, stored as midnight UTC.
type Excuse struct {
	ID          string      `json:"-"`
	OwnerID     string      `json:"userId"`
	Text        string      `json:"excuseText"`
	AssignedTo  string      `json:"assignedTo"`
	MeetingType MeetingType `json:"meetingType"`
	Date        time.Time   `json:"date"`
	CreatedDate time.Time   `json:"createdDate"`
	IsValid     *bool       `json:"isValid"` // nil while pending
}

// Verdict maps the stored tri-state to a Verdict
func (e Excuse) Verdict() Verdict {
	switch {
	case e.IsValid == nil:
		return VerdictPending
	case *e.IsValid:
		return VerdictValid
	default:
		return VerdictInvalid
	}
}

// Session is a claimed support-session slot
type Session struct {
	ID            string    `json:"-"`
	OwnerID       string    `json:"userId"`
	SlotID        string    `json:"slotId"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	ClaimedBy     string    `json:"claimedBy"`
	ClaimedByRole string    `json:"claimedByRole"`
	ClaimedAt     time.Time `json:"claimedAt"`
}

// ValidationError reports user input that fails local checks. It never
// reaches the store.
type ValidationError struct {
	Fields   []string
	Problems map[string]string
}

// Add records a problem with field
func (e *ValidationError) Add(field, problem string) {
	if e.Problems == nil {
		e.Problems = make(map[string]string)
	}
	if _, seen := e.Problems[field]; !seen {
		e.Fields = append(e.Fields, field)
	}
	e.Problems[field] = problem
}

// HasErrors reports whether any field was rejected
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// Err returns e as an error, or nil when nothing was rejected
func (e *ValidationError) Err() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := append([]string(nil), e.Fields...)
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Problems[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

package db

import (
	"time"

	"github.com/tgienger/sprintdash/internal/models"
)

// Collection names
const (
	CollectionTasks    = "tasks"
	CollectionArchive  = "daily_archive"
	CollectionExcuses  = "excuses"
	CollectionSessions = "sessions"
)

// OwnerField is the document field every collection is scoped by
const OwnerField = "userId"

// OwnedBy filters a collection to one owner's documents
func OwnedBy(owner string) Filter {
	return Where(OwnerField, OpEq, owner)
}

// TaskFields returns the full document body for a task
func TaskFields(t models.Task) Fields {
	return Fields{
		OwnerField:      t.OwnerID,
		"title":         t.Title,
		"description":   t.Description,
		"assignedTo":    t.AssignedTo,
		"timeEstimate":  t.TimeEstimate,
		"priority":      string(t.Priority),
		"status":        string(t.Status),
		"blockReason":   t.BlockReason,
		"dueDate":       t.DueDate,
		"createdDate":   t.CreatedDate,
		"completedDate": t.CompletedDate,
	}
}

// ArchivedTaskFields returns the full document body for an archive record
func ArchivedTaskFields(a models.ArchivedTask) Fields {
	f := TaskFields(a.Task)
	f["taskId"] = a.TaskID
	f["archivedDate"] = a.ArchivedDate
	return f
}

// DecodeTask converts a tasks document into a Task
func DecodeTask(d Document) (models.Task, error) {
	var t models.Task
	if err := d.Decode(&t); err != nil {
		return models.Task{}, err
	}
	t.ID = d.ID
	return t, nil
}

// DecodeTasks converts a tasks snapshot
func DecodeTasks(docs []Document) ([]models.Task, error) {
	tasks := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		t, err := DecodeTask(d)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// DecodeArchivedTasks converts a daily_archive snapshot
func DecodeArchivedTasks(docs []Document) ([]models.ArchivedTask, error) {
	out := make([]models.ArchivedTask, 0, len(docs))
	for _, d := range docs {
		var a models.ArchivedTask
		if err := d.Decode(&a); err != nil {
			return nil, err
		}
		a.ID = d.ID
		out = append(out, a)
	}
	return out, nil
}

// ExcuseFields returns the full document body for an excuse
func ExcuseFields(e models.Excuse) Fields {
	return Fields{
		OwnerField:    e.OwnerID,
		"excuseText":  e.Text,
		"assignedTo":  e.AssignedTo,
		"meetingType": string(e.MeetingType),
		"date":        e.Date,
		"createdDate": e.CreatedDate,
		"isValid":     e.IsValid,
	}
}

// DecodeExcuses converts an excuses snapshot
func DecodeExcuses(docs []Document) ([]models.Excuse, error) {
	out := make([]models.Excuse, 0, len(docs))
	for _, d := range docs {
		var e models.Excuse
		if err := d.Decode(&e); err != nil {
			return nil, err
		}
		e.ID = d.ID
		if e.MeetingType == "" {
			e.MeetingType = models.MeetingStandup
		}
		if e.Date.IsZero() {
			y, m, day := e.CreatedDate.Date()
			e.Date = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
		}
		out = append(out, e)
	}
	return out, nil
}

// SessionFields returns the full document body for a claimed session slot
func SessionFields(s models.Session) Fields {
	return Fields{
		OwnerField:      s.OwnerID,
		"slotId":        s.SlotID,
		"date":          s.Date,
		"time":          s.Time,
		"claimedBy":     s.ClaimedBy,
		"claimedByRole": s.ClaimedByRole,
		"claimedAt":     s.ClaimedAt,
	}
}

// DecodeSessions converts a sessions snapshot
func DecodeSessions(docs []Document) ([]models.Session, error) {
	out := make([]models.Session, 0, len(docs))
	for _, d := range docs {
		var s models.Session
		if err := d.Decode(&s); err != nil {
			return nil, err
		}
		s.ID = d.ID
		out = append(out, s)
	}
	return out, nil
}

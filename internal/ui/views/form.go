package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
)

// Form fields in tab order
const (
	fieldTitle = iota
	fieldDesc
	fieldAssignee
	fieldEstimate
	fieldPriority
	fieldDue
	fieldSave
	fieldCount
)

var priorities = []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}

// taskForm is the add/edit modal
type taskForm struct {
	editingID string
	title     textinput.Model
	desc      textarea.Model
	assignee  textinput.Model
	estimate  textinput.Model
	due       textinput.Model
	priority  int
	focus     int
	err       string
}

func newTaskForm() taskForm {
	title := textinput.New()
	title.Placeholder = "What needs doing?"
	title.CharLimit = 200

	desc := textarea.New()
	desc.Placeholder = "Details (optional)"
	desc.CharLimit = 2000
	desc.SetHeight(3)
	desc.ShowLineNumbers = false

	assignee := textinput.New()
	assignee.Placeholder = "Who owns it"
	assignee.CharLimit = 100

	estimate := textinput.New()
	estimate.Placeholder = "Hours, e.g. 1.5"
	estimate.CharLimit = 8

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DD, tomorrow, next friday (optional)"
	due.CharLimit = 60

	return taskForm{
		title:    title,
		desc:     desc,
		assignee: assignee,
		estimate: estimate,
		due:      due,
		priority: 1,
	}
}

func (f *taskForm) reset() {
	f.editingID = ""
	f.title.Reset()
	f.desc.Reset()
	f.assignee.Reset()
	f.estimate.Reset()
	f.due.Reset()
	f.priority = 1
	f.err = ""
	f.focus = fieldTitle
	f.applyFocus()
}

func (f *taskForm) load(t models.Task) {
	f.reset()
	f.editingID = t.ID
	f.title.SetValue(t.Title)
	f.desc.SetValue(t.Description)
	f.assignee.SetValue(t.AssignedTo)
	f.estimate.SetValue(strconv.FormatFloat(t.TimeEstimate, 'f', -1, 64))
	f.due.SetValue(tasks.FormatDueDate(t.DueDate))
	for i, p := range priorities {
		if p == t.Priority {
			f.priority = i
		}
	}
}

func (f *taskForm) setWidth(w int) {
	f.title.Width = w
	f.assignee.Width = w
	f.estimate.Width = w
	f.due.Width = w
	f.desc.SetWidth(w)
}

func (f *taskForm) move(dir int) {
	f.focus = (f.focus + dir + fieldCount) % fieldCount
	f.applyFocus()
}

func (f *taskForm) applyFocus() {
	f.title.Blur()
	f.desc.Blur()
	f.assignee.Blur()
	f.estimate.Blur()
	f.due.Blur()
	switch f.focus {
	case fieldTitle:
		f.title.Focus()
	case fieldDesc:
		f.desc.Focus()
	case fieldAssignee:
		f.assignee.Focus()
	case fieldEstimate:
		f.estimate.Focus()
	case fieldDue:
		f.due.Focus()
	}
}

func (f *taskForm) cyclePriority(dir int) {
	f.priority = (f.priority + dir + len(priorities)) % len(priorities)
}

// update routes a key to the focused input
func (f *taskForm) update(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDesc:
		f.desc, cmd = f.desc.Update(msg)
	case fieldAssignee:
		f.assignee, cmd = f.assignee.Update(msg)
	case fieldEstimate:
		f.estimate, cmd = f.estimate.Update(msg)
	case fieldDue:
		f.due, cmd = f.due.Update(msg)
	}
	return cmd
}

func (f *taskForm) parseEstimate() (float64, error) {
	raw := strings.TrimSpace(f.estimate.Value())
	if raw == "" {
		return 0, nil
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("estimate %q is not a number", raw)
	}
	return h, nil
}

func (f *taskForm) parseDue(now time.Time) (*time.Time, error) {
	raw := strings.TrimSpace(f.due.Value())
	if raw == "" {
		return nil, nil
	}
	d, err := tasks.ParseDueDate(raw, now)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// newTask reads the form as a task to add
func (f *taskForm) newTask(now time.Time) (tasks.NewTask, error) {
	est, err := f.parseEstimate()
	if err != nil {
		return tasks.NewTask{}, err
	}
	due, err := f.parseDue(now)
	if err != nil {
		return tasks.NewTask{}, err
	}
	n := tasks.NewTask{
		Title:        f.title.Value(),
		Description:  strings.TrimSpace(f.desc.Value()),
		AssignedTo:   f.assignee.Value(),
		TimeEstimate: est,
		Priority:     priorities[f.priority],
		DueDate:      due,
	}
	return n, n.Validate()
}

// edit reads the form as a full replacement of the task's details
func (f *taskForm) edit(now time.Time) (tasks.Edit, error) {
	n, err := f.newTask(now)
	if err != nil {
		return tasks.Edit{}, err
	}
	e := tasks.Edit{
		Title:        &n.Title,
		Description:  &n.Description,
		AssignedTo:   &n.AssignedTo,
		TimeEstimate: &n.TimeEstimate,
		Priority:     &n.Priority,
		DueDate:      n.DueDate,
		ClearDueDate: n.DueDate == nil,
	}
	return e, nil
}

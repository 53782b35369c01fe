package views

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/sprintdash/internal/excuses"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
	"github.com/tgienger/sprintdash/internal/ui/keys"
	"github.com/tgienger/sprintdash/internal/ui/styles"
)

type excuseItem struct {
	excuse models.Excuse
}

func (i excuseItem) Title() string       { return i.excuse.Text }
func (i excuseItem) Description() string { return i.excuse.AssignedTo }
func (i excuseItem) FilterValue() string { return i.excuse.Text + " " + i.excuse.AssignedTo }

type excuseDelegate struct {
	styles *styles.Styles
	width  int
}

func (d excuseDelegate) Height() int                               { return 2 }
func (d excuseDelegate) Spacing() int                              { return 1 }
func (d excuseDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func verdictBadge(s *styles.Styles, v models.Verdict) string {
	color := styles.Current.Warning
	switch v {
	case models.VerdictValid:
		color = styles.Current.Success
	case models.VerdictInvalid:
		color = styles.Current.Error
	}
	return s.Badge.Foreground(color).Render(string(v))
}

func (d excuseDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	e, ok := item.(excuseItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	titleStyle := d.styles.ListItem.Width(width)
	metaStyle := d.styles.ListItem.Foreground(styles.Current.ForegroundDim).Width(width)
	if index == m.Index() {
		titleStyle = d.styles.ListSelected.Width(width)
		metaStyle = d.styles.ListSelected.Foreground(styles.Current.ForegroundDim).Width(width)
	}

	meta := fmt.Sprintf("%s · %s · %s · %s",
		e.excuse.AssignedTo,
		e.excuse.MeetingType.Label(),
		e.excuse.Date.UTC().Format("Jan 2"),
		verdictBadge(d.styles, e.excuse.Verdict()),
	)
	fmt.Fprintf(w, "%s\n%s", titleStyle.Render(truncate(e.Title(), width-4)), metaStyle.Render(meta))
}

// ExcusesView lists logged excuses and records verdicts
type ExcusesView struct {
	ctx      context.Context
	log      *excuses.Log
	list     list.Model
	delegate *excuseDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	tally    excuses.Tally
	today    int
	now      func() time.Time
	creating bool
	newText  textinput.Model
	newWho   textinput.Model
	meeting  int // index into models.MeetingTypes
	newDate  textinput.Model
	focusIdx int
	formErr  string
}

// create form fields in focus order
const (
	fieldExcuse = iota
	fieldWho
	fieldMeeting
	fieldDate
	fieldConfirm
	excuseFieldCount
)

// NewExcusesView creates the excuse log page
func NewExcusesView(ctx context.Context, log *excuses.Log, now func() time.Time) *ExcusesView {
	s := styles.NewStyles()

	newText := textinput.New()
	newText.Placeholder = "The excuse"
	newText.CharLimit = 300

	newWho := textinput.New()
	newWho.Placeholder = "Who gave it"
	newWho.CharLimit = 100

	newDate := textinput.New()
	newDate.Placeholder = "today"
	newDate.CharLimit = 40

	delegate := &excuseDelegate{styles: s, width: 80}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Excuse Log"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ExcusesView{
		ctx:      ctx,
		log:      log,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
		now:      now,
		newText:  newText,
		newWho:   newWho,
		newDate:  newDate,
	}
}

// Capturing reports whether the form or the list filter owns the keyboard
func (v *ExcusesView) Capturing() bool {
	return v.creating || v.list.SettingFilter()
}

func (v *ExcusesView) Init() tea.Cmd {
	return nil
}

func (v *ExcusesView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-4)
		inputWidth := clamp(contentWidth-10, 20, 60)
		v.newText.Width = inputWidth
		v.newWho.Width = inputWidth
		v.newDate.Width = inputWidth
		return v, nil

	case ExcusesLoadedMsg:
		items := make([]list.Item, len(msg.Excuses))
		for i, e := range msg.Excuses {
			items[i] = excuseItem{excuse: e}
		}
		v.tally = excuses.Count(msg.Excuses)
		v.today = len(excuses.Today(msg.Excuses, v.now()))
		v.loaded = true
		return v, v.list.SetItems(items)

	case tea.KeyMsg:
		if v.creating {
			return v.updateCreating(msg)
		}
		if v.list.SettingFilter() {
			break
		}

		switch {
		case key.Matches(msg, v.keys.New):
			v.creating = true
			v.focusIdx = fieldExcuse
			v.formErr = ""
			v.newText.Reset()
			v.newWho.Reset()
			v.newDate.Reset()
			v.meeting = 0
			v.updateFocus()
			return v, textinput.Blink
		case key.Matches(msg, v.keys.Valid):
			return v, v.judge(models.VerdictValid)
		case key.Matches(msg, v.keys.Invalid):
			return v, v.judge(models.VerdictInvalid)
		case key.Matches(msg, v.keys.Pending):
			return v, v.judge(models.VerdictPending)
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *ExcusesView) judge(verdict models.Verdict) tea.Cmd {
	item, ok := v.list.SelectedItem().(excuseItem)
	if !ok {
		return nil
	}
	ctx, log, id := v.ctx, v.log, item.excuse.ID
	return func() tea.Msg {
		if err := log.Judge(ctx, id, verdict); err != nil {
			return failed("Verdict failed", err)
		}
		return StatusMsg{Text: "Marked " + string(verdict)}
	}
}

func (v *ExcusesView) submit() tea.Cmd {
	text := strings.TrimSpace(v.newText.Value())
	who := strings.TrimSpace(v.newWho.Value())
	if text == "" || who == "" {
		v.formErr = "Both the excuse and who gave it are required"
		return nil
	}
	in := excuses.NewExcuse{
		Text:        text,
		AssignedTo:  who,
		MeetingType: models.MeetingTypes()[v.meeting],
	}
	if raw := strings.TrimSpace(v.newDate.Value()); raw != "" {
		d, err := tasks.ParseDueDate(raw, v.now())
		if err != nil {
			v.formErr = "Invalid date: " + raw
			return nil
		}
		in.Date = d
	}
	v.creating = false
	ctx, log := v.ctx, v.log
	return func() tea.Msg {
		if _, err := log.Add(ctx, in); err != nil {
			return failed("Log failed", err)
		}
		return StatusMsg{Text: "Excuse logged"}
	}
}

func (v *ExcusesView) updateCreating(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.creating = false
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.submit()

	case key.Matches(msg, v.keys.ShiftTab):
		v.focusIdx = (v.focusIdx + excuseFieldCount - 1) % excuseFieldCount
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % excuseFieldCount
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx < fieldConfirm {
			v.focusIdx++
			v.updateFocus()
			return v, nil
		}
		return v, v.submit()
	}

	if v.focusIdx == fieldMeeting {
		n := len(models.MeetingTypes())
		switch {
		case key.Matches(msg, v.keys.Left):
			v.meeting = (v.meeting + n - 1) % n
		case key.Matches(msg, v.keys.Right):
			v.meeting = (v.meeting + 1) % n
		}
		return v, nil
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case fieldExcuse:
		v.newText, cmd = v.newText.Update(msg)
	case fieldWho:
		v.newWho, cmd = v.newWho.Update(msg)
	case fieldDate:
		v.newDate, cmd = v.newDate.Update(msg)
	}
	return v, cmd
}

func (v *ExcusesView) updateFocus() {
	v.newText.Blur()
	v.newWho.Blur()
	v.newDate.Blur()
	switch v.focusIdx {
	case fieldExcuse:
		v.newText.Focus()
	case fieldWho:
		v.newWho.Focus()
	case fieldDate:
		v.newDate.Focus()
	}
}

// View renders the view
func (v *ExcusesView) View() string {
	if v.creating {
		return v.renderCreateForm()
	}

	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}

	if len(v.list.Items()) == 0 {
		return v.renderEmpty()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.list.View(),
		v.renderTally(),
		v.renderHelp(),
	)
}

func (v *ExcusesView) renderTally() string {
	s := v.styles
	return s.StatusBar.Render(fmt.Sprintf("%d logged · %d today · %s %d · %s %d · %s %d",
		v.tally.Valid+v.tally.Invalid+v.tally.Pending,
		v.today,
		verdictBadge(s, models.VerdictValid), v.tally.Valid,
		verdictBadge(s, models.VerdictInvalid), v.tally.Invalid,
		verdictBadge(s, models.VerdictPending), v.tally.Pending,
	))
}

func (v *ExcusesView) renderEmpty() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Render("No Excuses Yet"),
		"",
		s.TitleMuted.Render("Press 'n' to log one"),
	)
	return lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
}

func (v *ExcusesView) renderCreateForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	textStyle := s.Input
	whoStyle := s.Input
	meetingStyle := s.Input
	dateStyle := s.Input
	btn := s.Button.Render(" Log ")
	switch v.focusIdx {
	case fieldExcuse:
		textStyle = s.InputFocused
	case fieldWho:
		whoStyle = s.InputFocused
	case fieldMeeting:
		meetingStyle = s.InputFocused
	case fieldDate:
		dateStyle = s.InputFocused
	case fieldConfirm:
		btn = s.ButtonPrimary.Render(" Log ")
	}

	rows := []string{
		s.Title.Render("Log Excuse"),
		"",
		s.Label.Render("Excuse"),
		textStyle.Render(v.newText.View()),
		"",
		s.Label.Render("Given by"),
		whoStyle.Render(v.newWho.View()),
		"",
		s.Label.Render("Meeting"),
		meetingStyle.Render("‹ " + models.MeetingTypes()[v.meeting].Label() + " ›"),
		"",
		s.Label.Render("Date"),
		dateStyle.Render(v.newDate.View()),
		"",
		btn,
	}
	if v.formErr != "" {
		rows = append(rows, "", s.StatusError.Render(v.formErr))
	}
	rows = append(rows, "", s.TitleMuted.Render("Tab: next • ←/→: meeting • Ctrl+S: save • Esc: cancel"))

	return lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)),
	)
}

func (v *ExcusesView) renderHelp() string {
	return v.styles.Help.Render(
		fmt.Sprintf("%s new • %s valid • %s invalid • %s undecided • %s filter",
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("v"),
			v.styles.HelpKey.Render("i"),
			v.styles.HelpKey.Render("u"),
			v.styles.HelpKey.Render("/"),
		),
	)
}

package views

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/sprintdash/internal/models"
	"github.com/tgienger/sprintdash/internal/tasks"
	"github.com/tgienger/sprintdash/internal/ui/keys"
	"github.com/tgienger/sprintdash/internal/ui/styles"
)

type boardMode int

const (
	boardNormal boardMode = iota
	boardSearch
	boardFilter
	boardForm
	boardBlockReason
	boardConfirmDelete
	boardHelp
)

// Filter popup rows
const (
	filterAssignee = iota
	filterPriority
	filterStatus
	filterRows
)

// BoardView is the four column task board
type BoardView struct {
	ctx     context.Context
	manager *tasks.Manager
	now     func() time.Time
	styles  *styles.Styles
	keys    keys.KeyMap
	help    help.Model
	width   int
	height  int

	all     []models.Task
	columns map[models.Status][]models.Task
	loaded  bool
	filter  tasks.Filter

	col    int
	cursor [4]int
	marked map[string]bool

	mode        boardMode
	search      textinput.Model
	filterRow   int
	form        taskForm
	blockInput  textinput.Model
	blockIDs    []string
	deleteID    string
	deleteTitle string
}

// NewBoardView creates the board for manager's owner
func NewBoardView(ctx context.Context, manager *tasks.Manager, now func() time.Time) *BoardView {
	search := textinput.New()
	search.Placeholder = "Search tasks..."
	search.CharLimit = 100

	block := textinput.New()
	block.Placeholder = "What's blocking it? (optional)"
	block.CharLimit = 200

	return &BoardView{
		ctx:        ctx,
		manager:    manager,
		now:        now,
		styles:     styles.NewStyles(),
		keys:       keys.DefaultKeyMap(),
		help:       help.New(),
		columns:    tasks.GroupByStatus(nil),
		marked:     make(map[string]bool),
		search:     search,
		form:       newTaskForm(),
		blockInput: block,
	}
}

// Capturing reports whether the board is consuming keystrokes itself
func (v *BoardView) Capturing() bool {
	return v.mode != boardNormal
}

func (v *BoardView) Init() tea.Cmd {
	return nil
}

func (v *BoardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		inputWidth := clamp(styles.ContentWidth(v.width)-16, 20, 60)
		v.form.setWidth(inputWidth)
		v.blockInput.Width = inputWidth
		v.search.Width = clamp(styles.ContentWidth(v.width)/3, 10, 40)
		v.help.Width = styles.ContentWidth(v.width)
		return v, nil

	case TasksLoadedMsg:
		v.all = msg.Tasks
		v.loaded = true
		live := make(map[string]bool, len(v.all))
		for _, t := range v.all {
			live[t.ID] = true
		}
		for id := range v.marked {
			if !live[id] {
				delete(v.marked, id)
			}
		}
		v.regroup()
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case boardHelp:
			v.mode = boardNormal
			return v, nil
		case boardConfirmDelete:
			return v.updateConfirmDelete(msg)
		case boardForm:
			return v.updateForm(msg)
		case boardBlockReason:
			return v.updateBlockReason(msg)
		case boardSearch:
			return v.updateSearch(msg)
		case boardFilter:
			return v.updateFilter(msg)
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

// regroup re-applies the filter and keeps cursors in range
func (v *BoardView) regroup() {
	v.columns = tasks.GroupByStatus(v.filter.Apply(v.all))
	for i, s := range models.Statuses() {
		v.cursor[i] = clamp(v.cursor[i], 0, max(0, len(v.columns[s])-1))
	}
}

func (v *BoardView) status() models.Status {
	return models.Statuses()[v.col]
}

func (v *BoardView) selected() (models.Task, bool) {
	list := v.columns[v.status()]
	if len(list) == 0 {
		return models.Task{}, false
	}
	return list[v.cursor[v.col]], true
}

// targets are the marked tasks, or the selected one when nothing is marked
func (v *BoardView) targets() []string {
	if len(v.marked) > 0 {
		ids := make([]string, 0, len(v.marked))
		for _, t := range v.all {
			if v.marked[t.ID] {
				ids = append(ids, t.ID)
			}
		}
		return ids
	}
	if t, ok := v.selected(); ok {
		return []string{t.ID}
	}
	return nil
}

func (v *BoardView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Left):
		if v.col > 0 {
			v.col--
		}
		return v, nil

	case key.Matches(msg, v.keys.Right):
		if v.col < len(v.cursor)-1 {
			v.col++
		}
		return v, nil

	case key.Matches(msg, v.keys.Up):
		if v.cursor[v.col] > 0 {
			v.cursor[v.col]--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor[v.col] < len(v.columns[v.status()])-1 {
			v.cursor[v.col]++
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.form.reset()
		v.mode = boardForm
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit), key.Matches(msg, v.keys.Enter):
		if t, ok := v.selected(); ok {
			v.form.load(t)
			v.mode = boardForm
			return v, textinput.Blink
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if t, ok := v.selected(); ok {
			v.mode = boardConfirmDelete
			v.deleteID = t.ID
			v.deleteTitle = t.Title
		}
		return v, nil

	case key.Matches(msg, v.keys.Search):
		v.mode = boardSearch
		v.search.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Filter):
		v.mode = boardFilter
		v.filterRow = filterAssignee
		return v, nil

	case key.Matches(msg, v.keys.MoveLeft), key.Matches(msg, v.keys.MoveRight):
		dir := 1
		if key.Matches(msg, v.keys.MoveLeft) {
			dir = -1
		}
		next := v.col + dir
		ids := v.targets()
		if next < 0 || next >= len(v.cursor) || len(ids) == 0 {
			return v, nil
		}
		status := models.Statuses()[next]
		if status == models.StatusBlocked {
			return v, v.askBlockReason(ids)
		}
		return v, v.move(ids, status, nil)

	case key.Matches(msg, v.keys.Block):
		if ids := v.targets(); len(ids) > 0 {
			return v, v.askBlockReason(ids)
		}
		return v, nil

	case key.Matches(msg, v.keys.Select):
		if t, ok := v.selected(); ok {
			if v.marked[t.ID] {
				delete(v.marked, t.ID)
			} else {
				v.marked[t.ID] = true
			}
		}
		return v, nil

	case key.Matches(msg, v.keys.Back):
		switch {
		case len(v.marked) > 0:
			v.marked = make(map[string]bool)
		case !v.filter.IsZero():
			v.filter = tasks.Filter{}
			v.search.Reset()
			v.regroup()
		}
		return v, nil

	case key.Matches(msg, v.keys.Help):
		v.mode = boardHelp
		return v, nil
	}

	return v, nil
}

func (v *BoardView) askBlockReason(ids []string) tea.Cmd {
	v.blockIDs = ids
	v.blockInput.Reset()
	v.blockInput.Focus()
	v.mode = boardBlockReason
	return textinput.Blink
}

func (v *BoardView) move(ids []string, status models.Status, reason *string) tea.Cmd {
	v.marked = make(map[string]bool)
	ctx, m := v.ctx, v.manager
	return func() tea.Msg {
		var err error
		if reason == nil {
			err = m.BulkChangeStatus(ctx, ids, status)
		} else {
			for _, id := range ids {
				if e := m.ChangeStatus(ctx, id, status, reason); e != nil && err == nil {
					err = e
				}
			}
		}
		if err != nil {
			return failed("Move failed", err)
		}
		if len(ids) == 1 {
			return StatusMsg{Text: "Moved to " + status.Label()}
		}
		return StatusMsg{Text: fmt.Sprintf("Moved %d tasks to %s", len(ids), status.Label())}
	}
}

func (v *BoardView) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.search.Reset()
		v.search.Blur()
		v.filter.Search = ""
		v.mode = boardNormal
		v.regroup()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		v.search.Blur()
		v.mode = boardNormal
		return v, nil
	}

	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	v.filter.Search = v.search.Value()
	v.regroup()
	return v, cmd
}

// filterOptions lists the choices for a filter row, "" meaning any
func (v *BoardView) filterOptions(row int) []string {
	opts := []string{""}
	switch row {
	case filterAssignee:
		opts = append(opts, tasks.Assignees(v.all)...)
	case filterPriority:
		for _, p := range priorities {
			opts = append(opts, string(p))
		}
	case filterStatus:
		for _, s := range models.Statuses() {
			opts = append(opts, string(s))
		}
	}
	return opts
}

func (v *BoardView) filterValue(row int) string {
	switch row {
	case filterAssignee:
		return v.filter.Assignee
	case filterPriority:
		return string(v.filter.Priority)
	case filterStatus:
		return string(v.filter.Status)
	}
	return ""
}

func (v *BoardView) cycleFilter(row, dir int) {
	opts := v.filterOptions(row)
	current := v.filterValue(row)
	idx := 0
	for i, o := range opts {
		if strings.EqualFold(o, current) {
			idx = i
		}
	}
	next := opts[(idx+dir+len(opts))%len(opts)]
	switch row {
	case filterAssignee:
		v.filter.Assignee = next
	case filterPriority:
		v.filter.Priority = models.Priority(next)
	case filterStatus:
		v.filter.Status = models.Status(next)
	}
	v.regroup()
}

func (v *BoardView) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter), key.Matches(msg, v.keys.Filter):
		v.mode = boardNormal
	case key.Matches(msg, v.keys.Up):
		v.filterRow = (v.filterRow + filterRows - 1) % filterRows
	case key.Matches(msg, v.keys.Down), key.Matches(msg, v.keys.Tab):
		v.filterRow = (v.filterRow + 1) % filterRows
	case key.Matches(msg, v.keys.Left):
		v.cycleFilter(v.filterRow, -1)
	case key.Matches(msg, v.keys.Right), key.Matches(msg, v.keys.Select):
		v.cycleFilter(v.filterRow, 1)
	}
	return v, nil
}

func (v *BoardView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.mode = boardNormal
		return v, nil

	case msg.String() == "ctrl+s":
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		v.form.move(1)
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.form.move(-1)
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.form.focus {
		case fieldDesc:
			// newline in the textarea
		case fieldSave:
			return v, v.saveTask()
		default:
			v.form.move(1)
			return v, nil
		}
	}

	if v.form.focus == fieldPriority {
		switch msg.String() {
		case "left", "h":
			v.form.cyclePriority(-1)
		case "right", "l", " ":
			v.form.cyclePriority(1)
		}
		return v, nil
	}
	return v, v.form.update(msg)
}

func (v *BoardView) saveTask() tea.Cmd {
	ctx, m := v.ctx, v.manager
	now := v.now()

	if v.form.editingID == "" {
		n, err := v.form.newTask(now)
		if err != nil {
			v.form.err = err.Error()
			return nil
		}
		v.mode = boardNormal
		return func() tea.Msg {
			if _, err := m.AddTask(ctx, n); err != nil {
				return failed("Add failed", err)
			}
			return StatusMsg{Text: "Added " + strconv.Quote(strings.TrimSpace(n.Title))}
		}
	}

	id := v.form.editingID
	e, err := v.form.edit(now)
	if err != nil {
		v.form.err = err.Error()
		return nil
	}
	v.mode = boardNormal
	return func() tea.Msg {
		if err := m.UpdateDetails(ctx, id, e); err != nil {
			return failed("Save failed", err)
		}
		return StatusMsg{Text: "Saved"}
	}
}

func (v *BoardView) updateBlockReason(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.blockInput.Blur()
		v.mode = boardNormal
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		v.blockInput.Blur()
		v.mode = boardNormal
		reason := strings.TrimSpace(v.blockInput.Value())
		return v, v.move(v.blockIDs, models.StatusBlocked, &reason)
	}
	var cmd tea.Cmd
	v.blockInput, cmd = v.blockInput.Update(msg)
	return v, cmd
}

func (v *BoardView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.mode = boardNormal
		ctx, m, id, title := v.ctx, v.manager, v.deleteID, v.deleteTitle
		return v, func() tea.Msg {
			if err := m.DeleteTask(ctx, id); err != nil {
				return failed("Delete failed", err)
			}
			return StatusMsg{Text: "Deleted " + strconv.Quote(title)}
		}
	case "n", "N", "esc":
		v.mode = boardNormal
	}
	return v, nil
}

// View renders the board
func (v *BoardView) View() string {
	switch v.mode {
	case boardHelp:
		return v.renderHelpPopup()
	case boardForm:
		return v.renderForm()
	case boardConfirmDelete:
		return v.renderDeleteConfirm()
	case boardBlockReason:
		return v.renderBlockPrompt()
	case boardFilter:
		return v.renderFilterPopup()
	}

	if !v.loaded {
		return v.styles.TitleMuted.Render("Loading...")
	}

	toolbar := v.renderToolbar()
	footer := v.help.ShortHelpView(v.keys.ShortHelp())
	bodyHeight := max(v.height-lipgloss.Height(toolbar)-lipgloss.Height(footer), 5)

	contentWidth := styles.ContentWidth(v.width)
	colWidth := max(contentWidth/len(v.cursor), 16)
	cols := make([]string, 0, len(v.cursor))
	for i := range v.cursor {
		cols = append(cols, v.renderColumn(i, colWidth, bodyHeight))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		toolbar,
		lipgloss.JoinHorizontal(lipgloss.Top, cols...),
		v.styles.Help.Render(footer),
	)
}

func (v *BoardView) renderToolbar() string {
	s := v.styles
	parts := []string{s.FilterBar.Render(v.search.View())}

	var active []string
	if v.filter.Assignee != "" {
		active = append(active, "@"+v.filter.Assignee)
	}
	if v.filter.Priority != "" {
		active = append(active, string(v.filter.Priority))
	}
	if v.filter.Status != "" {
		active = append(active, v.filter.Status.Label())
	}
	if len(active) > 0 {
		parts = append(parts, s.Marked.Render(" filter: "+strings.Join(active, ", ")))
	}
	if n := len(v.marked); n > 0 {
		parts = append(parts, s.Marked.Render(fmt.Sprintf(" %d selected", n)))
	}
	if overdue := len(tasks.Overdue(v.all, v.now())); overdue > 0 {
		parts = append(parts, s.Overdue.Render(fmt.Sprintf(" %d overdue", overdue)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (v *BoardView) renderColumn(i, width, height int) string {
	s := v.styles
	status := models.Statuses()[i]
	list := v.columns[status]
	inner := width - 4

	var hours float64
	for _, t := range list {
		hours += t.TimeEstimate
	}
	header := s.Badge.Foreground(styles.StatusColor(status)).
		Render(truncate(fmt.Sprintf("%s (%d · %sh)", status.Label(), len(list), formatHours(hours)), inner))

	lines := []string{header, ""}
	if len(list) == 0 {
		lines = append(lines, s.TitleMuted.Render("empty"))
	}

	// Cards take three lines including the gap
	visible := max((height-4)/3, 1)
	start := max(0, v.cursor[i]-visible+1)
	end := min(len(list), start+visible)
	for j := start; j < end; j++ {
		selected := i == v.col && j == v.cursor[i]
		lines = append(lines, v.renderCard(list[j], inner, selected), "")
	}
	if rest := len(list) - end; rest > 0 {
		lines = append(lines, s.TitleMuted.Render(fmt.Sprintf("↓ %d more", rest)))
	}

	style := s.Column
	if i == v.col {
		style = s.ColumnFocused
	}
	return style.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

func (v *BoardView) renderCard(t models.Task, width int, selected bool) string {
	s := v.styles

	mark := "  "
	if v.marked[t.ID] {
		mark = s.Marked.Render("● ")
	}
	title := truncate(t.Title, width-2)

	meta := []string{
		truncate(t.AssignedTo, width/3),
		formatHours(t.TimeEstimate) + "h",
		s.Badge.Foreground(styles.PriorityColor(t.Priority)).Render(string(t.Priority)),
	}
	if t.DueDate != nil {
		due := "due " + t.DueDate.UTC().Format("1/2")
		if t.IsOverdue(v.now()) {
			due = s.Overdue.Render(due + "!")
		}
		meta = append(meta, due)
	}
	second := "  " + strings.Join(meta, " · ")

	lines := []string{mark + title, second}
	if t.Status == models.StatusBlocked && t.BlockReason != "" {
		lines = append(lines, s.Overdue.Render("  ⚠ "+truncate(t.BlockReason, width-4)))
	}

	card := s.Card
	if selected {
		card = s.CardSelected
	}
	return card.Width(width).Render(strings.Join(lines, "\n"))
}

// formatHours prints hours with at most one decimal
func formatHours(h float64) string {
	return strconv.FormatFloat(math.Round(h*10)/10, 'f', -1, 64)
}

func (v *BoardView) renderForm() string {
	s := v.styles
	f := &v.form

	heading := "New Task"
	if f.editingID != "" {
		heading = "Edit Task"
	}

	field := func(idx int, label, view string) string {
		style := s.Input
		if f.focus == idx {
			style = s.InputFocused
		}
		return lipgloss.JoinVertical(lipgloss.Left, s.Label.Render(label), style.Render(view))
	}

	var prio []string
	for i, p := range priorities {
		label := " " + string(p) + " "
		if i == f.priority {
			prio = append(prio, s.ButtonPrimary.Background(styles.PriorityColor(p)).Render(label))
		} else {
			prio = append(prio, s.TitleMuted.Render(label))
		}
	}
	prioStyle := s.Input
	if f.focus == fieldPriority {
		prioStyle = s.InputFocused
	}

	save := s.Button.Render(" Save ")
	if f.focus == fieldSave {
		save = s.ButtonPrimary.Render(" Save ")
	}

	rows := []string{
		s.Title.Render(heading),
		"",
		field(fieldTitle, "Title", f.title.View()),
		field(fieldDesc, "Description", f.desc.View()),
		field(fieldAssignee, "Assigned to", f.assignee.View()),
		field(fieldEstimate, "Estimate (hours)", f.estimate.View()),
		lipgloss.JoinVertical(lipgloss.Left, s.Label.Render("Priority"), prioStyle.Render(strings.Join(prio, " "))),
		field(fieldDue, "Due", f.due.View()),
		"",
		save,
	}
	if f.err != "" {
		rows = append(rows, "", s.StatusError.Render(f.err))
	}
	rows = append(rows, "", s.TitleMuted.Render("Tab: next • ←→: priority • Ctrl+S: save • Esc: cancel"))

	return v.centered(s.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
}

func (v *BoardView) renderBlockPrompt() string {
	s := v.styles
	heading := "Block task"
	if len(v.blockIDs) > 1 {
		heading = fmt.Sprintf("Block %d tasks", len(v.blockIDs))
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Foreground(styles.Current.Error).Render(heading),
		"",
		s.InputFocused.Render(v.blockInput.View()),
		"",
		s.TitleMuted.Render("Enter: block • Esc: cancel"),
	)
	return v.centered(s.Modal.Render(content))
}

func (v *BoardView) renderFilterPopup() string {
	s := v.styles
	labels := []string{"Assignee", "Priority", "Status"}
	rows := []string{s.Title.Render("Filter"), ""}
	for i, label := range labels {
		value := v.filterValue(i)
		if value == "" {
			value = "any"
		}
		line := fmt.Sprintf("%-9s ‹ %s ›", label, value)
		if i == v.filterRow {
			rows = append(rows, s.ListSelected.Render(line))
		} else {
			rows = append(rows, s.ListItem.Render(line))
		}
	}
	rows = append(rows, "", s.TitleMuted.Render("↑↓: row • ←→: change • Enter: done"))
	return v.centered(s.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
}

func (v *BoardView) renderDeleteConfirm() string {
	s := v.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(truncate(v.deleteTitle, 50)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)
	return v.centered(content)
}

func (v *BoardView) renderHelpPopup() string {
	s := v.styles
	h := v.help
	h.ShowAll = true
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Keyboard Shortcuts"),
		"",
		h.View(v.keys),
		"",
		s.TitleMuted.Render("Press any key to close"),
	)
	return v.centered(s.FilterBar.Render(content))
}

func (v *BoardView) centered(content string) string {
	return lipgloss.Place(styles.ContentWidth(v.width), v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
}
